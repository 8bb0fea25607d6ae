package ocr

// Candidate is a NIK read by one or more OCR passes.
type Candidate struct {
	NIK       string
	Votes     int
	Labelled  bool
	Plausible bool
}

func (c Candidate) score() int {
	s := c.Votes
	if c.Plausible {
		s += 10
	}
	if c.Labelled {
		s += 3
	}
	return s
}

// CollectCandidates tallies the NIK candidates found in each pass text.
func CollectCandidates(texts []string) []Candidate {
	var out []Candidate
	index := map[string]int{}
	for _, text := range texts {
		label := labelledNIK(text)
		for _, nik := range ParseNIKCandidates(text) {
			i, ok := index[nik]
			if !ok {
				i = len(out)
				index[nik] = i
				out = append(out, Candidate{NIK: nik, Plausible: isPlausibleNIK(nik)})
			}
			out[i].Votes++
			if nik == label {
				out[i].Labelled = true
			}
		}
	}
	return out
}

// BestNIK picks the highest scoring candidate and a confidence in [0,1]
// derived from how many of the passes agreed on it.
func BestNIK(cands []Candidate, passes int) (string, float64, bool) {
	if len(cands) == 0 {
		return "", 0, false
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.score() > best.score() || (c.score() == best.score() && c.NIK < best.NIK) {
			best = c
		}
	}
	if passes < best.Votes {
		passes = best.Votes
	}
	conf := float64(best.Votes) / float64(passes)
	if best.Plausible && conf < 0.5 {
		conf = 0.5
	}
	if best.Labelled {
		conf += 0.2
	}
	if !best.Plausible {
		conf /= 2
	}
	if conf > 1 {
		conf = 1
	}
	return best.NIK, conf, true
}
