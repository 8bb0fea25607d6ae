// Package ocr reads the NIK (national identity number) from a photo of an
// Indonesian identity card and compares it with the number a business owner
// typed in. Results are advisory; callers never reject a registration on them.
package ocr

import (
	"fmt"
	"strings"

	"desaweb/pkg/logger"
	"desaweb/pkg/record"
)

const (
	Matched    = "matched"
	Mismatch   = "mismatch"
	Unreadable = "unreadable"
)

// ExtractNIK runs the OCR passes over the image at path and returns the most
// likely NIK with a confidence in [0,1].
func ExtractNIK(path string) (string, float64, error) {
	texts, err := runAllOCRPasses(path)
	if err != nil {
		return "", 0, fmt.Errorf("ocr passes: %w", err)
	}
	cands := CollectCandidates(texts)
	nik, conf, ok := BestNIK(cands, len(texts))
	if !ok {
		logger.WithField("path", path).Debugf("no NIK in ocr text %q", snippet(strings.Join(texts, " | "), 160))
		return "", 0, ErrNoNIK
	}
	logger.WithField("path", path).
		WithField("candidates", len(cands)).
		WithField("confidence", conf).
		Debug("ocr NIK chosen")
	return nik, conf, nil
}

// Verify reads the card at path and compares it with the claimed NIK.
func Verify(path, claimed string) record.KTPCheck {
	nik, conf, err := ExtractNIK(path)
	if err != nil {
		logger.WithField("path", path).Infof("ktp unreadable: %v", err)
		return record.KTPCheck{Result: Unreadable}
	}
	return Compare(nik, conf, claimed)
}

// Compare classifies a detected NIK against the claimed one. A single
// differing digit still counts as a match at reduced confidence.
func Compare(detected string, conf float64, claimed string) record.KTPCheck {
	claimed = onlyDigits(claimed)
	out := record.KTPCheck{Detected: detected, Confidence: conf}
	switch d := distance(detected, claimed); {
	case detected == "":
		out.Result = Unreadable
	case d == 0:
		out.Result = Matched
	case d == 1:
		out.Result = Matched
		out.Confidence = conf * 0.8
	default:
		out.Result = Mismatch
	}
	return out
}

// distance is the number of differing positions; strings of different
// length are maximally distant.
func distance(a, b string) int {
	if len(a) != len(b) {
		return max(len(a), len(b))
	}
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}
