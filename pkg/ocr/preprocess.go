package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// KTP cards print dark text over a light blue guilloche pattern. The blue
// channel carries most of that pattern, so ink is measured mostly on red
// and green.
func inkLuma(r, g, b uint8) int {
	return (5*int(r) + 4*int(g) + int(b)) / 10
}

// cardParams tunes the local threshold for a card scan.
type cardParams struct {
	// odd side of the local mean window, in pixels
	window int
	// how far below the local mean a pixel has to be to count as ink
	bias int
	// sideways dilation steps that join broken digit strokes
	bridge int
}

// referenceHeight is the scan height the defaults were picked for.
const referenceHeight = 1300

var defaultCard = cardParams{window: 25, bias: 12, bridge: 1}

// cardFor scales the default window to a scan of height h.
func cardFor(h int) cardParams {
	p := defaultCard
	if h > 0 {
		p.window = p.window * h / referenceHeight
	}
	if p.window < 3 {
		p.window = 3
	}
	if p.window%2 == 0 {
		p.window++
	}
	return p
}

var (
	paper = color.NRGBA{255, 255, 255, 255}
	ink   = color.NRGBA{0, 0, 0, 255}
)

// binarize maps every pixel to ink or paper around a fixed threshold.
func binarize(img image.Image, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		if inkLuma(c.R, c.G, c.B) <= int(threshold) {
			return ink
		}
		return paper
	})
}

// lumaPlane flattens img into ink luma values, row by row.
func lumaPlane(img image.Image) ([]int, int, int) {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := make([]int, w*h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			out[y*w+x] = inkLuma(row[x*4], row[x*4+1], row[x*4+2])
		}
	}
	return out, w, h
}

// threshold marks a pixel as ink when it is darker than the mean of its
// window by more than bias.
func (p cardParams) threshold(img image.Image) *image.NRGBA {
	lum, w, h := lumaPlane(img)
	half := p.window / 2
	// summed-area table with a zero row and column in front
	stride := w + 1
	sat := make([]int, stride*(h+1))
	for y := 1; y <= h; y++ {
		run := 0
		for x := 1; x <= w; x++ {
			run += lum[(y-1)*w+x-1]
			sat[y*stride+x] = sat[(y-1)*stride+x] + run
		}
	}

	out := imaging.New(w, h, paper)
	for y := 0; y < h; y++ {
		y0, y1 := max(y-half, 0), min(y+half+1, h)
		for x := 0; x < w; x++ {
			x0, x1 := max(x-half, 0), min(x+half+1, w)
			total := sat[y1*stride+x1] - sat[y0*stride+x1] - sat[y1*stride+x0] + sat[y0*stride+x0]
			mean := total / ((x1 - x0) * (y1 - y0))
			if lum[y*w+x] < mean-p.bias {
				setInk(out, x, y)
			}
		}
	}
	return out
}

// bridgeStrokes thickens ink sideways only, so the NIK digits close up
// while neighbouring text lines stay apart.
func (p cardParams) bridgeStrokes(img *image.NRGBA) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	cur := img
	for i := 0; i < p.bridge; i++ {
		next := imaging.Clone(cur)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !isInk(cur, x, y) {
					continue
				}
				if x > 0 {
					setInk(next, x-1, y)
				}
				if x < w-1 {
					setInk(next, x+1, y)
				}
			}
		}
		cur = next
	}
	return cur
}

func isInk(img *image.NRGBA, x, y int) bool {
	return img.Pix[y*img.Stride+x*4] == 0
}

func setInk(img *image.NRGBA, x, y int) {
	i := y*img.Stride + x*4
	img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0, 0, 0, 255
}
