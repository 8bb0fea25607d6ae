package ocr

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"desaweb/pkg/logger"
)

const (
	digitWhitelist = "0123456789 "
	// the label and the look-alike letters are kept so labelledNIK and
	// repairToken have something to work with
	labelWhitelist = "0123456789NIKnikOoIlSBZDQG:. "
)

type pass struct {
	name      string
	img       image.Image
	whitelist string
	psm       gosseract.PageSegMode
}

// runAllOCRPasses reads the card through several preprocessed variants and
// returns the normalized text of every pass that succeeded.
func runAllOCRPasses(path string) ([]string, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	if img.Bounds().Dy() < 900 {
		img = imaging.Resize(img, 0, referenceHeight, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)
	gray = imaging.AdjustContrast(gray, 20)
	gray = imaging.Sharpen(gray, 0.7)
	bin := binarize(gray, 150)
	// the local threshold works on colour so the blue background drops out
	card := cardFor(img.Bounds().Dy())
	adv := card.bridgeStrokes(card.threshold(img))

	// the NIK line sits in the upper part of the card, under the province
	// and regency header
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	top := imaging.Crop(bin, image.Rect(0, 0, w, h*2/5))

	passes := []pass{
		{"gray-label", gray, labelWhitelist, gosseract.PSM_AUTO},
		{"gray-digits", gray, digitWhitelist, gosseract.PSM_SPARSE_TEXT},
		{"binary-label", bin, labelWhitelist, gosseract.PSM_AUTO},
		{"adaptive-digits", adv, digitWhitelist, gosseract.PSM_SPARSE_TEXT},
		{"top-label", top, labelWhitelist, gosseract.PSM_SINGLE_BLOCK},
		{"top-digits", top, digitWhitelist, gosseract.PSM_SINGLE_BLOCK},
		{"inverted", imaging.Invert(bin), labelWhitelist, gosseract.PSM_AUTO},
	}

	var texts []string
	var lastErr error
	for _, p := range passes {
		text, err := recognize(p)
		if err != nil {
			lastErr = err
			logger.WithField("pass", p.name).Debugf("ocr pass failed: %v", err)
			continue
		}
		texts = append(texts, text)
	}
	if len(texts) == 0 && lastErr != nil {
		return nil, lastErr
	}
	logger.WithField("path", path).WithField("passes", len(texts)).Debug("ocr passes done")
	return texts, nil
}

func recognize(p pass) (string, error) {
	tmp, err := os.CreateTemp("", "ktp-"+p.name+"-*.png")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(name)
	if err := imaging.Save(p.img, name); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	_ = client.SetWhitelist(p.whitelist)
	_ = client.SetPageSegMode(p.psm)
	if err := client.SetImage(name); err != nil {
		return "", err
	}
	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return normalizeOCRText(text), nil
}
