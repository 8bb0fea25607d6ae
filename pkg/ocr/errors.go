package ocr

import "errors"

// ErrNoNIK is returned when no 16-digit identity number can be read from the image.
var ErrNoNIK = errors.New("no NIK detected")
