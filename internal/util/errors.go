package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrResetNotConfirmed = errors.New("reset requires explicit confirmation")
)
