package util

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoExtractableText = errors.New("no extractable text found in document")

	ErrActiveJobExists  = errors.New("project already has an active verification job")
	ErrNotFound         = errors.New("not found")
	ErrMissingMainDoc   = errors.New("project has no main document")
	ErrNoIndexedSupport = errors.New("project has no indexed supporting documents")
)
