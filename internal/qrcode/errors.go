package qrcode

import "errors"

var (
	// ErrEncodingTooLarge is returned when no version up to 40 holds the data
	// at the requested error correction level.
	ErrEncodingTooLarge = errors.New("data too large for a QR code at this error correction level")
	ErrEmptyInput       = errors.New("no input text")
	ErrInvalidLevel     = errors.New("invalid error correction level")
	ErrInvalidMask      = errors.New("mask pattern must be between 0 and 7")
	ErrInvalidVersion   = errors.New("version must be between 1 and 40")
)
