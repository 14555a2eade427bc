// SPDX-License-Identifier: MIT
package audio

import "errors"

var (
	// ErrNoDevice is returned when no capture-capable device could be selected.
	ErrNoDevice = errors.New("no usable capture device")
	// ErrUnsupportedFormat is returned for a sample format or file type that
	// cannot be decoded.
	ErrUnsupportedFormat = errors.New("unsupported sample format")

	// Stream faults reported on Source.Errors.
	ErrInputOverflow  = errors.New("input overflow: samples were dropped")
	ErrInputUnderflow = errors.New("input underflow: silence was inserted")
)
