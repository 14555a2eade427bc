// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"strings"
)

// SampleFormat is a native capture sample format.
type SampleFormat string

const (
	FormatFloat32 SampleFormat = "float32"
	FormatInt32   SampleFormat = "int32"
	FormatInt16   SampleFormat = "int16"
	FormatInt8    SampleFormat = "int8"
	FormatUint8   SampleFormat = "uint8"
)

// ParseSampleFormat maps a config value to a SampleFormat. An empty value
// selects float32; anything unknown wraps ErrUnsupportedFormat.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch f := SampleFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatFloat32, nil
	case FormatFloat32, FormatInt32, FormatInt16, FormatInt8, FormatUint8:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

type sample interface {
	~float32 | ~int | ~int32 | ~int16 | ~int8 | ~uint8
}

func float32Sample(s float32) float32 { return s }
func int32Sample(s int32) float32     { return float32(float64(s) / (1 << 31)) }
func int16Sample(s int16) float32     { return float32(s) / (1 << 15) }
func int8Sample(s int8) float32       { return float32(s) / (1 << 7) }
func uint8Sample(s uint8) float32     { return (float32(s) - 128) / (1 << 7) }

// intScaler converts decoded integer PCM of the given bit depth.
func intScaler(bitDepth int) func(int) float32 {
	scale := float64(int64(1) << (bitDepth - 1))
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		return func(s int) float32 { return float32((float64(s) - 128) / 128) }
	}
	return func(s int) float32 { return float32(float64(s) / scale) }
}

// downmix averages interleaved frames of in into dst and returns the filled
// prefix. dst grows only when a chunk is larger than any seen before.
func downmix[T sample](dst []float32, in []T, channels int, conv func(T) float32) []float32 {
	if channels < 1 {
		channels = 1
	}
	frames := len(in) / channels
	if cap(dst) < frames {
		dst = make([]float32, frames)
	}
	dst = dst[:frames]

	if channels == 1 {
		for i := range dst {
			dst[i] = conv(in[i])
		}
		return dst
	}

	inv := 1 / float32(channels)
	for i := range dst {
		var sum float32
		frame := in[i*channels : (i+1)*channels]
		for _, s := range frame {
			sum += conv(s)
		}
		dst[i] = sum * inv
	}
	return dst
}
