// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Clip is a fully decoded mono signal.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DecodeFile decodes a .wav, .mp3 or .ogg file and downmixes it to mono.
// Other extensions wrap ErrUnsupportedFormat.
func DecodeFile(path string) (*Clip, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave", ".mp3", ".ogg", ".oga":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	return Decode(ext, bytes.NewReader(data))
}

// Decode decodes r according to a file extension such as ".wav".
func Decode(ext string, r io.ReadSeeker) (*Clip, error) {
	var (
		clip *Clip
		err  error
	)
	switch strings.ToLower(ext) {
	case ".wav", ".wave":
		clip, err = decodeWAV(r)
	case ".mp3":
		clip, err = decodeMP3(r)
	case ".ogg", ".oga":
		clip, err = decodeOgg(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	if len(clip.Samples) == 0 || clip.SampleRate <= 0 {
		return nil, fmt.Errorf("decoded %s file is empty", ext)
	}
	return clip, nil
}

func decodeWAV(r io.ReadSeeker) (*Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("%w: WAV audio format %d is not PCM", ErrUnsupportedFormat, d.WavAudioFormat)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	channels := int(d.NumChans)
	if pcm.Format != nil && pcm.Format.NumChannels > 0 {
		channels = pcm.Format.NumChannels
	}
	return &Clip{
		Samples:    downmix(nil, pcm.Data, channels, intScaler(int(d.BitDepth))),
		SampleRate: int(d.SampleRate),
	}, nil
}

func decodeMP3(r io.Reader) (*Clip, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
	}
	return &Clip{
		Samples:    downmix(nil, pcm, 2, int16Sample),
		SampleRate: dec.SampleRate(),
	}, nil
}

func decodeOgg(r io.Reader) (*Clip, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Ogg Vorbis: %w", err)
	}
	return &Clip{
		Samples:    downmix(nil, samples, format.Channels, float32Sample),
		SampleRate: format.SampleRate,
	}, nil
}
