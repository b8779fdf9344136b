package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAV is returned when a file is not a readable PCM WAV file.
var ErrNotWAV = errors.New("not a valid WAV file")

// Info describes a WAV file.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// Inspect reads the header of the WAV file at path.
func Inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("%w: %s", ErrNotWAV, path)
	}
	dur, err := d.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", path, err)
	}
	return Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
		Duration:   dur,
	}, nil
}

// WriteTone writes a mono 16-bit square-wave tone. It is used to generate a
// default cue file.
func WriteTone(path string, freq float64, length time.Duration, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	n := int(length.Seconds() * float64(sampleRate))
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, n),
		SourceBitDepth: 16,
	}
	period := float64(sampleRate) / freq
	for i := range buf.Data {
		if int(float64(i)/(period/2))%2 == 0 {
			buf.Data[i] = 8000
		} else {
			buf.Data[i] = -8000
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
