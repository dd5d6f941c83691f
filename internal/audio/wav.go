package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"time"
)

// Spec describes the raw PCM produced by the speech provider.
type Spec struct {
	SampleRate int
	Channels   int
	// BytesPerSample is the sample width, 2 for s16le.
	BytesPerSample int
}

// DefaultSpec matches the synthesis provider output: 24 kHz mono s16le.
func DefaultSpec() Spec {
	return Spec{SampleRate: 24000, Channels: 1, BytesPerSample: 2}
}

func (s Spec) valid() bool {
	return s.SampleRate > 0 && s.Channels > 0 && s.BytesPerSample > 0
}

func (s Spec) byteRate() int {
	return s.SampleRate * s.Channels * s.BytesPerSample
}

// PCMDuration returns the play time of raw PCM under the spec.
func PCMDuration(pcm []byte, spec Spec) time.Duration {
	if !spec.valid() || len(pcm) == 0 {
		return 0
	}
	return time.Duration(float64(len(pcm)) / float64(spec.byteRate()) * float64(time.Second))
}

// WriteWAV frames raw PCM with a RIFF/WAVE header.
func WriteWAV(w io.Writer, pcm []byte, spec Spec) error {
	if !spec.valid() {
		return errors.New("invalid pcm spec")
	}

	dataLen := uint32(len(pcm))
	header := make([]byte, 0, 44)
	buf := [4]byte{}

	header = append(header, []byte("RIFF")...)
	binary.LittleEndian.PutUint32(buf[:], 36+dataLen)
	header = append(header, buf[:]...)
	header = append(header, []byte("WAVE")...)

	header = append(header, []byte("fmt ")...)
	binary.LittleEndian.PutUint32(buf[:], 16)
	header = append(header, buf[:]...)
	header = append(header, 1, 0) // PCM format
	header = append(header, byte(spec.Channels), 0)
	binary.LittleEndian.PutUint32(buf[:], uint32(spec.SampleRate))
	header = append(header, buf[:]...)
	binary.LittleEndian.PutUint32(buf[:], uint32(spec.byteRate()))
	header = append(header, buf[:]...)
	blockAlign := uint16(spec.Channels * spec.BytesPerSample)
	header = append(header, byte(blockAlign), byte(blockAlign>>8))
	bitsPerSample := uint16(spec.BytesPerSample * 8)
	header = append(header, byte(bitsPerSample), byte(bitsPerSample>>8))

	header = append(header, []byte("data")...)
	binary.LittleEndian.PutUint32(buf[:], dataLen)
	header = append(header, buf[:]...)

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
