package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// MP3Quality is the libmp3lame VBR quality used for episode encoding.
const MP3Quality = 2

// EncodeMP3 converts raw PCM into MP3 bytes by piping through ffmpeg.
func EncodeMP3(ctx context.Context, pcm []byte, spec Spec, ffmpegBinary string) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, errors.New("encode mp3: empty pcm input")
	}
	if !spec.valid() {
		spec = DefaultSpec()
	}
	if strings.TrimSpace(ffmpegBinary) == "" {
		ffmpegBinary = "ffmpeg"
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(spec.SampleRate),
		"-ac", strconv.Itoa(spec.Channels),
		"-i", "pipe:0",
		"-c:a", "libmp3lame",
		"-q:a", strconv.Itoa(MP3Quality),
		"-f", "mp3",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, ffmpegBinary, args...)
	cmd.Stdin = bytes.NewReader(pcm)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("ffmpeg encode: %w: %s", err, detail)
		}
		return nil, fmt.Errorf("ffmpeg encode: %w", err)
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg encode: produced no output")
	}
	return stdout.Bytes(), nil
}
