package logs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const followPollInterval = 250 * time.Millisecond

// Last returns up to n trailing lines of the log file together with the
// offset from which After should continue. Only complete lines are returned;
// a trailing fragment without a newline stays buffered for the next read.
// A missing file yields no lines and offset zero.
func Last(path string, n int) ([]string, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	if n <= 0 {
		return nil, int64(len(data)), nil
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, 0, nil
	}
	lines := strings.Split(string(data[:end]), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, int64(end + 1), nil
}

// After returns the complete lines appended past offset and the offset to
// resume from. When nothing new is available it polls until lines arrive,
// wait elapses, or ctx is done. An offset beyond the current size (log
// rotation) resets to the end of the file.
func After(ctx context.Context, path string, offset int64, wait time.Duration) ([]string, int64, error) {
	deadline := time.Now().Add(wait)
	for {
		lines, next, err := readAfter(path, offset)
		if err != nil {
			return nil, offset, err
		}
		if len(lines) > 0 {
			return lines, next, nil
		}
		offset = next
		if wait <= 0 || !time.Now().Before(deadline) {
			return nil, next, nil
		}
		select {
		case <-ctx.Done():
			return nil, next, ctx.Err()
		case <-time.After(followPollInterval):
		}
	}
}

func readAfter(path string, offset int64) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	size := info.Size()
	if offset < 0 || offset > size {
		offset = size
	}
	if offset == size {
		return nil, offset, nil
	}

	buf := make([]byte, size-offset)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		return nil, offset, nil
	}
	return strings.Split(string(buf[:end]), "\n"), offset + int64(end+1), nil
}
