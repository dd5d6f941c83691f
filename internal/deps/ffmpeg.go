package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// CheckFFmpeg reports whether the encoding binary can be resolved, including
// the absolute path workers will execute.
func CheckFFmpeg(binary string) Status {
	result := Status{
		Name:        "FFmpeg",
		Description: "Required for audio stitching and MP3 encoding",
	}

	name := strings.TrimSpace(binary)
	if name == "" {
		name = "ffmpeg"
	}
	if resolved, err := exec.LookPath(name); err == nil {
		result.Command = resolved
		result.Available = true
		return result
	}

	result.Command = name
	result.Detail = fmt.Sprintf("binary %q not found", name)
	return result
}
