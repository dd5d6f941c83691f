package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"gistcast/internal/config"
	"gistcast/internal/deps"
	"gistcast/internal/services/artifacts"
	"gistcast/internal/services/speech"
	"gistcast/internal/services/textgen"
)

// minFreeBytes is the floor for staging disk space. A single episode's
// intermediate PCM plus the encoded MP3 stays well under this.
const minFreeBytes = 512 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDiskSpace verifies the filesystem holding path has at least
// minBytes available to the current user.
func CheckDiskSpace(name, path string, minBytes uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d MiB free, need %d MiB)",
			path, available>>20, minBytes>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, available>>20)}
}

// CheckFFmpeg verifies the encoding binary is resolvable.
func CheckFFmpeg(binary string) Result {
	status := deps.CheckFFmpeg(binary)
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	return Result{Name: status.Name, Passed: true, Detail: status.Command}
}

// CheckTextGen verifies that the script provider is reachable and the key
// is valid. It uses a 30-second timeout and a single attempt.
func CheckTextGen(ctx context.Context, cfg config.TextGen) Result {
	const name = "Text generation"

	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := textgen.NewClient(textgen.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		MaxRetries: 1,
	})
	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeProviderError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckSpeech verifies the speech provider configuration. The TTS endpoint
// bills per request, so this stays a key-presence check.
func CheckSpeech(ctx context.Context, cfg config.Speech) Result {
	const name = "Speech synthesis"

	client := speech.NewClient(speech.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err := client.HealthCheck(ctx); err != nil {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckArtifacts reports whether episode uploads are configured.
func CheckArtifacts(cfg config.Artifacts) Result {
	const name = "Artifact storage"

	client := artifacts.NewClient(artifacts.Config{
		BaseURL:    cfg.BaseURL,
		ServiceKey: cfg.ServiceKey,
		Bucket:     cfg.Bucket,
	})
	if !client.Enabled() {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return Result{Name: name, Detail: "service key missing"}
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return Result{Name: name, Detail: "bucket missing"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// summarizeProviderError produces a human-readable summary for provider
// health check failures.
func summarizeProviderError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
