package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"pulpit/internal/config"
	"pulpit/internal/deps"
	"pulpit/internal/services/openai"
)

// minimumFreeBytes is the floor below which audio staging is likely to fail
// mid-extraction: a two-hour WAV at 16 kHz mono runs about 230 MB.
const minimumFreeBytes = 1 << 30

// CheckOpenAI verifies that the OpenAI API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckOpenAI(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenAI API"
	if cfg.OpenAI.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := openai.NewClient(openai.Config{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		TimeoutSeconds: 30,
	}, openai.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

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

// CheckFreeSpace verifies the filesystem holding path has room for staging.
func CheckFreeSpace(name, path string) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minimumFreeBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GB free (need at least 1 GB)", float64(free)/(1<<30))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GB free", float64(free)/(1<<30))}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries([]deps.Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBinary(), Description: "Audio extraction and segmentation"},
		{Name: "FFprobe", Command: cfg.FFprobeBinary(), Description: "Media inspection"},
	})
}

// summarizeAPIError produces a human-readable summary for health check failures.
func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	return err.Error()
}
