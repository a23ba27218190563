package textextract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// DefaultCommandTimeout bounds a single pdftotext, pdftoppm, tesseract or
// soffice invocation.
const DefaultCommandTimeout = 2 * time.Minute

// stderrLogLimit caps how much tool stderr goes into a log line.
const stderrLogLimit = 8 << 10

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// commandRunner runs extraction tools as subprocesses, each under its own deadline.
type commandRunner struct {
	timeout time.Duration
	log     *slog.Logger
}

func newCommandRunner(timeout time.Duration, logger *slog.Logger) commandRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return commandRunner{timeout: timeout, log: logger}
}

func (r commandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%s exceeded %s: %w", name, r.timeout, context.DeadlineExceeded)
		}
		r.log.Error("extract.exec.failed",
			"tool", name,
			"argc", len(args),
			"elapsed_ms", elapsed,
			"error", err,
			"stderr", truncate(stderr.String(), stderrLogLimit),
		)
		return stdout.Bytes(), stderr.Bytes(), err
	}
	r.log.Debug("extract.exec.ok",
		"tool", name,
		"argc", len(args),
		"elapsed_ms", elapsed,
		"stdout_bytes", stdout.Len(),
	)
	return stdout.Bytes(), stderr.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
