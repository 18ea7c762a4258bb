package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxCompileMessage = 1 << 20 // 1M

// compileResult is the compiler verdict, err is set when the compiler
// could not be run at all
type compileResult struct {
	ok      bool
	message string
	err     error
}

// compile stages src and builds the artifact. Caller holds the lock.
func (r *Runner) compile(ctx context.Context, src string) compileResult {
	if err := os.WriteFile(r.sourcePath, []byte(src), 0644); err != nil {
		return compileResult{err: fmt.Errorf("stage source: %w", err)}
	}
	// never run an artifact left by a previous call
	if err := os.Remove(r.artifactPath); err != nil && !os.IsNotExist(err) {
		return compileResult{err: fmt.Errorf("remove artifact: %w", err)}
	}

	compileCtx := ctx
	if r.compileTimeout > 0 {
		var cancel context.CancelFunc
		compileCtx, cancel = context.WithTimeout(ctx, r.compileTimeout)
		defer cancel()
	}

	stderr := &cappedWriter{max: maxCompileMessage}
	cmd := exec.CommandContext(compileCtx, r.compiler, r.toolchain.CompileArgs(r.sourcePath, r.artifactPath)...)
	cmd.Dir = r.workDir
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second

	r.logger.Debug("compile start", zap.Strings("args", cmd.Args))
	sTime := time.Now()
	err := cmd.Run()
	d := time.Since(sTime)
	message := strings.TrimSuffix(stderr.String(), "\n")

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		r.logger.Debug("compile finished", zap.Duration("time", d))
		return compileResult{ok: true, message: message}

	case ctx.Err() != nil:
		return compileResult{err: fmt.Errorf("compile: %w", ctx.Err())}

	case compileCtx.Err() != nil:
		r.logger.Info("compile time limit exceeded", zap.Duration("time", d))
		if message != "" {
			message += "\n"
		}
		return compileResult{message: message + "compile time limit exceeded"}

	case errors.As(err, &exitErr):
		r.logger.Debug("compile error", zap.Int("exitStatus", exitErr.ExitCode()), zap.Duration("time", d))
		return compileResult{message: message}

	default:
		return compileResult{err: fmt.Errorf("compile: %w", err)}
	}
}

// cappedWriter keeps the first max bytes. The buffer is not embedded so
// that io.Copy cannot bypass Write through ReadFrom.
type cappedWriter struct {
	buf bytes.Buffer
	max int
}

func (w *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if remain := w.max - w.buf.Len(); len(p) > remain {
		p = p[:max(remain, 0)]
	}
	w.buf.Write(p)
	return n, nil
}

func (w *cappedWriter) String() string {
	return w.buf.String()
}
