package runner

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/npuboj/judgecore/envexec"
	"github.com/npuboj/judgecore/types"
	"go.uber.org/zap"
)

// CompileAndRun compiles src and runs the artifact once for each input.
// It never returns an error or panics: failures are reported as outcome codes.
func (r *Runner) CompileAndRun(ctx context.Context, src string, inputs [][]byte, limit types.Limitation) (rt []types.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("compile and run panicked", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			rt = []types.Outcome{r.sandboxError(fmt.Errorf("internal error: %v", p))}
		}
	}()

	if err := limit.Validate(); err != nil {
		r.logger.Error("rejected invalid limitation", zap.Error(err))
		rt = make([]types.Outcome, 0, len(inputs))
		for range inputs {
			rt = append(rt, r.sandboxError(err))
		}
		return rt
	}

	c := r.compile(ctx, src)
	if c.err != nil {
		return []types.Outcome{r.sandboxError(c.err)}
	}
	if !c.ok {
		o := types.CompileErrorOutcome(c.message)
		r.observe(o)
		return []types.Outcome{o}
	}
	return r.runAll(ctx, inputs, limit)
}

// runAll runs every input in order, caller holds the lock
func (r *Runner) runAll(ctx context.Context, inputs [][]byte, limit types.Limitation) []types.Outcome {
	rt := make([]types.Outcome, 0, len(inputs))
	for i, in := range inputs {
		o := r.runOne(ctx, i, in, limit)
		if o.Code == types.CodeSandboxError && r.stopOnSandboxError {
			r.logger.Warn("stop on sandbox error", zap.Int("test", i), zap.Int("skipped", len(inputs)-i-1))
			return []types.Outcome{o}
		}
		rt = append(rt, o)
	}
	return rt
}

// runOne isolates a single execution, a gateway fault or panic only
// affects the outcome of this input
func (r *Runner) runOne(ctx context.Context, i int, in []byte, limit types.Limitation) (o types.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("execution panicked", zap.Int("test", i), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			o = r.sandboxError(fmt.Errorf("test %d: internal error: %v", i, p))
		}
	}()

	if err := ctx.Err(); err != nil {
		return r.sandboxError(fmt.Errorf("test %d: %w", i, err))
	}

	req := envexec.Request{
		Args:        []string{r.artifactPath},
		WorkDir:     r.workDir,
		Stdin:       in,
		TimeLimit:   limit.TimeLimit(),
		MemoryLimit: limit.MemoryLimit(),
		OutputLimit: r.outputLimit,
	}
	rep, err := r.gateway.Run(ctx, req)
	if err != nil {
		return r.sandboxError(fmt.Errorf("test %d: %w", i, err))
	}

	o = types.Outcome{
		Code:       outcomeCode(rep.Status, rep.Reason),
		Stdout:     rep.Stdout,
		Stderr:     rep.Stderr,
		ExitStatus: rep.ExitStatus,
		Error:      rep.Error,
		Time:       rep.Time,
		Memory:     rep.Memory,
	}
	if o.Code == types.CodeSandboxError {
		r.logger.Error("sandbox error", zap.Int("test", i), zap.Stringer("status", rep.Status),
			zap.Stringer("reason", rep.Reason), zap.String("error", rep.Error))
		if len(o.Stderr) == 0 {
			o.Stderr = []byte(rep.Error)
		}
	} else if ce := r.logger.Check(zap.DebugLevel, "test finished"); ce != nil {
		ce.Write(zap.Int("test", i), zap.Stringer("outcome", o))
	}
	r.observe(o)
	return o
}

// sandboxError creates a SandboxError outcome and reports it
func (r *Runner) sandboxError(err error) types.Outcome {
	r.logger.Error("sandbox error", zap.Error(err))
	o := types.SandboxErrorOutcome(err)
	r.observe(o)
	return o
}

// outcomeCode maps the gateway report to the outcome code
func outcomeCode(s envexec.Status, reason envexec.Reason) types.Code {
	switch s {
	case envexec.StatusOK:
		return types.CodeSuccess
	case envexec.StatusTimeout:
		return types.CodeTimeout
	case envexec.StatusResourceExceeded:
		switch reason {
		case envexec.ReasonMemory:
			return types.CodeMemoryExceeded
		case envexec.ReasonCPU, envexec.ReasonWallClock:
			return types.CodeTimeout
		default:
			return types.CodeRuntimeError
		}
	case envexec.StatusCrashed:
		return types.CodeRuntimeError
	default:
		return types.CodeSandboxError
	}
}
