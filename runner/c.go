package runner

import (
	"time"

	"github.com/npuboj/judgecore/envexec"
	"github.com/npuboj/judgecore/language"
	"go.uber.org/zap"
)

// DefaultCCompiler is the C compiler used unless overridden
const DefaultCCompiler = "/bin/gcc"

type options struct {
	compiler           string
	flags              []string
	logger             *zap.Logger
	observer           Observer
	outputLimit        envexec.Size
	compileTimeout     time.Duration
	stopOnSandboxError bool
}

// Option configures a compiler strategy
type Option func(*options)

// WithCompiler overrides the compiler executable
func WithCompiler(path string) Option {
	return func(o *options) {
		o.compiler = path
	}
}

// WithCompilerFlags sets extra compiler flags placed before -o
func WithCompilerFlags(flags []string) Option {
	return func(o *options) {
		o.flags = flags
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver sets the outcome observer
func WithObserver(ob Observer) Option {
	return func(o *options) {
		o.observer = ob
	}
}

// WithOutputLimit bounds the collected stdout and stderr of each execution
func WithOutputLimit(limit envexec.Size) Option {
	return func(o *options) {
		o.outputLimit = limit
	}
}

// WithCompileTimeout kills the compiler after d
func WithCompileTimeout(d time.Duration) Option {
	return func(o *options) {
		o.compileTimeout = d
	}
}

// WithStopOnSandboxError collapses the batch into a single SandboxError
// outcome on the first infrastructure failure instead of continuing
func WithStopOnSandboxError(stop bool) Option {
	return func(o *options) {
		o.stopOnSandboxError = stop
	}
}

// CCompiler is the compile strategy for C
type CCompiler struct {
	*Runner
}

// NewCCompiler creates the C strategy owning workDir
func NewCCompiler(workDir string, gw envexec.Gateway, opts ...Option) (*CCompiler, error) {
	o := options{compiler: DefaultCCompiler}
	for _, opt := range opts {
		opt(&o)
	}
	r, err := New(Config{
		Toolchain:          language.C{Flags: o.flags},
		Gateway:            gw,
		Compiler:           o.compiler,
		WorkDir:            workDir,
		Logger:             o.logger,
		Observer:           o.observer,
		OutputLimit:        o.outputLimit,
		CompileTimeout:     o.compileTimeout,
		StopOnSandboxError: o.stopOnSandboxError,
	})
	if err != nil {
		return nil, err
	}
	return &CCompiler{Runner: r}, nil
}
