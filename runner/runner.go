// Package runner implements the compile strategies. The shared Runner
// stages the source, invokes the compiler and runs every input through the
// isolation gateway, the per-language strategies only choose the toolchain.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/npuboj/judgecore/envexec"
	"github.com/npuboj/judgecore/language"
	"github.com/npuboj/judgecore/types"
	"go.uber.org/zap"
)

// ErrInvalidConfiguration is returned on construction when the working
// directory or the compiler is unusable
var ErrInvalidConfiguration = errors.New("invalid configuration")

const (
	defaultOutputLimit  = 64 << 20 // 64M
	versionProbeTimeout = 10 * time.Second
)

// Observer is notified of every outcome produced
type Observer func(types.Outcome)

// Config defines the parameters of a Runner
type Config struct {
	Toolchain language.Toolchain
	Gateway   envexec.Gateway
	Compiler  string
	WorkDir   string

	Logger   *zap.Logger
	Observer Observer

	// OutputLimit bounds the collected stdout and stderr of each execution
	OutputLimit envexec.Size

	// CompileTimeout kills the compiler after the duration, zero means none
	CompileTimeout time.Duration

	// StopOnSandboxError collapses the batch into a single SandboxError
	// outcome on the first infrastructure failure
	StopOnSandboxError bool
}

var _ language.Strategy = &Runner{}

// Runner is the shared compile, execute and judge logic for one working
// directory. Calls on the same Runner are serialized.
type Runner struct {
	toolchain language.Toolchain
	gateway   envexec.Gateway
	compiler  string
	workDir   string

	sourcePath   string
	artifactPath string

	logger   *zap.Logger
	observer Observer

	outputLimit        envexec.Size
	compileTimeout     time.Duration
	stopOnSandboxError bool

	mu sync.Mutex
}

// New creates a Runner after checking the working directory and probing
// the compiler
func New(c Config) (*Runner, error) {
	if c.Toolchain == nil {
		return nil, fmt.Errorf("%w: toolchain is nil", ErrInvalidConfiguration)
	}
	if c.Gateway == nil {
		return nil, fmt.Errorf("%w: gateway is nil", ErrInvalidConfiguration)
	}
	if c.Compiler == "" {
		return nil, fmt.Errorf("%w: compiler is empty", ErrInvalidConfiguration)
	}
	fi, err := os.Stat(c.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: work dir: %v", ErrInvalidConfiguration, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%w: work dir %s is not a directory", ErrInvalidConfiguration, c.WorkDir)
	}
	workDir, err := filepath.Abs(c.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: work dir: %v", ErrInvalidConfiguration, err)
	}
	if err := probeCompiler(c.Compiler, c.Toolchain.VersionArgs()); err != nil {
		return nil, fmt.Errorf("%w: compiler %s: %v", ErrInvalidConfiguration, c.Compiler, err)
	}

	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	outputLimit := c.OutputLimit
	if outputLimit == 0 {
		outputLimit = defaultOutputLimit
	}
	return &Runner{
		toolchain:          c.Toolchain,
		gateway:            c.Gateway,
		compiler:           c.Compiler,
		workDir:            workDir,
		sourcePath:         filepath.Join(workDir, c.Toolchain.SourceFileName()),
		artifactPath:       filepath.Join(workDir, c.Toolchain.ArtifactName()),
		logger:             logger.With(zap.String("language", c.Toolchain.Name()), zap.String("workDir", workDir)),
		observer:           c.Observer,
		outputLimit:        outputLimit,
		compileTimeout:     c.CompileTimeout,
		stopOnSandboxError: c.StopOnSandboxError,
	}, nil
}

// WorkDir returns the absolute working directory owned by the runner
func (r *Runner) WorkDir() string {
	return r.workDir
}

func probeCompiler(compiler string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), versionProbeTimeout)
	defer cancel()
	return exec.CommandContext(ctx, compiler, args...).Run()
}

func (r *Runner) observe(o types.Outcome) {
	if r.observer != nil {
		r.observer(o)
	}
}
