package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/google/shlex"
	"github.com/koding/multiconfig"
	"github.com/npuboj/judgecore/envexec"
)

// Config defines judge server configuration
type Config struct {
	// runner
	WorkDir            string        `flagUsage:"specifies directory holding the per worker working directories (temp dir by default)"`
	Parallelism        int           `flagUsage:"control the # of concurrency execution (default equal to number of cpu)"`
	Compiler           string        `flagUsage:"specifies the C compiler" default:"/bin/gcc"`
	CompilerFlags      string        `flagUsage:"specifies extra compiler flags, split as shell words" default:"-O2"`
	CompileTimeout     time.Duration `flagUsage:"specifies the compiler time limit (0 for none)" default:"10s"`
	StopOnSandboxError bool          `flagUsage:"stop the whole batch on the first sandbox error"`

	// gateway
	Trusted          bool          `flagUsage:"run programs without resource isolation (development only)"`
	SeccompConf      string        `flagUsage:"specifies seccomp filter" default:"seccomp.yaml"`
	ExtraMemoryLimit *envexec.Size `flagUsage:"specifies extra address space on top of the memory limit" default:"16m"`
	OutputLimit      *envexec.Size `flagUsage:"specifies the collected stdout / stderr limit for each execution" default:"64m"`

	// server config
	HTTPAddr      string `flagUsage:"specifies the http binding address" default:":5050"`
	MonitorAddr   string `flagUsage:"specifies the metrics binding address" default:":5052"`
	AuthToken     string `flagUsage:"bearer token auth for REST"`
	EnableDebug   bool   `flagUsage:"enable debug endpoint"`
	EnableMetrics bool   `flagUsage:"enable promethus metrics endpoint"`

	// logger config
	Release bool `flagUsage:"release level of logs"`
	Silent  bool `flagUsage:"do not print logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from flag & environment variables
func (c *Config) Load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "JC",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "JC",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	if err := cl.Load(c); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	return nil
}

// CompilerArgs splits CompilerFlags as shell words
func (c *Config) CompilerArgs() ([]string, error) {
	args, err := shlex.Split(c.CompilerFlags)
	if err != nil {
		return nil, fmt.Errorf("failed to parse compiler flags %q: %w", c.CompilerFlags, err)
	}
	return args, nil
}
