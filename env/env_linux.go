package env

import (
	"fmt"

	"github.com/npuboj/judgecore/envexec"
	"go.uber.org/zap"
)

// NewGateway creates the isolation gateway selected by the config
func NewGateway(c Config, logger *zap.Logger) (envexec.Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	env := c.Env
	if len(env) == 0 {
		env = defaultEnv
	}
	if c.Trusted {
		logger.Warn("Using trusted gateway, programs run without resource isolation")
		return &trustedGateway{env: env, logger: logger}, nil
	}

	filter, err := c.seccompFilter()
	if err != nil {
		return nil, fmt.Errorf("failed to load seccomp config: %w", err)
	}
	if len(filter) > 0 {
		logger.Info("Load seccomp filter", zap.String("path", c.SeccompConf), zap.Int("instructions", len(filter)))
	}

	extra := c.ExtraMemoryLimit
	if extra <= 0 {
		extra = defaultExtraMemoryLimit
	}
	logger.Info("Created rlimit gateway", zap.Stringer("extraMemoryLimit", extra))
	return &rlimitGateway{
		env:         env,
		extraMemory: extra,
		seccomp:     filter,
		logger:      logger,
	}, nil
}
