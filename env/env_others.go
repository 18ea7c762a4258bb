//go:build !linux

package env

import (
	"errors"
	"runtime"

	"github.com/npuboj/judgecore/envexec"
	"go.uber.org/zap"
)

// NewGateway is not supported on this platform
func NewGateway(c Config, logger *zap.Logger) (envexec.Gateway, error) {
	return nil, errors.New("gateway is not supported on this platform: " + runtime.GOOS)
}
