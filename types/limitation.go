package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/npuboj/judgecore/envexec"
)

// ErrInvalidLimitation is returned when a limitation field is not positive
var ErrInvalidLimitation = errors.New("invalid limitation")

// Limitation defines the resource ceilings applied to every execution
// of a single compile-and-run call
type Limitation struct {
	Time   int `json:"time" yaml:"time"`     // in seconds
	Memory int `json:"memory" yaml:"memory"` // in MB
}

// Validate checks both ceilings are at least 1
func (l Limitation) Validate() error {
	if l.Time < 1 {
		return fmt.Errorf("%w: time %d < 1s", ErrInvalidLimitation, l.Time)
	}
	if l.Memory < 1 {
		return fmt.Errorf("%w: memory %d < 1MB", ErrInvalidLimitation, l.Memory)
	}
	return nil
}

// TimeLimit returns the time ceiling as duration
func (l Limitation) TimeLimit() time.Duration {
	return time.Duration(l.Time) * time.Second
}

// MemoryLimit returns the memory ceiling in bytes
func (l Limitation) MemoryLimit() envexec.Size {
	return envexec.Size(l.Memory) << 20
}

func (l Limitation) String() string {
	return fmt.Sprintf("Limitation[Time=%ds,Memory=%dMB]", l.Time, l.Memory)
}
