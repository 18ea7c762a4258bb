package envexec

import (
	"context"
	"time"

	"github.com/criyle/go-sandbox/runner"
)

// Size represent data size in bytes
type Size = runner.Size

// Request is the parameter to run a built artifact once inside the gateway
type Request struct {
	// Args holds command line arguments, Args[0] is the artifact path
	Args []string

	// Env specifies the environment of the process
	Env []string

	// WorkDir is the working directory of the process
	WorkDir string

	// Stdin is fed to the process standard input in full
	Stdin []byte

	// TimeLimit is applied both as CPU time and wall clock ceiling
	TimeLimit time.Duration

	// MemoryLimit is applied as address space ceiling
	MemoryLimit Size

	// OutputLimit bounds the collected size of stdout and stderr each
	OutputLimit Size
}

// Report is the structured termination report of a single execution
type Report struct {
	Status     Status
	Reason     Reason
	ExitStatus int
	Error      string // potential detailed error message

	Stdout []byte
	Stderr []byte

	Time   time.Duration // CPU time used
	Memory Size          // peak resident memory

	RunTime time.Duration // wall clock time
}

// Gateway runs a program under enforced cpu, wall clock and memory ceilings.
//
// One call is one complete child lifecycle: spawn, feed stdin, await
// termination and drain output. A non-nil error means the gateway itself
// failed and the report is meaningless.
type Gateway interface {
	Run(ctx context.Context, req Request) (Report, error)
}

// GatewayFunc adapts a function to the Gateway interface
type GatewayFunc func(ctx context.Context, req Request) (Report, error)

// Run calls f(ctx, req)
func (f GatewayFunc) Run(ctx context.Context, req Request) (Report, error) {
	return f(ctx, req)
}
