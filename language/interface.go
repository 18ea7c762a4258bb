// Package language defines the compile strategy contract and the
// per-language toolchain descriptions used by concrete strategies.
package language

import (
	"context"
	"errors"

	"github.com/npuboj/judgecore/types"
)

// ErrLengthMismatch is returned by CompileAndJudge when the number of
// answers differs from the number of inputs
var ErrLengthMismatch = errors.New("inputs and answers length mismatch")

// Strategy compiles one source and runs the artifact against a batch of
// inputs. Expected failures (compile error, timeout, crash, infrastructure
// failure) are reported as data, never as error or panic.
type Strategy interface {
	// CompileAndRun returns a single CompileError outcome when the source
	// does not compile, otherwise one outcome per input in input order
	CompileAndRun(ctx context.Context, src string, inputs [][]byte, limit types.Limitation) []types.Outcome

	// CompileAndJudge runs as CompileAndRun and judges each successful
	// outcome against the answer with the same index
	CompileAndJudge(ctx context.Context, src string, inputs, answers [][]byte, limit types.Limitation) ([]types.Verdict, error)
}

// Toolchain describes how to compile a program in one language
type Toolchain interface {
	// Name is the language name for logs
	Name() string

	// SourceFileName is the file name the source is staged at
	SourceFileName() string

	// ArtifactName is the file name of the compiled executable
	ArtifactName() string

	// VersionArgs are the compiler arguments used to probe the compiler
	VersionArgs() []string

	// CompileArgs are the compiler arguments building artifact from src
	CompileArgs(src, artifact string) []string
}
