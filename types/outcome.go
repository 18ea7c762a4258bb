package types

import (
	"fmt"
	"time"

	"github.com/npuboj/judgecore/envexec"
)

// Code defines the classification of a single execution
type Code int

// Outcome codes. The numeric values are part of the public contract.
const (
	CodeSandboxError   Code = -2 // isolation infrastructure failed
	CodeCompileError   Code = -1 // source did not compile
	CodeSuccess        Code = 0  // exited normally
	CodeTimeout        Code = 1  // cpu or wall clock ceiling reached
	CodeMemoryExceeded Code = 2  // memory ceiling reached
	CodeRuntimeError   Code = 3  // crashed or nonzero exit status
)

const codeOffset = 2

var codeToString = []string{
	"Sandbox Error",
	"Compile Error",
	"Success",
	"Timeout",
	"Memory Exceeded",
	"Runtime Error",
}

func (c Code) String() string {
	i := int(c) + codeOffset
	if i < 0 || i >= len(codeToString) {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeToString[i]
}

// Valid reports whether c is one of the defined codes
func (c Code) Valid() bool {
	i := int(c) + codeOffset
	return i >= 0 && i < len(codeToString)
}

// MarshalText encodes the code as its name
func (c Code) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid outcome code %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes the code from its name
func (c *Code) UnmarshalText(b []byte) error {
	for i, s := range codeToString {
		if s == string(b) {
			*c = Code(i - codeOffset)
			return nil
		}
	}
	return fmt.Errorf("invalid outcome code %q", b)
}

// Outcome is the result of running the compiled artifact once against
// one input, before judging
type Outcome struct {
	Code   Code   `json:"code"`
	Stdout []byte `json:"stdout,omitempty"`
	Stderr []byte `json:"stderr,omitempty"`

	// detail stats, informational only
	ExitStatus int           `json:"exitStatus"`
	Error      string        `json:"error,omitempty"`
	Time       time.Duration `json:"time"`
	Memory     envexec.Size  `json:"memory"`
}

// CompileErrorOutcome creates the single outcome reported on compile failure
func CompileErrorOutcome(msg string) Outcome {
	return Outcome{Code: CodeCompileError, Stderr: []byte(msg)}
}

// SandboxErrorOutcome creates an outcome blaming the infrastructure
func SandboxErrorOutcome(err error) Outcome {
	msg := err.Error()
	return Outcome{Code: CodeSandboxError, Stderr: []byte(msg), Error: msg}
}

func (o Outcome) String() string {
	return fmt.Sprintf("Outcome[%v,exit=%d,time=%v,memory=%v,stdout=%dB,stderr=%dB]",
		o.Code, o.ExitStatus, o.Time, o.Memory, len(o.Stdout), len(o.Stderr))
}
