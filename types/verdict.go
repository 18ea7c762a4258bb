package types

import "fmt"

// Verdict is either a propagated non-success outcome code or the
// pass / fail result of comparing a successful outcome's output
type Verdict int

// Verdicts sharing the numeric space of Code for propagated values
const (
	VerdictSandboxError   = Verdict(CodeSandboxError)
	VerdictCompileError   = Verdict(CodeCompileError)
	VerdictTimeout        = Verdict(CodeTimeout)
	VerdictMemoryExceeded = Verdict(CodeMemoryExceeded)
	VerdictRuntimeError   = Verdict(CodeRuntimeError)

	VerdictPass Verdict = 10
	VerdictFail Verdict = 11
)

// VerdictFromCode propagates a non-success outcome code as verdict.
// Success has no verdict of its own and must be judged, the returned
// Verdict(0) is invalid.
func VerdictFromCode(c Code) Verdict {
	return Verdict(c)
}

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "Pass"
	case VerdictFail:
		return "Fail"
	default:
		c := Code(v)
		if c == CodeSuccess || !c.Valid() {
			return fmt.Sprintf("Verdict(%d)", int(v))
		}
		return c.String()
	}
}

// Passed reports whether the verdict is Pass
func (v Verdict) Passed() bool {
	return v == VerdictPass
}

// MarshalText encodes the verdict as its name
func (v Verdict) MarshalText() ([]byte, error) {
	c := Code(v)
	if v != VerdictPass && v != VerdictFail && (c == CodeSuccess || !c.Valid()) {
		return nil, fmt.Errorf("invalid verdict %d", int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText decodes the verdict from its name
func (v *Verdict) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Pass":
		*v = VerdictPass
		return nil
	case "Fail":
		*v = VerdictFail
		return nil
	}
	var c Code
	if err := c.UnmarshalText(b); err != nil || c == CodeSuccess {
		return fmt.Errorf("invalid verdict %q", b)
	}
	*v = Verdict(c)
	return nil
}
