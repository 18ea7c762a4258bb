package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/npuboj/judgecore/envexec"
	"github.com/npuboj/judgecore/language"
	"github.com/npuboj/judgecore/types"
	"go.uber.org/zap/zaptest"
)

func equalVerdicts(a, b []types.Verdict) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestJudge(t *testing.T) {
	ok := func(out string) types.Outcome { return types.Outcome{Code: types.CodeSuccess, Stdout: []byte(out)} }
	tests := []struct {
		name     string
		outcomes []types.Outcome
		answers  []string
		want     []types.Verdict
	}{
		{
			"pass and fail",
			[]types.Outcome{ok("6\n"), ok("20\n")},
			[]string{"6", "21"},
			[]types.Verdict{types.VerdictPass, types.VerdictFail},
		},
		{
			"trailing whitespace",
			[]types.Outcome{ok("5 \n6\t\n")},
			[]string{"5\n6\n"},
			[]types.Verdict{types.VerdictPass},
		},
		{
			"propagated",
			[]types.Outcome{{Code: types.CodeTimeout}, {Code: types.CodeMemoryExceeded}, {Code: types.CodeRuntimeError}, {Code: types.CodeSandboxError}},
			[]string{"", "", "", ""},
			[]types.Verdict{types.VerdictTimeout, types.VerdictMemoryExceeded, types.VerdictRuntimeError, types.VerdictSandboxError},
		},
		{
			"compile error",
			[]types.Outcome{types.CompileErrorOutcome("error")},
			[]string{"1", "2"},
			[]types.Verdict{types.VerdictCompileError},
		},
		{
			"collapsed",
			[]types.Outcome{types.SandboxErrorOutcome(errors.New("x"))},
			[]string{"1", "2"},
			[]types.Verdict{types.VerdictSandboxError},
		},
		{
			"empty",
			nil,
			nil,
			[]types.Verdict{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := judge(tc.outcomes, inputsOf(tc.answers...), zaptest.NewLogger(t))
			if !equalVerdicts(got, tc.want) {
				t.Fatalf("judge = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCompileAndJudge(t *testing.T) {
	// doubles the integer read from stdin
	gw := func(ctx context.Context, req envexec.Request) (envexec.Report, error) {
		out := map[string]string{"3": "6\n", "10": "20\n"}[string(req.Stdin)]
		return envexec.Report{Status: envexec.StatusOK, Stdout: []byte(out)}, nil
	}
	c := newTestCompiler(t, okCompiler, gw)

	in := inputsOf("3", "10")
	v, err := c.CompileAndJudge(context.Background(), "", in, inputsOf("6", "20"), testLimit)
	if err != nil {
		t.Fatal(err)
	}
	if want := []types.Verdict{types.VerdictPass, types.VerdictPass}; !equalVerdicts(v, want) {
		t.Errorf("verdicts = %v, want %v", v, want)
	}

	v, err = c.CompileAndJudge(context.Background(), "", in, inputsOf("6", "21"), testLimit)
	if err != nil {
		t.Fatal(err)
	}
	if want := []types.Verdict{types.VerdictPass, types.VerdictFail}; !equalVerdicts(v, want) {
		t.Errorf("verdicts = %v, want %v", v, want)
	}

	if _, err := c.CompileAndJudge(context.Background(), "", in, inputsOf("6"), testLimit); !errors.Is(err, language.ErrLengthMismatch) {
		t.Errorf("length mismatch error = %v", err)
	}

	e := newTestCompiler(t, errorCompiler, gw)
	v, err = e.CompileAndJudge(context.Background(), "", in, inputsOf("6", "20"), testLimit)
	if err != nil {
		t.Fatal(err)
	}
	if want := []types.Verdict{types.VerdictCompileError}; !equalVerdicts(v, want) {
		t.Errorf("verdicts = %v, want %v", v, want)
	}
}
