package runner

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/npuboj/judgecore/env"
	"github.com/npuboj/judgecore/types"
	"go.uber.org/zap/zaptest"
)

const (
	doubleSource = `#include <stdio.h>
int main(void) {
	long long n;
	if (scanf("%lld", &n) != 1) return 1;
	printf("%lld\n", n * 2);
	return 0;
}
`
	loopSource = `int main(void) { volatile int x = 0; for (;;) x++; }
`
	memorySource = `#include <stdlib.h>
#include <string.h>
int main(void) {
	for (;;) {
		char *volatile p = malloc(1 << 20);
		memset(p, 1, 1 << 20);
	}
}
`
	crashSource = `int main(void) { return 3; }
`
	syntaxErrorSource = `int main(void) { return 0 }
`
)

// newGCCCompiler builds a C strategy with the host gcc on the rlimit gateway
func newGCCCompiler(t *testing.T) *CCompiler {
	t.Helper()
	gcc, err := exec.LookPath("gcc")
	if err != nil {
		t.Skip("gcc not installed")
	}
	logger := zaptest.NewLogger(t)
	gw, err := env.NewGateway(env.Config{}, logger)
	if err != nil {
		t.Fatalf("NewGateway: %v", err)
	}
	c, err := NewCCompiler(t.TempDir(), gw, WithCompiler(gcc), WithLogger(logger), WithCompilerFlags([]string{"-std=c11"}))
	if err != nil {
		t.Fatalf("NewCCompiler: %v", err)
	}
	return c
}

func TestGCCJudge(t *testing.T) {
	c := newGCCCompiler(t)
	limit := types.Limitation{Time: 1, Memory: 256}
	in := inputsOf("3", "10")

	v, err := c.CompileAndJudge(context.Background(), doubleSource, in, inputsOf("6", "20"), limit)
	if err != nil {
		t.Fatal(err)
	}
	if want := []types.Verdict{types.VerdictPass, types.VerdictPass}; !equalVerdicts(v, want) {
		t.Errorf("verdicts = %v, want %v", v, want)
	}

	v, err = c.CompileAndJudge(context.Background(), doubleSource, in, inputsOf("6", "21"), limit)
	if err != nil {
		t.Fatal(err)
	}
	if want := []types.Verdict{types.VerdictPass, types.VerdictFail}; !equalVerdicts(v, want) {
		t.Errorf("verdicts = %v, want %v", v, want)
	}
}

func TestGCCCompileError(t *testing.T) {
	c := newGCCCompiler(t)
	rt := c.CompileAndRun(context.Background(), syntaxErrorSource, inputsOf("1", "2"), types.Limitation{Time: 1, Memory: 256})
	if len(rt) != 1 || rt[0].Code != types.CodeCompileError {
		t.Fatalf("got %v, want single CompileError", codesOf(rt))
	}
	if len(rt[0].Stderr) == 0 {
		t.Error("empty diagnostic")
	}
}

func TestGCCLimits(t *testing.T) {
	c := newGCCCompiler(t)
	limit := types.Limitation{Time: 1, Memory: 256}

	tests := []struct {
		name string
		src  string
		want []types.Code
	}{
		{"timeout", loopSource, []types.Code{types.CodeTimeout}},
		// a crash after the allocation failed is a runtime error when
		// the peak rss stays under the ceiling
		{"memory", memorySource, []types.Code{types.CodeMemoryExceeded}},
		{"exit status", crashSource, []types.Code{types.CodeRuntimeError}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start := time.Now()
			rt := c.CompileAndRun(context.Background(), tc.src, inputsOf(""), limit)
			if got := codesOf(rt); !equalCodes(got, tc.want) {
				t.Fatalf("codes = %v, want %v (%v)", got, tc.want, rt)
			}
			if d := time.Since(start); d > 10*time.Second {
				t.Errorf("took %v", d)
			}
		})
	}
}

func TestGCCIdempotent(t *testing.T) {
	c := newGCCCompiler(t)
	limit := types.Limitation{Time: 1, Memory: 256}
	in := inputsOf("1", "-7", "x")
	a := c.CompileAndRun(context.Background(), doubleSource, in, limit)
	b := c.CompileAndRun(context.Background(), doubleSource, in, limit)
	want := []types.Code{types.CodeSuccess, types.CodeSuccess, types.CodeRuntimeError}
	if !equalCodes(codesOf(a), want) || !equalCodes(codesOf(b), want) {
		t.Fatalf("codes = %v and %v, want %v", codesOf(a), codesOf(b), want)
	}
	for i := range a {
		if string(a[i].Stdout) != string(b[i].Stdout) {
			t.Errorf("stdout %d differs: %q vs %q", i, a[i].Stdout, b[i].Stdout)
		}
	}
}
