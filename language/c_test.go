package language

import (
	"slices"
	"testing"
)

func TestCCompileArgs(t *testing.T) {
	tests := []struct {
		flags []string
		want  []string
	}{
		{nil, []string{"-o", "/w/a.out", "/w/main.c"}},
		{[]string{"-O2", "-lm"}, []string{"-O2", "-lm", "-o", "/w/a.out", "/w/main.c"}},
	}
	for _, tc := range tests {
		c := C{Flags: tc.flags}
		if got := c.CompileArgs("/w/main.c", "/w/a.out"); !slices.Equal(got, tc.want) {
			t.Errorf("CompileArgs with %v = %v, want %v", tc.flags, got, tc.want)
		}
	}
	if got := len(C{}.VersionArgs()); got != 1 {
		t.Errorf("VersionArgs len = %d", got)
	}
}
