// Package diff provides functions to normalize program output and
// compare it with the expected output.
//
// Lines are split at '\n', trailing '\r', '\n', ' ' and '\t' are ignored
// on every line and a single trailing empty line (final newline) is dropped.
// Leading white spaces and interior empty lines are significant.
package diff

import (
	"bytes"
	"fmt"
	"strings"
)

const trailingSpace = "\r\n \t"

// Normalize splits b into right trimmed lines
func Normalize(b []byte) []string {
	raw := bytes.Split(b, []byte{'\n'})
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, string(bytes.TrimRight(l, trailingSpace)))
	}
	// tolerate final newline difference
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// Equal reports whether expected and actual are the same after normalization
func Equal(expected, actual []byte) bool {
	return Compare(expected, actual) == nil
}

// Compare compares actual with expected.
// if they are the same after normalization, no error is returned,
// otherwise the error describes the first different line
func Compare(expected, actual []byte) error {
	exp := Normalize(expected)
	act := Normalize(actual)

	for i := 0; i < len(exp) && i < len(act); i++ {
		if exp[i] != act[i] {
			return newErr(i+1, exp[i], act[i])
		}
	}
	switch {
	case len(exp) > len(act):
		return fmt.Errorf("actual have fewer lines: expected %d, actual %d", len(exp), len(act))
	case len(exp) < len(act):
		return fmt.Errorf("actual have more content at line %d: %v", len(exp)+1, act[len(exp)])
	}
	return nil
}

// Join joins normalized lines back to bytes terminated by a final newline,
// so that Normalize(Join(lines)) equals lines
func Join(lines []string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func newErr(line int, exp, act string) error {
	return fmt.Errorf("At line %d,\nexpected: %v\nactual: %v", line, exp, act)
}
