package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadProblem(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "2.out"), []byte("20\n"), 0644); err != nil {
		t.Fatal(err)
	}
	problem := `time: 1
memory: 256
cases:
  - in: "3\n"
    out: "6\n"
  - in: "10\n"
    outFile: 2.out
`
	p := filepath.Join(dir, "problem.yaml")
	if err := os.WriteFile(p, []byte(problem), 0644); err != nil {
		t.Fatal(err)
	}

	pb, err := readProblem(p)
	if err != nil {
		t.Fatalf("readProblem: %v", err)
	}
	if pb.Time != 1 || pb.Memory != 256 || len(pb.Cases) != 2 {
		t.Fatalf("problem = %+v", pb)
	}
	inputs, answers, err := pb.load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(inputs[0]) != "3\n" || string(inputs[1]) != "10\n" {
		t.Errorf("inputs = %q", inputs)
	}
	if string(answers[0]) != "6\n" || string(answers[1]) != "20\n" {
		t.Errorf("answers = %q", answers)
	}

	if _, _, err := (&Problem{Cases: []Case{{InFile: "missing"}}}).load(dir); err == nil {
		t.Error("missing case file loaded")
	}
}

func TestReadProblemInvalidLimit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "problem.yaml")
	if err := os.WriteFile(p, []byte("time: 0\nmemory: 256\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readProblem(p); err == nil {
		t.Fatal("invalid limit accepted")
	}
}
