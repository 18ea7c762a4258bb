// Command judge compiles a single C source and judges it against the test
// cases of a yaml problem file, one verdict per line.
//
//	judge -src main.c -problem problem.yaml
//
// The exit status is 1 when any case does not pass.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/google/shlex"
	"github.com/npuboj/judgecore/env"
	"github.com/npuboj/judgecore/runner"
	"github.com/npuboj/judgecore/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	srcPath     = flag.String("src", "", "C source file")
	problemPath = flag.String("problem", "problem.yaml", "problem file")
	compiler    = flag.String("compiler", runner.DefaultCCompiler, "C compiler")
	ccFlags     = flag.String("flags", "-O2", "extra compiler flags, split as shell words")
	workDir     = flag.String("workdir", "", "working directory (temp dir by default)")
	trusted     = flag.Bool("trusted", false, "run without resource isolation")
	seccompConf = flag.String("seccomp", "", "seccomp policy file")
	runOnly     = flag.Bool("run", false, "print outcomes instead of judging")
	debug       = flag.Bool("debug", false, "print debug logs")
)

// Problem defines the limits and test cases of a problem file. Case data
// is given inline or as a file relative to the problem file.
type Problem struct {
	Time   int    `yaml:"time"`
	Memory int    `yaml:"memory"`
	Cases  []Case `yaml:"cases"`
}

// Case defines a single test case
type Case struct {
	In      string `yaml:"in"`
	Out     string `yaml:"out"`
	InFile  string `yaml:"inFile"`
	OutFile string `yaml:"outFile"`
}

func main() {
	flag.Parse()
	logger := newLogger(*debug)
	defer logger.Sync()

	ok, err := run(logger)
	if err != nil {
		logger.Error("judge failed", zap.Error(err))
		os.Exit(2)
	}
	if !ok {
		os.Exit(1)
	}
}

func run(logger *zap.Logger) (bool, error) {
	if *srcPath == "" {
		return false, fmt.Errorf("-src is required")
	}
	src, err := os.ReadFile(*srcPath)
	if err != nil {
		return false, err
	}
	p, err := readProblem(*problemPath)
	if err != nil {
		return false, err
	}
	inputs, answers, err := p.load(filepath.Dir(*problemPath))
	if err != nil {
		return false, err
	}
	flags, err := shlex.Split(*ccFlags)
	if err != nil {
		return false, fmt.Errorf("failed to parse compiler flags: %w", err)
	}

	dir := *workDir
	if dir == "" {
		if dir, err = os.MkdirTemp("", "judge"); err != nil {
			return false, err
		}
		defer os.RemoveAll(dir)
	}

	gw, err := env.NewGateway(env.Config{Trusted: *trusted, SeccompConf: *seccompConf}, logger)
	if err != nil {
		return false, err
	}
	c, err := runner.NewCCompiler(dir, gw,
		runner.WithCompiler(*compiler),
		runner.WithCompilerFlags(flags),
		runner.WithLogger(logger),
	)
	if err != nil {
		return false, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	limit := types.Limitation{Time: p.Time, Memory: p.Memory}

	if *runOnly {
		outcomes := c.CompileAndRun(ctx, string(src), inputs, limit)
		allOK := true
		for i, o := range outcomes {
			fmt.Printf("case %d: %v\n", i+1, o)
			fmt.Printf("%s", o.Stdout)
			if len(o.Stderr) > 0 {
				fmt.Fprintf(os.Stderr, "%s\n", o.Stderr)
			}
			allOK = allOK && o.Code == types.CodeSuccess
		}
		return allOK, nil
	}

	verdicts, err := c.CompileAndJudge(ctx, string(src), inputs, answers, limit)
	if err != nil {
		return false, err
	}
	allPass := true
	for i, v := range verdicts {
		fmt.Printf("case %d: %v\n", i+1, v)
		allPass = allPass && v.Passed()
	}
	return allPass, nil
}

func readProblem(p string) (*Problem, error) {
	var pb Problem
	d, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(d, &pb); err != nil {
		return nil, fmt.Errorf("failed to parse problem %s: %w", p, err)
	}
	if err := (types.Limitation{Time: pb.Time, Memory: pb.Memory}).Validate(); err != nil {
		return nil, fmt.Errorf("problem %s: %w", p, err)
	}
	return &pb, nil
}

// load reads the case data, file paths are relative to dir
func (p *Problem) load(dir string) (inputs, answers [][]byte, err error) {
	read := func(inline, file string) ([]byte, error) {
		if file == "" {
			return []byte(inline), nil
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(dir, file)
		}
		return os.ReadFile(file)
	}
	for i, c := range p.Cases {
		in, err := read(c.In, c.InFile)
		if err != nil {
			return nil, nil, fmt.Errorf("case %d input: %w", i+1, err)
		}
		out, err := read(c.Out, c.OutFile)
		if err != nil {
			return nil, nil, fmt.Errorf("case %d output: %w", i+1, err)
		}
		inputs = append(inputs, in)
		answers = append(answers, out)
	}
	return inputs, answers, nil
}

func newLogger(debug bool) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !debug {
		config.Level.SetLevel(zap.WarnLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
