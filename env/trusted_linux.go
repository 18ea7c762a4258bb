package env

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/criyle/go-sandbox/pkg/pipe"
	"github.com/npuboj/judgecore/envexec"
	"go.uber.org/zap"
)

var _ envexec.Gateway = &trustedGateway{}

// trustedGateway runs the program directly. Only the wall clock is enforced,
// cpu time and output size are checked after the fact and memory is not
// measured.
type trustedGateway struct {
	env    []string
	logger *zap.Logger
}

func (g *trustedGateway) Run(ctx context.Context, req envexec.Request) (envexec.Report, error) {
	if err := ctx.Err(); err != nil {
		return canceledReport(err), nil
	}
	if len(req.Args) == 0 {
		return infrastructureFailure(errors.New("empty args")), nil
	}
	outputLimit := req.OutputLimit
	if outputLimit == 0 {
		outputLimit = defaultOutputLimit
	}
	env := req.Env
	if len(env) == 0 {
		env = g.env
	}

	stdout, err := pipe.NewBuffer(int64(outputLimit))
	if err != nil {
		return envexec.Report{}, fmt.Errorf("gateway: prepare stdout: %w", err)
	}
	stderr, err := pipe.NewBuffer(int64(outputLimit))
	if err != nil {
		stdout.W.Close()
		return envexec.Report{}, fmt.Errorf("gateway: prepare stderr: %w", err)
	}

	cmd := exec.Command(req.Args[0], req.Args[1:]...)
	cmd.Env = env
	cmd.Dir = req.WorkDir
	cmd.Stdin = bytes.NewReader(req.Stdin)
	cmd.Stdout = stdout.W
	cmd.Stderr = stderr.W
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	sTime := time.Now()
	err = cmd.Start()
	stdout.W.Close()
	stderr.W.Close()
	if err != nil {
		<-stdout.Done
		<-stderr.Done
		g.logger.Error("trusted gateway failed to start program", zap.Strings("args", req.Args), zap.Error(err))
		return infrastructureFailure(err), nil
	}
	pid := cmd.Process.Pid

	var timedOut, canceled atomic.Bool
	timer := time.AfterFunc(req.TimeLimit, func() {
		timedOut.Store(true)
		syscall.Kill(-pid, syscall.SIGKILL)
	})
	stop := context.AfterFunc(ctx, func() {
		canceled.Store(true)
		syscall.Kill(-pid, syscall.SIGKILL)
	})
	err = cmd.Wait()
	timer.Stop()
	stop()
	fTime := time.Now()
	<-stdout.Done
	<-stderr.Done

	if canceled.Load() {
		return canceledReport(ctx.Err()), nil
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return envexec.Report{}, fmt.Errorf("gateway: wait: %w", err)
	}

	st := exitState{
		timedOut:       timedOut.Load(),
		outputExceeded: int64(stdout.Buffer.Len()) > stdout.Max || int64(stderr.Buffer.Len()) > stderr.Max,
	}
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
		st.wstatus = ws
	}
	// max rss is left out, it includes this process's own rss
	if ru, ok := cmd.ProcessState.SysUsage().(*syscall.Rusage); ok {
		st.rusage = syscall.Rusage{Utime: ru.Utime, Stime: ru.Stime}
	}
	rt := classify(req, st)
	rt.Stdout, _ = truncate(stdout.Buffer.Bytes(), outputLimit)
	rt.Stderr, _ = truncate(stderr.Buffer.Bytes(), outputLimit)
	rt.RunTime = fTime.Sub(sTime)
	return rt, nil
}
