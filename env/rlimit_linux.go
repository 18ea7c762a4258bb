package env

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/criyle/go-sandbox/pkg/forkexec"
	"github.com/criyle/go-sandbox/pkg/memfd"
	"github.com/criyle/go-sandbox/pkg/pipe"
	"github.com/criyle/go-sandbox/pkg/rlimit"
	"github.com/criyle/go-sandbox/pkg/seccomp"
	"github.com/npuboj/judgecore/envexec"
	"github.com/prometheus/procfs"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	memfdName          = "stdin"
	defaultOutputLimit = 64 << 20
)

var _ envexec.Gateway = &rlimitGateway{}

// rlimitGateway runs each request as a fresh traced child under rlimits
type rlimitGateway struct {
	env         []string
	extraMemory envexec.Size
	seccomp     seccomp.Filter
	logger      *zap.Logger
}

func (g *rlimitGateway) Run(ctx context.Context, req envexec.Request) (envexec.Report, error) {
	if err := ctx.Err(); err != nil {
		return canceledReport(err), nil
	}
	outputLimit := req.OutputLimit
	if outputLimit == 0 {
		outputLimit = defaultOutputLimit
	}
	env := req.Env
	if len(env) == 0 {
		env = g.env
	}

	stdin, err := readerToFile(bytes.NewReader(req.Stdin))
	if err != nil {
		return envexec.Report{}, fmt.Errorf("gateway: prepare stdin: %w", err)
	}
	defer stdin.Close()

	stdout, err := pipe.NewBuffer(int64(outputLimit))
	if err != nil {
		return envexec.Report{}, fmt.Errorf("gateway: prepare stdout: %w", err)
	}
	stderr, err := pipe.NewBuffer(int64(outputLimit))
	if err != nil {
		stdout.W.Close()
		return envexec.Report{}, fmt.Errorf("gateway: prepare stderr: %w", err)
	}

	cpu := uint64((req.TimeLimit + time.Second - 1) / time.Second)
	rLimits := rlimit.RLimits{
		CPU:          cpu,
		CPUHard:      cpu + 1,
		AddressSpace: (req.MemoryLimit + g.extraMemory).Byte(),
		FileSize:     outputLimit.Byte(),
		DisableCore:  true,
	}
	ch := &forkexec.Runner{
		Args:       req.Args,
		Env:        env,
		Files:      []uintptr{stdin.Fd(), stdout.W.Fd(), stderr.W.Fd()},
		WorkDir:    req.WorkDir,
		RLimits:    rLimits.PrepareRLimit(),
		NoNewPrivs: true,
		Ptrace:     true,
	}
	if len(g.seccomp) > 0 {
		ch.Seccomp = g.seccomp.SockFprog()
	}

	// ptrace requests must come from the thread that started the tracee
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	sTime := time.Now()
	pid, err := ch.Start()

	// parent does not need the write ends, closing them lets Done fire
	stdout.W.Close()
	stderr.W.Close()
	if err != nil {
		<-stdout.Done
		<-stderr.Done
		g.logger.Error("gateway failed to start program", zap.Strings("args", req.Args), zap.Error(err))
		return infrastructureFailure(err), nil
	}

	var timedOut, canceled atomic.Bool
	timer := time.AfterFunc(req.TimeLimit, func() {
		timedOut.Store(true)
		killAll(pid)
	})
	stop := context.AfterFunc(ctx, func() {
		canceled.Store(true)
		killAll(pid)
	})

	var st exitState
	err = g.trace(pid, &st)
	timer.Stop()
	stop()
	fTime := time.Now()
	if err != nil {
		killAll(pid)
		collectZombie(pid)
		<-stdout.Done
		<-stderr.Done
		return envexec.Report{}, fmt.Errorf("gateway: trace: %w", err)
	}
	<-stdout.Done
	<-stderr.Done

	if canceled.Load() {
		return canceledReport(ctx.Err()), nil
	}

	var outExceeded, errExceeded bool
	st.timedOut = timedOut.Load()
	st.outputExceeded = int64(stdout.Buffer.Len()) > stdout.Max || int64(stderr.Buffer.Len()) > stderr.Max
	rt := classify(req, st)
	rt.Stdout, outExceeded = truncate(stdout.Buffer.Bytes(), outputLimit)
	rt.Stderr, errExceeded = truncate(stderr.Buffer.Bytes(), outputLimit)
	rt.RunTime = fTime.Sub(sTime)

	if ce := g.logger.Check(zap.DebugLevel, "gateway finished"); ce != nil {
		ce.Write(
			zap.Int("pid", pid),
			zap.Stringer("status", rt.Status),
			zap.Stringer("reason", rt.Reason),
			zap.Duration("time", rt.Time),
			zap.Duration("runTime", rt.RunTime),
			zap.Stringer("memory", rt.Memory),
			zap.Bool("stdoutTruncated", outExceeded),
			zap.Bool("stderrTruncated", errExceeded),
		)
	}
	return rt, nil
}

// trace resumes the traced child until it is reaped. ru_maxrss carries the
// rss of this process across execve, so the peak memory is read from the
// child's own address space at its exit stop.
func (g *rlimitGateway) trace(pid int, st *exitState) error {
	attached := false
	for {
		var (
			wstatus syscall.WaitStatus
			rusage  syscall.Rusage
		)
		_, err := syscall.Wait4(pid, &wstatus, syscall.WALL, &rusage)
		if err == syscall.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if !wstatus.Stopped() {
			st.wstatus, st.rusage = wstatus, rusage
			return nil
		}

		sig := wstatus.StopSignal()
		switch {
		case !attached:
			// first stop is either before seccomp or right after execve
			attached = true
			if err := unix.PtraceSetOptions(pid, unix.PTRACE_O_TRACEEXIT|unix.PTRACE_O_EXITKILL); err != nil && err != unix.ESRCH {
				return fmt.Errorf("set ptrace options: %w", err)
			}
			sig = 0

		case sig == syscall.SIGTRAP && wstatus.TrapCause() == unix.PTRACE_EVENT_EXIT:
			if m, err := peakMemory(pid); err == nil {
				st.memory = m
			} else {
				g.logger.Warn("failed to read peak memory", zap.Int("pid", pid), zap.Error(err))
			}
			sig = 0

		case sig == syscall.SIGTRAP, sig == syscall.SIGSTOP:
			// execve trap and stops are not delivered
			sig = 0
		}
		if err := unix.PtraceCont(pid, int(sig)); err != nil && err != unix.ESRCH {
			return fmt.Errorf("ptrace cont: %w", err)
		}
	}
}

// peakMemory returns the resident set high water mark of a live process
func peakMemory(pid int) (envexec.Size, error) {
	p, err := procfs.NewProc(pid)
	if err != nil {
		return 0, err
	}
	status, err := p.NewStatus()
	if err != nil {
		return 0, err
	}
	return envexec.Size(status.VmHWM), nil
}

var enableMemFd atomic.Int32

func readerToFile(reader io.Reader) (*os.File, error) {
	if enableMemFd.Load() == 0 {
		f, err := memfd.DupToMemfd(memfdName, reader)
		if err == nil {
			return f, err
		}
		enableMemFd.Store(1)
	}
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	go func() {
		defer w.Close()
		w.ReadFrom(reader)
	}()
	return r, nil
}

func killAll(pid int) {
	unix.Kill(pid, unix.SIGKILL)
}

// collect died child processes
func collectZombie(pid int) {
	var wstatus syscall.WaitStatus
	for {
		if _, err := syscall.Wait4(pid, &wstatus, syscall.WNOHANG, nil); err != syscall.EINTR {
			break
		}
	}
}
