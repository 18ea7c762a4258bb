package env

import (
	"syscall"
	"time"

	"github.com/npuboj/judgecore/envexec"
	"golang.org/x/sys/unix"
)

// exitState collects what is known about a child after it was reaped
type exitState struct {
	wstatus        syscall.WaitStatus
	rusage         syscall.Rusage
	memory         envexec.Size // peak resident memory, zero if unknown
	timedOut       bool
	outputExceeded bool
}

// classify converts the exit state into a report. The checks are ordered
// so that the first ceiling hit decides: wall clock, cpu, memory, output
// then the crash reason.
func classify(req envexec.Request, st exitState) envexec.Report {
	r := envexec.Report{
		Status: envexec.StatusOK,
		Time:   time.Duration(st.rusage.Utime.Nano() + st.rusage.Stime.Nano()),
		Memory: st.memory,
	}

	var sig syscall.Signal
	switch {
	case st.wstatus.Exited():
		r.ExitStatus = st.wstatus.ExitStatus()
	case st.wstatus.Signaled():
		sig = st.wstatus.Signal()
		r.ExitStatus = int(sig)
		r.Error = sig.String()
	}

	switch {
	case st.timedOut:
		r.Status, r.Reason = envexec.StatusTimeout, envexec.ReasonWallClock
	case sig == unix.SIGXCPU || r.Time > req.TimeLimit:
		r.Status, r.Reason = envexec.StatusTimeout, envexec.ReasonCPU
	case r.Memory > req.MemoryLimit:
		r.Status, r.Reason = envexec.StatusResourceExceeded, envexec.ReasonMemory
	case sig == unix.SIGXFSZ || st.outputExceeded:
		r.Status, r.Reason = envexec.StatusResourceExceeded, envexec.ReasonOutput
	case sig == unix.SIGSYS:
		r.Status, r.Reason = envexec.StatusCrashed, envexec.ReasonSyscall
	case sig != 0:
		r.Status, r.Reason = envexec.StatusCrashed, envexec.ReasonSignal
	case r.ExitStatus != 0:
		r.Status, r.Reason = envexec.StatusCrashed, envexec.ReasonExitStatus
	}
	return r
}

func infrastructureFailure(err error) envexec.Report {
	return envexec.Report{
		Status: envexec.StatusInfrastructureFailure,
		Reason: envexec.ReasonSetup,
		Error:  err.Error(),
	}
}

func canceledReport(err error) envexec.Report {
	return envexec.Report{
		Status: envexec.StatusInfrastructureFailure,
		Reason: envexec.ReasonCanceled,
		Error:  err.Error(),
	}
}

// truncate returns at most max bytes of b
func truncate(b []byte, max envexec.Size) ([]byte, bool) {
	if max > 0 && int64(len(b)) > int64(max) {
		return b[:max], true
	}
	return b, false
}
