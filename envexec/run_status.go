package envexec

// Status defines the final status of a gateway execution
type Status int

// Defines gateway final status
const (
	// not initialized status (as error)
	StatusInvalid Status = iota

	StatusOK
	StatusTimeout
	StatusResourceExceeded
	StatusCrashed

	// pipe creation failed, fork failed, supervisor killed, etc
	StatusInfrastructureFailure
)

var statusToString = []string{
	"Invalid",
	"OK",
	"Timeout",
	"Resource Exceeded",
	"Crashed",
	"Infrastructure Failure",
}

func (s Status) String() string {
	si := int(s)
	if si < 0 || si >= len(statusToString) {
		return statusToString[0] // invalid
	}
	return statusToString[si]
}

// Reason refines the final status
type Reason int

// Defines termination reasons
const (
	ReasonNone Reason = iota

	// resource related
	ReasonMemory
	ReasonOutput
	ReasonCPU
	ReasonWallClock

	// crash related
	ReasonExitStatus
	ReasonSignal
	ReasonSyscall

	// infrastructure related
	ReasonSetup
	ReasonCanceled
)

var reasonToString = []string{
	"",
	"memory",
	"output",
	"cpu",
	"wall clock",
	"exit status",
	"signal",
	"syscall",
	"setup",
	"canceled",
}

func (r Reason) String() string {
	ri := int(r)
	if ri < 0 || ri >= len(reasonToString) {
		return reasonToString[0]
	}
	return reasonToString[ri]
}
