package env

import "github.com/npuboj/judgecore/envexec"

// Config defines parameters to create the isolation gateway
type Config struct {
	// Trusted skips resource isolation, only wall clock is enforced
	Trusted bool

	// SeccompConf is the yaml seccomp policy applied to each child,
	// missing file means no filter
	SeccompConf string

	// ExtraMemoryLimit is added on top of the memory ceiling for the
	// address space rlimit, peak rss is still checked against the ceiling
	ExtraMemoryLimit envexec.Size

	// Env is the environment of each child when the request has none
	Env []string
}

const defaultExtraMemoryLimit = 16 << 20

var defaultEnv = []string{"PATH=/usr/local/bin:/usr/bin:/bin"}
