package env

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"

	"github.com/criyle/go-sandbox/pkg/seccomp"
	seccompbpf "github.com/elastic/go-seccomp-bpf"
	"github.com/elastic/go-ucfg/yaml"
	"golang.org/x/net/bpf"
)

// seccompFilter assembles the policy file named by SeccompConf. No path or
// a missing file means no filter.
func (c Config) seccompFilter() (seccomp.Filter, error) {
	if c.SeccompConf == "" {
		return nil, nil
	}
	if _, err := os.Stat(c.SeccompConf); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	conf, err := yaml.NewConfigWithFile(c.SeccompConf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.SeccompConf, err)
	}

	var policy seccompbpf.Policy
	if err := conf.Unpack(&policy); err != nil {
		return nil, fmt.Errorf("parse policy %s: %w", c.SeccompConf, err)
	}
	prog, err := policy.Assemble()
	if err != nil {
		return nil, fmt.Errorf("assemble policy %s: %w", c.SeccompConf, err)
	}
	raw, err := bpf.Assemble(prog)
	if err != nil {
		return nil, fmt.Errorf("assemble bpf %s: %w", c.SeccompConf, err)
	}

	filter := make(seccomp.Filter, len(raw))
	for i, ins := range raw {
		filter[i] = syscall.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	return filter, nil
}
