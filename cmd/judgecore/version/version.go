// Package version reports the build version of the judge server
package version

import "runtime/debug"

// Version is the module version, followed by the vcs revision when known
var Version = "unknown"

func init() {
	inf, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	Version = inf.Main.Version
	for _, s := range inf.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			rev := s.Value
			if len(rev) > 12 {
				rev = rev[:12]
			}
			Version += " (" + rev + ")"
		}
	}
}
