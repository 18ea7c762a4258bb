package language

var _ Toolchain = C{}

// C compiles C sources with a gcc compatible driver:
// cc [flags...] -o <artifact> <src>
type C struct {
	Flags []string
}

func (C) Name() string { return "c" }

func (C) SourceFileName() string { return "main.c" }

func (C) ArtifactName() string { return "a.out" }

func (C) VersionArgs() []string { return []string{"--version"} }

func (c C) CompileArgs(src, artifact string) []string {
	args := make([]string, 0, len(c.Flags)+3)
	args = append(args, c.Flags...)
	return append(args, "-o", artifact, src)
}
