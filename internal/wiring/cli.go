package wiring

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// CLIConfig is the user-visible configuration shared by all three
// binaries, per spec.md §6's CLI surface: a positional project name
// plus --onetime/--nowait/--notransfer flags (also honored via the
// udp_<script_stem> environment variable).
type CLIConfig struct {
	Project string

	ConfDir  string
	LocalDir string

	OneTime    bool
	NoWait     bool
	NoTransfer bool

	LogLevel string
	LogJSON  bool
}

// Bind registers flags, following the teacher's server/config.go
// Bind(*pflag.FlagSet) convention.
func (c *CLIConfig) Bind(flags *pflag.FlagSet) {
	flags.StringVar(&c.ConfDir, "confDir", "../conf", "directory containing init/bootstrap/connect ini files")
	flags.StringVar(&c.LocalDir, "localDir", "../local", "directory containing per-project .project and .tables files")
	flags.BoolVar(&c.OneTime, "onetime", false, "run one iteration and exit")
	flags.BoolVar(&c.NoWait, "nowait", false, "run once immediately, then follow the configured schedule")
	flags.BoolVar(&c.NoTransfer, "notransfer", false, "skip all object-store uploads; local test mode")
	flags.StringVar(&c.LogLevel, "logLevel", "info", "structured log level")
	flags.BoolVar(&c.LogJSON, "logJSON", false, "emit logs as JSON instead of text")
}

// Preflight validates the parsed configuration, following the teacher's
// server/config.go Preflight() convention.
func (c *CLIConfig) Preflight() error {
	if c.Project == "" {
		return errors.New("a project name positional argument is required")
	}
	if c.ConfDir == "" {
		return errors.New("confDir unset")
	}
	if c.LocalDir == "" {
		return errors.New("localDir unset")
	}
	return nil
}
