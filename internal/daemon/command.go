package daemon

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Counters tracks the tick-level outcome totals a running daemon
// reports through the "counters" command-file verb.
type Counters struct {
	Ticks     int64
	Successes int64
	Failures  int64
}

func (c *Counters) tick()    { atomic.AddInt64(&c.Ticks, 1) }
func (c *Counters) success() { atomic.AddInt64(&c.Successes, 1) }
func (c *Counters) failure() { atomic.AddInt64(&c.Failures, 1) }

// Snapshot returns a copy of the current counter values.
func (c *Counters) Snapshot() Counters {
	return Counters{
		Ticks:     atomic.LoadInt64(&c.Ticks),
		Successes: atomic.LoadInt64(&c.Successes),
		Failures:  atomic.LoadInt64(&c.Failures),
	}
}

// CommandAction identifies a verb read from a daemon's command file.
type CommandAction int

// Actions mirror spec.md §6's command-file verb set.
const (
	ActionNone CommandAction = iota
	ActionStop
	ActionRestart
	ActionCancel
	ActionPause
	ActionContinue
	ActionUptime
	ActionCounters
	ActionHelp
)

// CommandFile polls a single "<script-stem>.listen" file for a one-line
// verb, per spec.md §6 and SPEC_FULL.md §10.3: the line is read once and
// the file is deleted atomically so a verb fires exactly one time.
type CommandFile struct {
	path string
}

// NewCommandFile builds a CommandFile rooted at path.
func NewCommandFile(path string) *CommandFile {
	return &CommandFile{path: path}
}

// Poll checks for a pending command. It returns ActionNone when no file
// is present.
func (c *CommandFile) Poll() (CommandAction, string) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return ActionNone, ""
	}
	_ = os.Remove(c.path)

	line := strings.TrimSpace(string(raw))
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ActionNone, ""
	}

	var arg string
	if len(fields) > 1 {
		arg = strings.Join(fields[1:], " ")
	}

	switch strings.ToLower(fields[0]) {
	case "stop":
		return ActionStop, arg
	case "restart":
		return ActionRestart, arg
	case "cancel":
		return ActionCancel, arg
	case "pause":
		return ActionPause, arg
	case "continue":
		return ActionContinue, arg
	case "uptime":
		return ActionUptime, arg
	case "counters":
		return ActionCounters, arg
	case "help":
		return ActionHelp, arg
	default:
		log.Warnf("command file %s: unrecognized verb %q", c.path, fields[0])
		return ActionNone, ""
	}
}

// Handle logs the read-only verbs (uptime, counters, help); any other
// action is ignored and nothing is returned. started is the daemon's
// process start time; counters is its running tallies.
func Handle(action CommandAction, started time.Time, counters *Counters) {
	switch action {
	case ActionUptime:
		log.Infof("uptime: %s", time.Since(started).Round(time.Second))
	case ActionCounters:
		snap := counters.Snapshot()
		log.Infof("counters: ticks=%d successes=%d failures=%d", snap.Ticks, snap.Successes, snap.Failures)
	case ActionHelp:
		log.Info("verbs: stop restart cancel pause continue uptime counters help")
	}
}
