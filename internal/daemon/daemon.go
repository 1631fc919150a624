// Package daemon provides the generic run loop shared by the capture,
// archive, and stage binaries, grounded in dev/src/daemon.py's
// Daemon.run(): setup once, then either a single one-time pass, an
// immediate no-wait pass followed by the regular schedule, or a pure
// schedule-driven loop. Cancellation threads through internal/util/stopper,
// the teacher's *stopper.Context pattern.
package daemon

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nymics/udpcdc/internal/util/stopper"
)

// Runnable is the application-specific code a binary's main.go supplies
// to Run. Setup runs once before the schedule loop begins; Main runs on
// every scheduled tick; Cleanup runs once on exit.
type Runnable interface {
	Setup(sc *stopper.Context) error
	Start(sc *stopper.Context) error
	Main(sc *stopper.Context) error
	Cleanup()
}

// Daemon drives a Runnable through dev/src/daemon.py's lifecycle.
type Daemon struct {
	Layout   Layout
	Options  *Options
	Schedule *Schedule
	Commands *CommandFile

	started  time.Time
	counters Counters
	paused   bool
}

// New builds a Daemon. commandFilePath may be "" to disable the
// command-file listener.
func New(layout Layout, opts *Options, schedule *Schedule, commandFilePath string) *Daemon {
	d := &Daemon{Layout: layout, Options: opts, Schedule: schedule}
	if commandFilePath != "" {
		d.Commands = NewCommandFile(commandFilePath)
	}
	return d
}

// Run executes the full lifecycle against parent: layout bootstrap,
// Setup, Start, then the --onetime / --nowait / scheduled-loop dispatch
// described in dev/src/daemon.py, finishing with Cleanup regardless of
// how the loop ended.
func (d *Daemon) Run(sc *stopper.Context, r Runnable) error {
	if err := d.Layout.Ensure(); err != nil {
		return err
	}
	d.started = time.Now()

	if err := r.Setup(sc); err != nil {
		return err
	}
	if err := r.Start(sc); err != nil {
		return err
	}
	defer r.Cleanup()

	if d.Options.Bool("onetime") {
		log.Info("option onetime=1: executing once")
		return d.tick(sc, r)
	}

	if d.Options.Bool("nowait") {
		log.Info("option nowait=1: executing immediately, then following the regular schedule")
		if err := d.tick(sc, r); err != nil {
			log.WithError(err).Error("job failed, continuing polling loop")
		}
	}

	// A schedule interval can be much coarser than the granularity at
	// which an operator expects "stop"/"cancel" to take effect (spec.md
	// §6). Watch the command file on its own short cadence, as a
	// stopper-tracked goroutine, so a stop takes effect at the stopper's
	// Stopping() suspension point rather than waiting for the next
	// scheduled tick.
	sc.Go(func() error {
		d.watchCommands(sc)
		return nil
	})

	return d.loop(sc, r)
}

// watchCommands polls the command file independently of the schedule
// ticker, reacting only to stop/cancel: pause/continue/uptime/counters/help
// are left to the tick-driven pollCommands, which already runs
// single-threaded with the rest of the loop's state.
func (d *Daemon) watchCommands(sc *stopper.Context) {
	if d.Commands == nil {
		return
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sc.Stopping():
			return
		case <-ticker.C:
			action, _ := d.Commands.Poll()
			if action == ActionStop || action == ActionCancel {
				log.Info("command: stop (detected between scheduled ticks)")
				go sc.Stop(5 * time.Second)
				return
			}
		}
	}
}

// loop runs one Main invocation per schedule tick until the stopper is
// cancelled or a "stop" command is read from the command file. A
// "restart" command runs Cleanup, Setup and Start again before the tick.
func (d *Daemon) loop(sc *stopper.Context, r Runnable) error {
	ticker := time.NewTicker(d.Schedule.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-sc.Stopping():
			return nil
		case <-ticker.C:
			action := d.pollCommands()
			if action == ActionStop || action == ActionCancel {
				return nil
			}
			if action == ActionRestart {
				r.Cleanup()
				if err := r.Setup(sc); err != nil {
					return err
				}
				if err := r.Start(sc); err != nil {
					return err
				}
			}
			if d.paused || !d.Schedule.Due() {
				continue
			}
			// spec.md §7: a job-level failure (transient DB error, relay
			// message failure, ...) aborts only the current job; the
			// daemon logs it and continues the polling loop rather than
			// exiting. Only Setup/Start/layout errors, surfaced via Run's
			// return value before the loop ever starts, are fatal.
			if err := d.tick(sc, r); err != nil {
				log.WithError(err).Error("job failed, continuing polling loop")
			}
		}
	}
}

func (d *Daemon) tick(sc *stopper.Context, r Runnable) error {
	d.counters.tick()
	if err := r.Main(sc); err != nil {
		d.counters.failure()
		return err
	}
	d.counters.success()
	return nil
}

// pollCommands checks the command file, if configured, and applies the
// pause/continue verbs directly; read-only verbs are logged via Handle
// and stop/cancel/restart are returned for the caller's loop to act on.
func (d *Daemon) pollCommands() CommandAction {
	if d.Commands == nil {
		return ActionNone
	}
	action, _ := d.Commands.Poll()
	switch action {
	case ActionPause:
		log.Info("command: pause")
		d.paused = true
	case ActionContinue:
		log.Info("command: continue")
		d.paused = false
	case ActionRestart:
		log.Info("command: restart")
	case ActionUptime, ActionCounters, ActionHelp:
		Handle(action, d.started, &d.counters)
	}
	return action
}
