// Package logging configures the structured logger shared by all three
// daemons. Every component logs through a *logrus.Entry seeded with a
// component name, so a single tail of the process log can be filtered
// by stage without needing separate log files.
package logging

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Setup configures the package-level logrus logger. It is called once,
// early in each daemon's startup, before any component logging happens.
func Setup(level string, jsonOutput bool) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	if jsonOutput {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// For returns a logger entry scoped to a single component (e.g.
// "capture", "archive", "stage") and namespace.
func For(component, namespace string) *log.Entry {
	return log.WithFields(log.Fields{
		"component": component,
		"namespace": namespace,
	})
}
