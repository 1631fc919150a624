// Command capture runs the Capture engine for a single project
// (namespace), per spec.md §4.2: on each scheduled tick it extracts
// changed rows from the source database, packages them into a bundle,
// and uploads it to the capture object store.
package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/nymics/udpcdc/internal/daemon"
	"github.com/nymics/udpcdc/internal/logging"
	"github.com/nymics/udpcdc/internal/util/stopper"
	"github.com/nymics/udpcdc/internal/wiring"
)

func main() {
	cli := &wiring.CLIConfig{}
	flags := pflag.NewFlagSet("capture", pflag.ExitOnError)
	cli.Bind(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if args := flags.Args(); len(args) > 0 {
		cli.Project = args[0]
	}

	opts := daemon.LoadOptionsFromEnv("capture_" + cli.Project)
	if cli.OneTime {
		opts.Set("onetime", "1")
	}
	if cli.NoWait {
		opts.Set("nowait", "1")
	}

	logging.Setup(cli.LogLevel, cli.LogJSON)

	if err := cli.Preflight(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	sc := stopper.WithContext(context.Background())

	app, err := InitializeCapture(sc, cli)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize capture")
	}

	schedule := daemon.NewSchedule(wiring.ResolveSchedule(app.layers, app.project.Schedule))
	layout := daemon.Layout{
		Sessions: "../sessions",
		Work:     "../work/" + app.namespace,
		Publish:  "../publish/" + app.namespace,
	}
	commandFile := "../sessions/capture_" + cli.Project + ".listen"

	d := daemon.New(layout, opts, schedule, commandFile)
	if err := d.Run(sc, app); err != nil {
		log.WithError(err).Fatal("capture daemon exited with error")
	}
}
