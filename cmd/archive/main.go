// Command archive runs the Archive Relay for a single project
// (namespace), per spec.md §4.3: on each scheduled tick it drains the
// capture notification queue, copying bundles into the archive bucket
// and registering them for Stage to consume.
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
	flags := pflag.NewFlagSet("archive", pflag.ExitOnError)
	cli.Bind(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if args := flags.Args(); len(args) > 0 {
		cli.Project = args[0]
	}

	opts := daemon.LoadOptionsFromEnv("archive_" + cli.Project)
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

	app, err := InitializeArchive(sc, cli)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize archive relay")
	}

	schedule := daemon.NewSchedule(wiring.ResolveSchedule(app.layers, app.project.Schedule))
	layout := daemon.Layout{
		Sessions: "../sessions",
		Work:     "../work/" + app.namespace,
		Publish:  "../publish/" + app.namespace,
	}
	commandFile := "../sessions/archive_" + cli.Project + ".listen"

	d := daemon.New(layout, opts, schedule, commandFile)
	if err := d.Run(sc, app); err != nil {
		log.WithError(err).Fatal("archive daemon exited with error")
	}
}
