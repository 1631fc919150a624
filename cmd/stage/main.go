// Command stage runs the Stage loader for a single project
// (namespace), per spec.md §4.4: on each scheduled tick it applies
// every bundle currently eligible under the per-namespace in-order
// handshake into the target warehouse.
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
	flags := pflag.NewFlagSet("stage", pflag.ExitOnError)
	cli.Bind(flags)
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	if args := flags.Args(); len(args) > 0 {
		cli.Project = args[0]
	}

	opts := daemon.LoadOptionsFromEnv("stage_" + cli.Project)
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

	app, err := InitializeStage(sc, cli)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize stage loader")
	}

	schedule := daemon.NewSchedule(wiring.ResolveSchedule(app.layers, app.project.Schedule))
	layout := daemon.Layout{
		Sessions: "../sessions",
		Work:     "../work/" + app.namespace,
		Publish:  "../publish/" + app.namespace,
	}
	commandFile := "../sessions/stage_" + cli.Project + ".listen"

	d := daemon.New(layout, opts, schedule, commandFile)
	if err := d.Run(sc, app); err != nil {
		log.WithError(err).Fatal("stage daemon exited with error")
	}
}
