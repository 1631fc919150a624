package main

import (
	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/capture"
	"github.com/nymics/udpcdc/internal/objstore"
	"github.com/nymics/udpcdc/internal/sourcedb"
	"github.com/nymics/udpcdc/internal/util/stopper"
	"github.com/nymics/udpcdc/internal/watermark"
	"github.com/nymics/udpcdc/internal/wiring"
)

// Setup resolves the namespace's table list; it runs once before Start.
func (a *captureApp) Setup(sc *stopper.Context) error {
	a.engine = &capture.Engine{
		Namespace:  a.namespace,
		Tables:     wiring.ResolveTables(a.layers),
		Watermarks: watermark.Open(a.cli.LocalDir, a.namespace),
		BatchSize:  a.datapool.BatchSize,
		NoTransfer: a.cli.NoTransfer,
	}
	if _, err := a.engine.Watermarks.Load(); err != nil {
		return err
	}
	return nil
}

// Start opens the source database connection, which persists for the
// life of the process (spec.md §5: "Database connections persist for
// the duration of one capture/stage job and are closed on completion or
// failure" — Capture holds it open across jobs since it is stateless
// per tick beyond the watermark store).
func (a *captureApp) Start(sc *stopper.Context) error {
	source, err := sourcedb.Open(sc, a.database)
	if err != nil {
		return err
	}
	a.source = source
	a.engine.Source = source
	return nil
}

// Main runs one capture job. Per spec.md §5, the object-store handle is
// re-created on every tick to accommodate short-lived cloud credentials.
func (a *captureApp) Main(sc *stopper.Context) error {
	if !a.cli.NoTransfer {
		store, err := objstore.Open(sc, a.cloud.Bucket, a.cloud.Region, a.cloud.Endpoint)
		if err != nil {
			return errors.Wrap(err, "connecting to capture object store")
		}
		a.engine.Capture = store
	}
	return a.engine.RunJob(sc)
}

// Cleanup closes the source database connection.
func (a *captureApp) Cleanup() {
	if a.source != nil {
		_ = a.source.Close()
	}
}
