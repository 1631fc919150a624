package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/archive"
	"github.com/nymics/udpcdc/internal/objstore"
	"github.com/nymics/udpcdc/internal/queue"
	"github.com/nymics/udpcdc/internal/util/stopper"
	"github.com/nymics/udpcdc/internal/warehouse"
)

// Setup opens the warehouse catalog pool and ensures its tables exist.
// The pool persists for the life of the process; it is the one
// database connection this daemon holds (spec.md §5).
func (a *archiveApp) Setup(sc *stopper.Context) error {
	pool, err := warehouse.Open(sc, a.warehouse.DSN)
	if err != nil {
		return err
	}
	if err := warehouse.EnsureCatalog(sc, pool); err != nil {
		pool.Close()
		return err
	}

	a.relay = &archive.Relay{
		Namespace:     a.namespace,
		Catalog:       pool,
		PollFrequency: time.Duration(a.project.PollFreqSec) * time.Second,
	}
	return nil
}

// Start opens the archive bucket object store and the capture
// notification queue. Per spec.md §5: "Object-store and queue handles
// are re-created on each polling iteration to accommodate short-lived
// cloud credentials." CaptureNew captures a closure that Drain invokes
// on every message, rather than a handle opened once here.
func (a *archiveApp) Start(sc *stopper.Context) error {
	q, err := queue.Open(sc, a.capture.Queue, a.capture.Region)
	if err != nil {
		return errors.Wrap(err, "connecting to capture notification queue")
	}
	a.relay.Queue = q

	archiveStore, err := objstore.Open(sc, a.archive.Bucket, a.archive.Region, a.archive.Endpoint)
	if err != nil {
		return errors.Wrap(err, "connecting to archive object store")
	}
	a.relay.Archive = archiveStore

	captureCloud := a.capture
	a.relay.CaptureNew = func(ctx context.Context) (*objstore.Store, error) {
		return objstore.Open(ctx, captureCloud.Bucket, captureCloud.Region, captureCloud.Endpoint)
	}
	return nil
}

// Main drains every currently-available notification once. The
// surrounding daemon loop calls Main on each scheduled tick; when
// Drain reports zero handled, the tick is a no-op and the loop's
// normal interval governs the next poll.
func (a *archiveApp) Main(sc *stopper.Context) error {
	_, err := a.relay.Drain(sc)
	return err
}

// Cleanup closes the warehouse catalog pool.
func (a *archiveApp) Cleanup() {
	if a.relay != nil && a.relay.Catalog != nil {
		a.relay.Catalog.Close()
	}
}
