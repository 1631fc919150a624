package main

import (
	"github.com/pkg/errors"

	"github.com/nymics/udpcdc/internal/objstore"
	"github.com/nymics/udpcdc/internal/queue"
	"github.com/nymics/udpcdc/internal/stage"
	"github.com/nymics/udpcdc/internal/util/stopper"
	"github.com/nymics/udpcdc/internal/warehouse"
)

// Setup opens the warehouse pool shared by the catalog handshake and
// the Applier, and ensures the catalog tables exist. The pool persists
// for the life of the process (spec.md §5).
func (a *stageApp) Setup(sc *stopper.Context) error {
	pool, err := warehouse.Open(sc, a.warehouse.DSN)
	if err != nil {
		return err
	}
	if err := warehouse.EnsureCatalog(sc, pool); err != nil {
		pool.Close()
		return err
	}

	a.loader = &stage.Loader{
		Namespace: a.namespace,
		Catalog:   pool,
		Applier:   warehouse.NewApplier(pool),
	}
	return nil
}

// Start opens the archive bucket handle and, if configured, the
// downstream stage notification queue.
func (a *stageApp) Start(sc *stopper.Context) error {
	archiveStore, err := objstore.Open(sc, a.archive.Bucket, a.archive.Region, a.archive.Endpoint)
	if err != nil {
		return errors.Wrap(err, "connecting to archive object store")
	}
	a.loader.Archive = archiveStore

	if a.notify.Queue != "" {
		q, err := queue.Open(sc, a.notify.Queue, a.notify.Region)
		if err != nil {
			return errors.Wrap(err, "connecting to stage notification queue")
		}
		a.loader.Notify = q
	}
	return nil
}

// Main dispatches every bundle currently eligible for this namespace.
// DispatchNext returns applied=false once no bundle satisfies the
// in-order handshake, at which point the tick is done and the loop's
// schedule governs the next poll.
func (a *stageApp) Main(sc *stopper.Context) error {
	for {
		applied, err := a.loader.DispatchNext(sc)
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
	}
}

// Cleanup closes the warehouse pool.
func (a *stageApp) Cleanup() {
	if a.loader != nil && a.loader.Catalog != nil {
		a.loader.Catalog.Close()
	}
}
