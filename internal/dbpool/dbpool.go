// Copyright 2023 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package dbpool creates standardized database/sql connection pools
// for source databases (Capture, via internal/sourcedb); the target
// warehouse uses pgxpool instead (internal/warehouse). It follows the
// options pattern used throughout the teacher
// repo's stdpool package: a small Option type configures pool size,
// connection lifetime, and startup-retry behavior uniformly across
// dialects.
package dbpool

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	_ "github.com/go-sql-driver/mysql" // register driver
	_ "github.com/jackc/pgx/v5/stdlib" // register "pgx" driver
	_ "github.com/lib/pq"              // register "postgres" driver
)

// Option configures pool construction.
type Option func(*options)

type options struct {
	maxOpen      int
	connLifetime time.Duration
	waitForStart bool
	startupTries int
}

// WithPoolSize bounds the number of open connections.
func WithPoolSize(n int) Option {
	return func(o *options) { o.maxOpen = n }
}

// WithConnectionLifetime bounds how long a connection may be reused,
// important for short-lived-credential source databases.
func WithConnectionLifetime(d time.Duration) Option {
	return func(o *options) { o.connLifetime = d }
}

// WithWaitForStartup retries the initial ping up to n times, for
// databases that may not be immediately reachable (e.g. in test
// containers).
func WithWaitForStartup(tries int) Option {
	return func(o *options) { o.waitForStart = true; o.startupTries = tries }
}

func apply(opts []Option) options {
	o := options{maxOpen: 10, connLifetime: 5 * time.Minute}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Open opens a database/sql pool over driverName/dsn, pings it
// (optionally retrying through startup), and wraps it as an *sqlx.DB so
// source discovery queries can use sqlx's struct-scanning helpers.
func Open(ctx context.Context, driverName, dsn string, opts ...Option) (*sqlx.DB, error) {
	o := apply(opts)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s connection", driverName)
	}
	db.SetMaxOpenConns(o.maxOpen)
	db.SetConnMaxLifetime(o.connLifetime)

	tries := 1
	if o.waitForStart {
		tries = o.startupTries
	}

	var pingErr error
	for i := 0; i < tries; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			break
		}
		if i < tries-1 {
			log.WithError(pingErr).Infof("waiting for %s to become ready", driverName)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	if pingErr != nil {
		db.Close()
		return nil, errors.Wrapf(pingErr, "could not ping %s database", driverName)
	}

	return sqlx.NewDb(db, driverName), nil
}
