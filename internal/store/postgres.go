// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sport Tournaments Contributors

// Package store provides database connectivity and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	// connectBackoffBase is the initial fibonacci backoff interval between
	// connection attempts.
	connectBackoffBase = 500 * time.Millisecond

	// connectMaxDuration caps the total time spent retrying the initial
	// connection. Databases started alongside the service (compose, CI)
	// routinely take a few seconds to accept connections.
	connectMaxDuration = 30 * time.Second
)

// Connect creates a pgx connection pool and verifies connectivity with a ping.
// Connection attempts are retried with fibonacci backoff so the service can
// start before its database is ready.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create connection pool").Wrap(err)
	}

	backoff := retry.WithMaxDuration(connectMaxDuration, retry.NewFibonacci(connectBackoffBase))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "ping database").Wrap(err)
	}

	return pool, nil
}
