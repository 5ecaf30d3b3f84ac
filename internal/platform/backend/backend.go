// Package backend builds per-request repository units over the primary and legacy stores for
// either storage driver.
package backend

import (
	"context"
	"io"

	captureservice "field-capture-ingest/internal/capture/service"
	deviceservice "field-capture-ingest/internal/deviceconfig/service"
	eventrepository "field-capture-ingest/internal/domainevent/repository"
	sessionrepository "field-capture-ingest/internal/sourcesession/repository"
)

// Backend is everything the server, worker and seed tool need from storage.
type Backend interface {
	captureservice.Backend
	deviceservice.Backend
	// Events returns an event repository outside any transaction.
	Events() eventrepository.Repository
	// Sessions returns a source session repository outside any transaction.
	Sessions() sessionrepository.Repository
	// PingPrimary and PingLegacy check that each store is reachable.
	PingPrimary(ctx context.Context) error
	PingLegacy(ctx context.Context) error
	io.Closer
}

var (
	_ Backend = (*Postgres)(nil)
	_ Backend = (*Memory)(nil)
)
