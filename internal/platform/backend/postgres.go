package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	capturerepository "field-capture-ingest/internal/capture/repository"
	captureservice "field-capture-ingest/internal/capture/service"
	"field-capture-ingest/internal/db"
	devicerepository "field-capture-ingest/internal/deviceconfig/repository"
	deviceservice "field-capture-ingest/internal/deviceconfig/service"
	eventrepository "field-capture-ingest/internal/domainevent/repository"
	"field-capture-ingest/internal/legacy/migration"
	legacyrepository "field-capture-ingest/internal/legacy/repository"
	sessionrepository "field-capture-ingest/internal/sourcesession/repository"
	"field-capture-ingest/internal/storage"
)

// Postgres serves units over two connection pools. Each unit gets its own storage.SQLSession.
type Postgres struct {
	primary *sql.DB
	legacy  *sql.DB
}

// NewPostgres wraps already opened pools. Close closes both.
func NewPostgres(primary, legacy *sql.DB) *Postgres {
	return &Postgres{primary: primary, legacy: legacy}
}

// OpenPostgres opens and pings both stores.
func OpenPostgres(primaryDSN, legacyDSN string) (*Postgres, error) {
	primary, err := db.Open(primaryDSN)
	if err != nil {
		return nil, fmt.Errorf("open primary store: %w", err)
	}
	legacy, err := db.Open(legacyDSN)
	if err != nil {
		_ = primary.Close()
		return nil, fmt.Errorf("open legacy store: %w", err)
	}
	return NewPostgres(primary, legacy), nil
}

func (p *Postgres) Primary() captureservice.PrimaryUnit {
	s := storage.NewSQLSession(p.primary)
	return captureservice.PrimaryUnit{
		Session:  s,
		Captures: capturerepository.NewPostgresRepository(s),
		Events:   eventrepository.NewPostgresRepository(s),
		Sessions: sessionrepository.NewPostgresRepository(s),
	}
}

func (p *Postgres) Legacy() captureservice.LegacyUnit {
	s := storage.NewSQLSession(p.legacy)
	return captureservice.LegacyUnit{
		Session: s,
		Migration: migration.Unit{
			Entities:   legacyrepository.NewPostgresEntityRepository(s),
			Attributes: legacyrepository.NewPostgresAttributeRepository(s),
		},
	}
}

func (p *Postgres) DeviceConfigurations() deviceservice.Unit {
	s := storage.NewSQLSession(p.primary)
	return deviceservice.Unit{Session: s, Repository: devicerepository.NewPostgresRepository(s)}
}

func (p *Postgres) Events() eventrepository.Repository {
	return eventrepository.NewPostgresRepository(storage.NewSQLSession(p.primary))
}

func (p *Postgres) Sessions() sessionrepository.Repository {
	return sessionrepository.NewPostgresRepository(storage.NewSQLSession(p.primary))
}

func (p *Postgres) PingPrimary(ctx context.Context) error { return p.primary.PingContext(ctx) }

func (p *Postgres) PingLegacy(ctx context.Context) error { return p.legacy.PingContext(ctx) }

// Close closes both pools. When both DSNs name one database the pools are still distinct.
func (p *Postgres) Close() error {
	return errors.Join(p.primary.Close(), p.legacy.Close())
}
