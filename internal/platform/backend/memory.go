package backend

import (
	"context"

	capturedomain "field-capture-ingest/internal/capture/domain"
	capturerepository "field-capture-ingest/internal/capture/repository"
	captureservice "field-capture-ingest/internal/capture/service"
	devicedomain "field-capture-ingest/internal/deviceconfig/domain"
	devicerepository "field-capture-ingest/internal/deviceconfig/repository"
	deviceservice "field-capture-ingest/internal/deviceconfig/service"
	eventdomain "field-capture-ingest/internal/domainevent/domain"
	eventrepository "field-capture-ingest/internal/domainevent/repository"
	"field-capture-ingest/internal/legacy/migration"
	legacyrepository "field-capture-ingest/internal/legacy/repository"
	sessiondomain "field-capture-ingest/internal/sourcesession/domain"
	sessionrepository "field-capture-ingest/internal/sourcesession/repository"
	"field-capture-ingest/internal/storage/memory"
)

// Memory keeps both stores in process. Data is lost on exit.
type Memory struct {
	primary  *memory.Store
	captures *memory.Table[capturedomain.Capture]
	events   *memory.Table[eventdomain.DomainEvent]
	sessions *memory.Table[sessiondomain.Session]
	devices  *memory.Table[devicedomain.DeviceConfiguration]
	legacy   *legacyrepository.MemoryTables
}

// NewMemory returns empty primary and legacy stores.
func NewMemory() *Memory {
	primary := memory.NewStore()
	return &Memory{
		primary:  primary,
		captures: capturerepository.NewMemoryTable(primary),
		events:   eventrepository.NewMemoryTable(primary),
		sessions: sessionrepository.NewMemoryTable(primary),
		devices:  devicerepository.NewMemoryTable(primary),
		legacy:   legacyrepository.NewMemoryTables(memory.NewStore()),
	}
}

func (m *Memory) Primary() captureservice.PrimaryUnit {
	s := m.primary.NewSession()
	return captureservice.PrimaryUnit{
		Session:  s,
		Captures: capturerepository.NewMemoryRepository(m.captures, s),
		Events:   eventrepository.NewMemoryRepository(m.events, s),
		Sessions: sessionrepository.NewMemoryRepository(m.sessions, s),
	}
}

func (m *Memory) Legacy() captureservice.LegacyUnit {
	s := m.legacy.Store.NewSession()
	return captureservice.LegacyUnit{
		Session: s,
		Migration: migration.Unit{
			Entities:   legacyrepository.NewMemoryEntityRepository(m.legacy, s),
			Attributes: legacyrepository.NewMemoryAttributeRepository(m.legacy, s),
		},
	}
}

func (m *Memory) DeviceConfigurations() deviceservice.Unit {
	s := m.primary.NewSession()
	return deviceservice.Unit{Session: s, Repository: devicerepository.NewMemoryRepository(m.devices, s)}
}

func (m *Memory) Events() eventrepository.Repository {
	return eventrepository.NewMemoryRepository(m.events, m.primary.NewSession())
}

func (m *Memory) Sessions() sessionrepository.Repository {
	return sessionrepository.NewMemoryRepository(m.sessions, m.primary.NewSession())
}

func (m *Memory) PingPrimary(ctx context.Context) error { return ctx.Err() }

func (m *Memory) PingLegacy(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
