package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"field-capture-ingest/internal/deviceconfig/domain"
	"field-capture-ingest/internal/deviceconfig/repository"
	"field-capture-ingest/internal/storage"
)

// Unit is a device configuration repository bound to one fresh storage session.
type Unit struct {
	Session    storage.Session
	Repository repository.Repository
}

// Backend hands out a new Unit per call.
type Backend interface {
	DeviceConfigurations() Unit
}

// DeviceConfigurationService registers and lists device configurations.
type DeviceConfigurationService struct {
	backend Backend
	log     *zap.Logger
	now     func() time.Time
}

// NewDeviceConfigurationService returns a DeviceConfigurationService. log may be nil.
func NewDeviceConfigurationService(backend Backend, log *zap.Logger) *DeviceConfigurationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeviceConfigurationService{backend: backend, log: log, now: time.Now}
}

// Create stores d unless a configuration with its id exists, in which case the stored one is
// returned with created false. CreatedAt is set by the server.
func (s *DeviceConfigurationService) Create(ctx context.Context, d *domain.DeviceConfiguration) (_ *domain.DeviceConfiguration, created bool, err error) {
	unit := s.backend.DeviceConfigurations()
	if existing, err := s.get(ctx, unit.Repository, d.ID); err != nil || existing != nil {
		return existing, false, err
	}

	defer func() {
		if err != nil && unit.Session.InProgress() {
			if rerr := unit.Session.Rollback(context.WithoutCancel(ctx)); rerr != nil {
				s.log.Error("device configuration rollback failed", zap.Error(rerr))
			}
		}
	}()

	record := *d
	record.LoggedAt = record.LoggedAt.UTC()
	record.CreatedAt = s.now().UTC()
	if err = unit.Session.Begin(ctx); err != nil {
		return nil, false, fmt.Errorf("begin session: %w", err)
	}
	stored, err := unit.Repository.Create(ctx, &record)
	if err == nil {
		err = unit.Session.Commit(ctx)
	}
	if errors.Is(err, storage.ErrConstraintViolation) {
		// Registered concurrently; serve the winner.
		if unit.Session.InProgress() {
			_ = unit.Session.Rollback(context.WithoutCancel(ctx))
		}
		existing, gerr := s.get(ctx, unit.Repository, d.ID)
		if gerr != nil {
			return nil, false, gerr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// Get returns the configuration with id, or nil when none exists.
func (s *DeviceConfigurationService) Get(ctx context.Context, id string) (*domain.DeviceConfiguration, error) {
	return s.get(ctx, s.backend.DeviceConfigurations().Repository, id)
}

// List returns every configuration ordered by creation time.
func (s *DeviceConfigurationService) List(ctx context.Context) ([]*domain.DeviceConfiguration, error) {
	return s.backend.DeviceConfigurations().Repository.GetByFilter(ctx, repository.Filter{})
}

func (s *DeviceConfigurationService) get(ctx context.Context, repo repository.Repository, id string) (*domain.DeviceConfiguration, error) {
	found, err := repo.GetByFilter(ctx, repository.Filter{ID: id})
	if err != nil {
		return nil, fmt.Errorf("lookup device configuration %s: %w", id, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}
