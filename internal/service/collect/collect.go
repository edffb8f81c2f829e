// Package collect ingests raw adapter payloads into canonical snapshots.
// Ingestion is the only writer of the snapshot store, so it owns the
// matching cache invalidation: a freshly stored snapshot always evicts the
// account's derived facts.
package collect

import (
	"context"
	"errors"
	"log/slog"

	"dbfleet/internal/cache"
	"dbfleet/internal/domain"
	"dbfleet/internal/facts"
	"dbfleet/internal/snapshot"
)

// Service normalizes and stores permission snapshots.
type Service struct {
	instances domain.InstanceRepository
	accounts  domain.AccountRepository
	snapshots domain.SnapshotRepository
	cache     *cache.Store
	logger    *slog.Logger
}

// NewService creates a collect service.
func NewService(
	instances domain.InstanceRepository,
	accounts domain.AccountRepository,
	snapshots domain.SnapshotRepository,
	cache *cache.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		instances: instances,
		accounts:  accounts,
		snapshots: snapshots,
		cache:     cache,
		logger:    logger.With("component", "collect"),
	}
}

// Ingest normalizes a raw adapter payload for one account on a named
// instance and stores the resulting snapshot, superseding any prior one.
// The account is created on first sight. Malformed payloads are rejected
// before anything is written.
func (s *Service) Ingest(ctx context.Context, instanceName, username, host string, rawPayload interface{}) (*domain.PermissionSnapshot, error) {
	inst, err := s.instances.GetByName(ctx, instanceName)
	if err != nil {
		return nil, err
	}

	snap, err := snapshot.Normalize(rawPayload, inst.DBType)
	if err != nil {
		return nil, err
	}

	acct, err := s.ensureAccount(ctx, inst.ID, username, host)
	if err != nil {
		return nil, err
	}
	snap.AccountID = acct.ID

	// Facts must derive cleanly before the snapshot is accepted; a
	// snapshot that cannot produce facts would silently drop out of every
	// classification pass.
	if _, err := facts.Build(snap, inst.DBType); err != nil {
		return nil, err
	}

	stored, err := s.snapshots.Save(ctx, snap)
	if err != nil {
		return nil, err
	}
	s.cache.InvalidateFacts(acct.ID)

	s.logger.Info("snapshot ingested",
		"instance", instanceName,
		"account", username,
		"db_type", inst.DBType,
		"warnings", len(stored.Errors),
	)
	return stored, nil
}

// ensureAccount returns the account for (instance, username, host),
// creating it if this is the first collection that mentions it.
func (s *Service) ensureAccount(ctx context.Context, instanceID, username, host string) (*domain.Account, error) {
	acct, err := s.accounts.Create(ctx, &domain.Account{
		InstanceID: instanceID,
		Username:   username,
		Host:       host,
	})
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		return acct, err
	}

	existing, err := s.accounts.ListByInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Username == username && existing[i].Host == host {
			return &existing[i], nil
		}
	}
	return nil, domain.ErrNotFound("account %s@%s on instance %s", username, host, instanceID)
}
