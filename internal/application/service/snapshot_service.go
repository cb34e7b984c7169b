package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ibsnap/internal/application"
	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

// SnapshotService encodes refresh results and hands them to the CacheStore,
// and decodes them back for readers.
type SnapshotService struct {
	store port.CacheStore
}

func NewSnapshotService(store port.CacheStore) *SnapshotService {
	return &SnapshotService{store: store}
}

// Save writes v as the current entry of (kind, subKey).
func (s *SnapshotService) Save(ctx context.Context, kind model.CacheKind, subKey string, v any, ts time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s snapshot: %w", kind, err)
	}
	entry := model.CacheEntry{Kind: kind, SubKey: subKey, Payload: payload, UpdatedAt: ts}
	if err := s.store.Write(ctx, entry); err != nil {
		return fmt.Errorf("%w: %s %q: %v", application.ErrPersistence, kind, subKey, err)
	}
	return nil
}

// Load decodes the current entry of (kind, subKey) into v. It reports
// false with a zero time when nothing has been written yet.
func (s *SnapshotService) Load(ctx context.Context, kind model.CacheKind, subKey string, v any) (time.Time, bool, error) {
	entry, ok, err := s.store.Read(ctx, kind, subKey)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if err := json.Unmarshal(entry.Payload, v); err != nil {
		return time.Time{}, false, fmt.Errorf("decode %s snapshot: %w", kind, err)
	}
	return entry.UpdatedAt, true, nil
}
