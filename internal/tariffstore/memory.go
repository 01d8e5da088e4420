package tariffstore

import (
	"context"
	"strings"
	"sync"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// MemoryStore is an in-memory Store used in tests and for seeded demo
// data. Safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.PolicyTariffRecord // key: hs_code|origin
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.PolicyTariffRecord)}
}

func key(hsCode, origin string) string {
	return hsCode + "|" + strings.ToUpper(origin)
}

func (s *MemoryStore) Lookup(_ context.Context, hsCode, originCountry string) (*model.PolicyTariffRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[key(hsCode, originCountry)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *MemoryStore) LookupBlanket(_ context.Context, hsCode string) (*model.PolicyTariffRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[key(hsCode, "")]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (s *MemoryStore) LookupChapter(_ context.Context, chapterPrefix, originCountry string) (*model.PolicyTariffRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	origin := strings.ToUpper(originCountry)
	var best *model.PolicyTariffRecord
	for _, rec := range s.records {
		if !strings.HasPrefix(rec.HSCode, chapterPrefix) || !strings.EqualFold(rec.OriginCountry, origin) {
			continue
		}
		rec := rec
		if best == nil {
			best = &rec
			continue
		}
		// Prefer the most recently verified row, matching the SQL stores.
		switch {
		case best.VerifiedDate == nil && rec.VerifiedDate != nil:
			best = &rec
		case best.VerifiedDate != nil && rec.VerifiedDate != nil && rec.VerifiedDate.After(*best.VerifiedDate):
			best = &rec
		}
	}
	return best, nil
}

func (s *MemoryStore) Upsert(_ context.Context, records []model.PolicyTariffRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[key(rec.HSCode, rec.OriginCountry)] = rec
	}
	return int64(len(records)), nil
}

func (s *MemoryStore) Migrate(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
