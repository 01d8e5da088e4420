// Package tariffstore provides access to the policy tariff table backing
// overlay rate resolution.
package tariffstore

import (
	"context"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// Store is the query surface the resolver depends on. Lookup methods
// return (nil, nil) when no row matches; errors are reserved for store
// failures so "no data" is never conflated with "couldn't ask".
type Store interface {
	// Lookup returns the record keyed by (hs code, origin country).
	Lookup(ctx context.Context, hsCode, originCountry string) (*model.PolicyTariffRecord, error)
	// LookupBlanket returns the record for hsCode that applies to all origins.
	LookupBlanket(ctx context.Context, hsCode string) (*model.PolicyTariffRecord, error)
	// LookupChapter returns any origin-specific record under the 2-digit
	// chapter prefix, most recently verified first.
	LookupChapter(ctx context.Context, chapterPrefix, originCountry string) (*model.PolicyTariffRecord, error)

	// Upsert inserts or replaces records keyed by (hs_code, origin_country).
	Upsert(ctx context.Context, records []model.PolicyTariffRecord) (int64, error)

	Migrate(ctx context.Context) error
	Close() error
}
