// Package resolver implements confidence-scored tariff overlay rate
// resolution over the policy tariff store.
//
// A lookup walks a fixed fallback cascade from the most product-specific
// match to the broadest, short-circuiting on the first tier whose record
// carries a non-nil value for the requested overlay. A zero rate is a
// real match (the overlay applies at 0%); only a nil rate falls through.
package resolver

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
	"github.com/triangle-intelligence/compliance-cli/internal/tariffstore"
)

const defaultStaleDays = 180

// Resolver resolves overlay rates with an honest confidence signal.
type Resolver struct {
	store     tariffstore.Store
	staleDays int
	now       time.Time // injectable for testing
}

// New creates a Resolver over the given store. staleAfterDays controls
// when a resolved rate is annotated as needing re-verification; zero
// selects the default window.
func New(store tariffstore.Store, staleAfterDays int) *Resolver {
	if staleAfterDays <= 0 {
		staleAfterDays = defaultStaleDays
	}
	return &Resolver{store: store, staleDays: staleAfterDays, now: time.Now()}
}

// WithNow sets a fixed time for testing.
func (r *Resolver) WithNow(t time.Time) *Resolver {
	r.now = t
	return r
}

// ResolveRate resolves the best available rate for (hsCode, originCountry,
// field). Input problems come back as structured results, not errors, so
// batch callers can keep going; errors are reserved for store failures.
//
// Cascade, first hit wins:
//  1. blanket record at the 8-digit code            confidence 95
//  2. exact (8-digit, origin) record                confidence 100
//  3. 6-digit category record for the origin        confidence 85
//  4. 4-digit heading record for the origin         confidence 70
//  5. any record under the 2-digit chapter prefix   confidence 50
//  6. not found                                     confidence 0
//
// With an empty originCountry only the blanket tier runs.
func (r *Resolver) ResolveRate(ctx context.Context, hsCode, originCountry string, field model.RateField) (model.Resolution, error) {
	if !field.Valid() {
		return model.Resolution{
			Source:        model.SourceMissingRateField,
			Confidence:    model.ConfidenceNone,
			Note:          fmt.Sprintf("unknown rate field %q", string(field)),
			NeedsResearch: true,
		}, nil
	}

	code, err := model.NormalizeHS(hsCode)
	if err != nil {
		return model.Resolution{
			Source:        model.SourceInvalidHSCode,
			Confidence:    model.ConfidenceNone,
			Note:          fmt.Sprintf("unusable HS code %q", hsCode),
			NeedsResearch: true,
		}, nil
	}

	// Tier 1: blanket tariff at the full 8-digit code.
	rec, err := r.store.LookupBlanket(ctx, code)
	if err != nil {
		return model.Resolution{}, eris.Wrapf(err, "resolver: blanket lookup %s", code)
	}
	if res, ok := r.fromRecord(rec, field, model.SourceBlanketTariff, model.ConfidenceBlanket, code, ""); ok {
		return res, nil
	}

	if originCountry != "" {
		// Tier 2: exact (8-digit, origin).
		rec, err = r.store.Lookup(ctx, code, originCountry)
		if err != nil {
			return model.Resolution{}, eris.Wrapf(err, "resolver: exact lookup %s/%s", code, originCountry)
		}
		if res, ok := r.fromRecord(rec, field, model.SourceExactMatch, model.ConfidenceExact, code, ""); ok {
			return res, nil
		}

		// Tier 3: 6-digit category.
		category := code[:6]
		rec, err = r.store.Lookup(ctx, category, originCountry)
		if err != nil {
			return model.Resolution{}, eris.Wrapf(err, "resolver: category lookup %s/%s", category, originCountry)
		}
		note := fmt.Sprintf("category-level rate: 6-digit parent %s used in place of %s", category, code)
		if res, ok := r.fromRecord(rec, field, model.SourceCategoryRate, model.ConfidenceCategory, category, note); ok {
			return res, nil
		}

		// Tier 4: 4-digit heading.
		heading := code[:4]
		rec, err = r.store.Lookup(ctx, heading, originCountry)
		if err != nil {
			return model.Resolution{}, eris.Wrapf(err, "resolver: heading lookup %s/%s", heading, originCountry)
		}
		note = fmt.Sprintf("heading-level rate: 4-digit prefix %s used in place of %s", heading, code)
		if res, ok := r.fromRecord(rec, field, model.SourceHeadingRate, model.ConfidenceHeading, heading, note); ok {
			return res, nil
		}

		// Tier 5: any record under the 2-digit chapter.
		chapter := model.HSChapter(code)
		rec, err = r.store.LookupChapter(ctx, chapter, originCountry)
		if err != nil {
			return model.Resolution{}, eris.Wrapf(err, "resolver: chapter lookup %s/%s", chapter, originCountry)
		}
		if rec != nil {
			note = fmt.Sprintf("chapter-level match: rate for %s applied to %s, verify manually before filing", rec.HSCode, code)
			if res, ok := r.fromRecord(rec, field, model.SourceChapterPrefix, model.ConfidenceChapter, rec.HSCode, note); ok {
				return res, nil
			}
		}
	}

	zap.L().Debug("resolver: no rate found",
		zap.String("hs_code", code),
		zap.String("origin", originCountry),
		zap.String("field", string(field)),
	)

	return model.Resolution{
		Source:        model.SourceNotFound,
		Confidence:    model.ConfidenceNone,
		HSCodeUsed:    code,
		NeedsResearch: true,
	}, nil
}

// fromRecord builds a Resolution from a record when its value for the
// requested field is non-nil. Zero is a hit; nil falls through.
func (r *Resolver) fromRecord(rec *model.PolicyTariffRecord, field model.RateField, source model.ResolutionSource, confidence int, codeUsed, note string) (model.Resolution, bool) {
	if rec == nil {
		return model.Resolution{}, false
	}
	value := rec.Rate(field)
	if value == nil {
		return model.Resolution{}, false
	}

	res := model.Resolution{
		Rate:           value,
		Confidence:     confidence,
		Source:         source,
		HSCodeUsed:     codeUsed,
		VerifiedSource: rec.VerifiedSource,
		VerifiedDate:   rec.VerifiedDate,
		Note:           note,
	}
	if confidence <= model.ConfidenceChapter {
		res.NeedsResearch = true
	}

	if rec.VerifiedDate != nil {
		age := int(r.now.Sub(*rec.VerifiedDate).Hours() / 24)
		if age < 0 {
			age = 0
		}
		res.DataAgeDays = &age
		if age > r.staleDays {
			stale := fmt.Sprintf("rate verified %d days ago, re-verify against current notices", age)
			if res.Note != "" {
				res.Note += "; " + stale
			} else {
				res.Note = stale
			}
		}
	}

	return res, true
}
