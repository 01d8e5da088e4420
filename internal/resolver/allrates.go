package resolver

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/triangle-intelligence/compliance-cli/internal/model"
)

// ResolveAllPolicyRates resolves every overlay regime for one component.
// The four category lookups are independent, so they fan out in parallel
// and join before aggregation. Unresolved categories count as zero toward
// the total; the overall confidence is the minimum among categories that
// actually resolved, because the stacked estimate is only as trustworthy
// as its weakest input.
func (r *Resolver) ResolveAllPolicyRates(ctx context.Context, hsCode, originCountry string) (*model.PolicyRates, error) {
	results := make([]model.Resolution, len(model.RateFields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range model.RateFields {
		g.Go(func() error {
			res, err := r.ResolveRate(gctx, hsCode, originCountry, field)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pr := &model.PolicyRates{
		Section301: results[0],
		Section232: results[1],
		Section201: results[2],
		Reciprocal: results[3],
	}

	overall := model.ConfidenceNone
	for _, res := range results {
		if res.Rate == nil {
			continue
		}
		pr.TotalPolicyRate += *res.Rate
		if overall == model.ConfidenceNone || res.Confidence < overall {
			overall = res.Confidence
		}
	}
	pr.OverallConfidence = overall

	return pr, nil
}
