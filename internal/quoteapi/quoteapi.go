// Package quoteapi is the boundary to the quote calculation service, the only
// source of grade-neutral cost breakdowns. It contains both the HTTP client
// used by quoting sessions and the handler that serves the calculation.
package quoteapi

import (
	"context"

	"github.com/Simplici0/glassquote/internal/domain"
	"github.com/Simplici0/glassquote/internal/pricing"
)

// Request is the payload sent to the calculation service.
type Request struct {
	Registration  string                              `json:"registration"`
	Windows       []domain.Window                     `json:"windows"`
	Damage        map[domain.Window]domain.DamageKind `json:"damage"`
	Modifications []string                            `json:"modifications"`
	Grade         domain.Grade                        `json:"grade"`
	Delivery      domain.DeliveryType                 `json:"delivery_type"`
}

// Job converts the request into cost model input.
func (r Request) Job() pricing.Job {
	return pricing.Job{
		Selection:     domain.Selection(r.Windows),
		Damage:        domain.DamageRecord(r.Damage),
		Modifications: r.Modifications,
	}
}

// Local runs the cost model in-process. It is used when no remote
// calculation service is configured.
type Local struct {
	Rates pricing.Rates
}

// NewLocal returns a Local calculator using pricing.DefaultRates.
func NewLocal() Local {
	return Local{Rates: pricing.DefaultRates}
}

// Quote implements session.Quoter.
func (l Local) Quote(ctx context.Context, req Request) (domain.CostBreakdown, error) {
	if err := ctx.Err(); err != nil {
		return domain.CostBreakdown{}, err
	}
	return l.Rates.Estimate(req.Job())
}
