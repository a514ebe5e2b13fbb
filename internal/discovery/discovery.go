// Package discovery walks the markets -> seasons -> events hierarchy and
// returns every event with its start time.
package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/jwerderits/farmspread/internal/domain"
	"github.com/jwerderits/farmspread/internal/logger"
)

// Fetcher is the subset of the API client discovery needs.
type Fetcher interface {
	ListMarkets(ctx context.Context, rootURI string) ([]domain.ResourceRef, error)
	GetMarket(ctx context.Context, uri string) (*domain.MarketDetail, error)
	GetSeason(ctx context.Context, uri string) (*domain.SeasonDetail, error)
}

// Discoverer resolves event references from the API root.
type Discoverer struct {
	fetcher  Fetcher
	location *time.Location
}

// New creates a Discoverer that interprets naive event timestamps in loc.
func New(fetcher Fetcher, loc *time.Location) *Discoverer {
	if loc == nil {
		loc = time.UTC
	}
	return &Discoverer{fetcher: fetcher, location: loc}
}

// Discover returns the events of every season of every market listed at
// rootURI, in API order. Events repeated across seasons are kept. Any fetch
// or parse failure aborts discovery.
func (d *Discoverer) Discover(ctx context.Context, rootURI string) ([]domain.EventRef, error) {
	log := logger.FromContext(ctx)

	markets, err := d.fetcher.ListMarkets(ctx, rootURI)
	if err != nil {
		return nil, fmt.Errorf("Discover: list markets: %w", err)
	}

	var events []domain.EventRef
	seasons := 0
	for _, m := range markets {
		market, err := d.fetcher.GetMarket(ctx, m.ResourceURI)
		if err != nil {
			return nil, fmt.Errorf("Discover: market %s: %w", m.ResourceURI, err)
		}

		for _, s := range market.Seasons {
			season, err := d.fetcher.GetSeason(ctx, s.ResourceURI)
			if err != nil {
				return nil, fmt.Errorf("Discover: season %s: %w", s.ResourceURI, err)
			}
			seasons++

			for _, e := range season.Events {
				start, err := domain.ParseTimestamp(e.StartDatetime, d.location)
				if err != nil {
					return nil, fmt.Errorf("Discover: season %s: event %s: %w", s.ResourceURI, e.ResourceURI, err)
				}
				events = append(events, domain.EventRef{URI: e.ResourceURI, StartTime: start})
			}
		}
	}

	log.Info().
		Int("markets", len(markets)).
		Int("seasons", seasons).
		Int("events", len(events)).
		Msg("Discovered events")

	return events, nil
}
