package marketapi

import (
	"context"
	"fmt"

	"github.com/jwerderits/farmspread/internal/domain"
)

// ListMarkets returns every market resource listed at rootURI.
func (c *Client) ListMarkets(ctx context.Context, rootURI string) ([]domain.ResourceRef, error) {
	markets, err := List[domain.ResourceRef](ctx, c, rootURI)
	if err != nil {
		return nil, fmt.Errorf("ListMarkets: %w", err)
	}
	return markets, nil
}

// GetMarket fetches a market detail, which lists its seasons.
func (c *Client) GetMarket(ctx context.Context, uri string) (*domain.MarketDetail, error) {
	var m domain.MarketDetail
	if err := c.GetJSON(ctx, uri, &m); err != nil {
		return nil, fmt.Errorf("GetMarket: %w", err)
	}
	return &m, nil
}

// GetSeason fetches a season detail, which lists its events.
func (c *Client) GetSeason(ctx context.Context, uri string) (*domain.SeasonDetail, error) {
	var s domain.SeasonDetail
	if err := c.GetJSON(ctx, uri, &s); err != nil {
		return nil, fmt.Errorf("GetSeason: %w", err)
	}
	return &s, nil
}

// GetEvent fetches an event detail with its stalls.
func (c *Client) GetEvent(ctx context.Context, uri string) (*domain.EventDetail, error) {
	var e domain.EventDetail
	if err := c.GetJSON(ctx, uri, &e); err != nil {
		return nil, fmt.Errorf("GetEvent: %w", err)
	}
	return &e, nil
}
