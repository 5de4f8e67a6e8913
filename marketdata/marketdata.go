// Package marketdata supplies live quotes and long-term close series from the
// exchange REST API, an optional websocket stream and a public chart API.
package marketdata

import (
	"context"

	"github.com/goatlabs/goat/types"
)

// Source yields the current last-traded price for every tradeable pair.
type Source interface {
	Quotes(ctx context.Context) ([]types.Quote, error)
}

// FallbackSource tries the primary source first, typically a websocket
// cache, and falls back to the secondary when the primary has nothing.
type FallbackSource struct {
	Primary   Source
	Secondary Source
}

func (s *FallbackSource) Quotes(ctx context.Context) ([]types.Quote, error) {
	quotes, err := s.Primary.Quotes(ctx)
	if err == nil && len(quotes) > 0 {
		return quotes, nil
	}
	return s.Secondary.Quotes(ctx)
}
