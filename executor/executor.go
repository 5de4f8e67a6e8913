// Package executor forwards committed orders to a trading venue. The ledger
// is the book of record; placement failures are surfaced to the caller but
// never unwind a committed trade.
package executor

import (
	"context"

	"github.com/goatlabs/goat/logger"
	"github.com/goatlabs/goat/metrics"
	"github.com/goatlabs/goat/types"
)

type OrderPlacer interface {
	Place(ctx context.Context, o types.Order) error
}

// PaperPlacer fills every order instantly at the quoted price.
type PaperPlacer struct {
	log logger.Logger
}

func NewPaperPlacer(log logger.Logger) *PaperPlacer {
	return &PaperPlacer{log: log}
}

func (p *PaperPlacer) Place(_ context.Context, o types.Order) error {
	p.log.Info("order_filled",
		logger.String("pair", o.Pair),
		logger.String("side", string(o.Side)),
		logger.Float64("qty", o.Qty),
		logger.Float64("price", o.Price),
		logger.String("comment", o.Comment),
	)
	metrics.OrdersPlaced.WithLabelValues(string(o.Side), "filled").Inc()
	return nil
}
