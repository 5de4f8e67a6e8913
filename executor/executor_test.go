package executor

import (
	"context"
	"testing"

	"github.com/goatlabs/goat/testutils"
	"github.com/goatlabs/goat/types"
)

func TestPaperPlacerFillsAndLogs(t *testing.T) {
	log := testutils.NewMockLogger()
	p := NewPaperPlacer(log)

	o := types.Order{
		Coin:    "BTC",
		Pair:    "BTC/USD",
		Side:    types.Buy,
		Qty:     0.5,
		Price:   20_000,
		Comment: "mean_reversion",
	}
	if err := p.Place(context.Background(), o); err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if got := log.LastMessage(); got != "order_filled" {
		t.Fatalf("expected order_filled log, got %q", got)
	}
}
