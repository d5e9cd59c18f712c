package store

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/marketengine/binary-engine/internal/domain"
)

func TestConsole_SaveAndLoadPositions(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	c := NewConsole(logger)

	pos := &domain.Position{TokenID: "yes", Qty: 10, AvgCost: 0.5}
	if err := c.SavePosition(context.Background(), pos); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	loaded, err := c.LoadPositions(context.Background())
	if err != nil {
		t.Fatalf("LoadPositions: %v", err)
	}
	if loaded["yes"].Qty != 10 {
		t.Fatalf("expected loaded position qty=10, got %+v", loaded["yes"])
	}
}

func TestConsole_RecentDecisionsOrdering(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	c := NewConsole(logger)

	for i := int64(0); i < 3; i++ {
		c.SaveDecision(context.Background(), &domain.Decision{TokenID: "yes", TSMs: i})
	}

	recent, err := c.RecentDecisions(context.Background(), 2)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(recent) != 2 || recent[0].TSMs != 2 || recent[1].TSMs != 1 {
		t.Fatalf("expected most recent decisions first, got %+v", recent)
	}
}

func TestConsole_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	c := NewConsole(logger)

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
