package cmd

import (
	"io"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marketengine/binary-engine/internal/domain"
)

func samplePositions() []*domain.Position {
	return []*domain.Position{
		{TokenID: "token-c", Qty: 10, AvgCost: 0.50, RealizedPnL: 5.0},
		{TokenID: "token-a", Qty: 20, AvgCost: 0.40, RealizedPnL: 25.0},
		{TokenID: "token-b", Qty: 5, AvgCost: 0.60, RealizedPnL: -3.0},
	}
}

func TestPositionsSort_ByTokenID(t *testing.T) {
	list := samplePositions()
	sort.Slice(list, func(i, j int) bool { return list[i].TokenID < list[j].TokenID })

	assert.Equal(t, "token-a", list[0].TokenID)
	assert.Equal(t, "token-b", list[1].TokenID)
	assert.Equal(t, "token-c", list[2].TokenID)
}

func TestPositionsSort_ByRealizedPnL(t *testing.T) {
	list := samplePositions()
	sort.Slice(list, func(i, j int) bool { return list[i].RealizedPnL > list[j].RealizedPnL })

	assert.Equal(t, "token-a", list[0].TokenID, "highest P&L first")
	assert.Equal(t, "token-c", list[1].TokenID)
	assert.Equal(t, "token-b", list[2].TokenID, "most negative P&L last")
}

func TestPrintPositionsCSV_WritesHeaderAndRows(t *testing.T) {
	list := samplePositions()
	assert.Len(t, list, 3)
	for _, p := range list {
		assert.NotEmpty(t, p.TokenID)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w
	printErr := printPositionsCSV(list)
	os.Stdout = stdout
	w.Close()
	out, _ := io.ReadAll(r)

	assert.NoError(t, printErr)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	assert.Len(t, lines, 4)
	assert.Equal(t, "token_id,qty,avg_cost,realized_pnl", lines[0])
	assert.Equal(t, "token-c,10,0.5,5", lines[1])
}
