package domain

// OpenOrder is a live order reported by the exchange client.
type OpenOrder struct {
	OrderID     string
	TokenID     string
	Side        Side
	Price       float64
	Size        float64
	FilledSize  float64
	CreatedTSMs int64
}

// RemainingSize is the unfilled portion of the order.
func (o *OpenOrder) RemainingSize() float64 {
	return o.Size - o.FilledSize
}

// AgeMs returns how old the order is relative to nowMs.
func (o *OpenOrder) AgeMs(nowMs int64) int64 {
	return nowMs - o.CreatedTSMs
}
