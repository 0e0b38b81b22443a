package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MaxQuantity caps a single line. Adds that would exceed it saturate.
const MaxQuantity = 999

// clampQuantity bounds q to MaxQuantity. Non-positive values pass through so
// callers keep their drop/remove semantics.
func clampQuantity(q int) int {
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

// addQuantity sums two positive quantities without overflowing past
// MaxQuantity.
func addQuantity(a, b int) int {
	if b >= MaxQuantity-a {
		return MaxQuantity
	}
	return a + b
}

// LineItem is one purchasable variant in the cart. VariantID is the cart key.
type LineItem struct {
	VariantID    int64           `json:"variantId"`
	ProductName  string          `json:"productName"`
	VariantLabel string          `json:"variantLabel"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
}

// Subtotal is price × quantity for the line.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// State is the persisted shape of a cart.
type State struct {
	Items []LineItem `json:"items"`
}

// Totals are derived from State on every read and never stored.
type Totals struct {
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// Snapshot is what listeners receive after a change.
type Snapshot struct {
	Items  []LineItem `json:"items"`
	Totals Totals     `json:"totals"`
}

func computeTotals(items []LineItem) Totals {
	totals := Totals{TotalPrice: decimal.Zero}
	for _, item := range items {
		totals.TotalItems += item.Quantity
		totals.TotalPrice = totals.TotalPrice.Add(item.Subtotal())
	}
	return totals
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// normalize enforces the cart invariants on data that did not come through
// the store: non-positive quantities are dropped, quantities are capped at
// MaxQuantity and duplicate variants are merged into the first occurrence.
func normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := make(map[int64]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		item.Quantity = clampQuantity(item.Quantity)
		if pos, ok := index[item.VariantID]; ok {
			out[pos].Quantity = addQuantity(out[pos].Quantity, item.Quantity)
			continue
		}
		index[item.VariantID] = len(out)
		out = append(out, item)
	}
	return out
}

// EncodeState serializes a cart for durable storage.
func EncodeState(state State) ([]byte, error) {
	if state.Items == nil {
		state.Items = []LineItem{}
	}
	return json.Marshal(state)
}

// DecodeState parses a stored cart. Malformed payloads report ok=false so
// callers can treat them as an empty cart.
func DecodeState(payload []byte) (State, bool) {
	if len(payload) == 0 {
		return State{}, false
	}
	var raw struct {
		Items *[]LineItem `json:"items"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil || raw.Items == nil {
		return State{}, false
	}
	return State{Items: normalize(*raw.Items)}, true
}
