// Package valuation implements the arithmetic core: resolving parsed entries
// against the catalog, pricing their reprocessing bills, and deriving the
// reprocess-versus-sell comparison under a recovery and tax policy.
package valuation

import (
	"fmt"
	"math"

	"github.com/Jsharifz/Reprocess-King/internal/market"
)

// TradeSide selects which market statistic prices items and materials.
type TradeSide string

const (
	SideBuy  TradeSide = "buy"
	SideSell TradeSide = "sell"
)

// TaxMode selects which leg of the comparison the tax rate applies to.
type TaxMode string

const (
	TaxMinerals TaxMode = "minerals"
	TaxItem     TaxMode = "item"
	TaxBoth     TaxMode = "both"
)

// Recommendation labels. The disposal label depends on the trade side.
const (
	RecommendReprocess = "Reprocess"
	RecommendSellBuy   = "Sell to buy orders"
	RecommendListSell  = "List as sell order"
)

// Policy is the full valuation parameter set. Side and the item list fix the
// raw rows; the remaining fields can change between recomputations without
// refetching prices.
type Policy struct {
	Side     TradeSide `json:"side"`
	Recovery float64   `json:"recovery"`
	TaxRate  float64   `json:"taxRate"`
	TaxMode  TaxMode   `json:"taxMode"`
}

// Validate checks the policy ranges.
func (p Policy) Validate() error {
	if p.Side != SideBuy && p.Side != SideSell {
		return fmt.Errorf("invalid trade side %q", p.Side)
	}
	if p.Recovery < 0 || p.Recovery > 1 {
		return fmt.Errorf("recovery rate %v outside [0,1]", p.Recovery)
	}
	if p.TaxRate < 0 {
		return fmt.Errorf("tax rate %v negative", p.TaxRate)
	}
	if p.TaxMode != TaxMinerals && p.TaxMode != TaxItem && p.TaxMode != TaxBoth {
		return fmt.Errorf("invalid tax mode %q", p.TaxMode)
	}
	return nil
}

// billLine is one priced line of a raw row's reprocessing bill. PerBatch is
// the effective quantity per batch after the per-unit storage adjustment.
type billLine struct {
	Name      string
	PerBatch  float64
	UnitPrice float64
}

// RawRow is the price-dependent but policy-independent snapshot of one item:
// everything through the raw total material value, cached so policy changes
// recompute without touching the network.
type RawRow struct {
	Name       string
	TypeID     int64
	CategoryID int64
	Quantity   int64

	UnitPrice float64
	BatchSize float64
	RawBatch  float64
	Factor    float64

	bill []billLine
}

// BreakdownLine explains one recovered material for display. The quantities
// carry two separate floor roundings and are not fed back into the totals.
type BreakdownLine struct {
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// Row is the final per-item valuation.
type Row struct {
	Name           string          `json:"name"`
	TypeID         int64           `json:"typeId"`
	CategoryID     int64           `json:"categoryId"`
	Quantity       int64           `json:"quantity"`
	ItemCost       float64         `json:"itemCost"`
	ReprocessValue float64         `json:"reprocessValue"`
	Diff           float64         `json:"diff"`
	Ratio          float64         `json:"ratio"`
	Recommendation string          `json:"recommendation"`
	Breakdown      []BreakdownLine `json:"breakdown"`
}

// NameResolver supplies display names for material ids in breakdowns.
type NameResolver interface {
	NameOf(id int64) string
}

// BuildRaw prices each resolved item for the given trade side and produces
// the policy-independent raw rows. Missing quotes contribute zero, never an
// error.
func BuildRaw(items []ResolvedItem, quotes map[int64]Quote, side TradeSide, names NameResolver) []RawRow {
	rows := make([]RawRow, 0, len(items))
	for _, item := range items {
		raw := RawRow{
			Name:       item.Name,
			TypeID:     item.TypeID,
			CategoryID: item.CategoryID,
			Quantity:   item.Quantity,
			UnitPrice:  sidePrice(quotes[item.TypeID], side),
			BatchSize:  batchSize(item.CategoryID, item.GroupID),
			Factor:     yieldFactor(item.GroupID, item.Name),
		}
		raw.bill = make([]billLine, 0, len(item.Materials))
		for _, m := range item.Materials {
			line := billLine{
				Name:      names.NameOf(m.TypeID),
				PerBatch:  perBatchQuantity(item.GroupID, m.Quantity),
				UnitPrice: sidePrice(quotes[m.TypeID], side),
			}
			raw.RawBatch += line.UnitPrice * line.PerBatch
			raw.bill = append(raw.bill, line)
		}
		rows = append(rows, raw)
	}
	return rows
}

// Quote aliases the market statistic pair so callers outside the pricing
// path need not import the market package.
type Quote = market.Quote

func sidePrice(q Quote, side TradeSide) float64 {
	if side == SideSell {
		return q.Sell
	}
	return q.Buy
}

// Compute derives final rows from cached raw rows under a policy. It is pure
// over its inputs: calling it twice with identical arguments yields
// identical rows.
func Compute(raws []RawRow, policy Policy) []Row {
	rows := make([]Row, 0, len(raws))
	for i := range raws {
		rows = append(rows, computeRow(&raws[i], policy))
	}
	return rows
}

func computeRow(raw *RawRow, policy Policy) Row {
	batches := float64(raw.Quantity) / raw.BatchSize
	rawTotal := raw.RawBatch * batches
	gross := rawTotal * raw.Factor * policy.Recovery

	var taxMinerals, taxItem float64
	if policy.TaxMode == TaxMinerals || policy.TaxMode == TaxBoth {
		taxMinerals = gross * policy.TaxRate
	}
	itemCost := raw.UnitPrice * float64(raw.Quantity)
	if policy.TaxMode == TaxItem || policy.TaxMode == TaxBoth {
		taxItem = itemCost * policy.TaxRate
	}

	reprocess := gross - taxMinerals
	displayCost := itemCost - taxItem
	diff := reprocess - displayCost

	var ratio float64
	if displayCost > 0 {
		ratio = reprocess / displayCost
	}

	rec := RecommendSellBuy
	if policy.Side == SideSell {
		rec = RecommendListSell
	}
	if diff > 0 {
		rec = RecommendReprocess
	}

	breakdown := make([]BreakdownLine, 0, len(raw.bill))
	for _, line := range raw.bill {
		recovered := math.Floor(line.PerBatch * batches * policy.Recovery)
		recovered = math.Floor(recovered * raw.Factor)
		breakdown = append(breakdown, BreakdownLine{
			Name:      line.Name,
			Quantity:  int64(recovered),
			UnitPrice: line.UnitPrice,
		})
	}

	return Row{
		Name:           raw.Name,
		TypeID:         raw.TypeID,
		CategoryID:     raw.CategoryID,
		Quantity:       raw.Quantity,
		ItemCost:       displayCost,
		ReprocessValue: reprocess,
		Diff:           diff,
		Ratio:          ratio,
		Recommendation: rec,
		Breakdown:      breakdown,
	}
}
