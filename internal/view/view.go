// Package view turns valuation rows into display order: independently
// toggleable filters, a stable single-column sort, and aggregate totals over
// the filtered set. It never mutates the source rows.
package view

import (
	"sort"
	"strings"

	"github.com/Jsharifz/Reprocess-King/internal/valuation"
)

// Sortable columns.
const (
	ColName           = "name"
	ColItemCost       = "itemCost"
	ColReprocessValue = "reprocessValue"
	ColDiff           = "diff"
	ColRatio          = "ratio"
	ColRecommendation = "recommendation"
)

const (
	DirAsc  = "asc"
	DirDesc = "desc"
)

const categoryAmmunition = 8

// Filters are applied in declaration order; each is independently
// toggleable. MinRatio is inactive at 0.
type Filters struct {
	ExcludeAmmo    bool    `json:"excludeAmmo"`
	ProfitableOnly bool    `json:"profitableOnly"`
	MinRatio       float64 `json:"minRatio"`
}

// Sort is the active column and direction.
type Sort struct {
	Column string `json:"column"`
	Dir    string `json:"dir"`
}

// DefaultSort orders by difference, best first.
func DefaultSort() Sort {
	return Sort{Column: ColDiff, Dir: DirDesc}
}

// NextSort returns the sort state after selecting a column: re-selecting the
// active column flips direction; a new column resets to ascending for string
// columns and descending for numeric ones.
func NextSort(current Sort, column string) Sort {
	if current.Column == column {
		dir := DirAsc
		if current.Dir == DirAsc {
			dir = DirDesc
		}
		return Sort{Column: column, Dir: dir}
	}
	dir := DirDesc
	if isStringColumn(column) {
		dir = DirAsc
	}
	return Sort{Column: column, Dir: dir}
}

func isStringColumn(column string) bool {
	return column == ColName || column == ColRecommendation
}

// ValidColumn reports whether column names a sortable column.
func ValidColumn(column string) bool {
	switch column {
	case ColName, ColItemCost, ColReprocessValue, ColDiff, ColRatio, ColRecommendation:
		return true
	}
	return false
}

// ValidDir reports whether dir names a sort direction.
func ValidDir(dir string) bool {
	return dir == DirAsc || dir == DirDesc
}

// Apply filters and sorts a copy of rows. The input slice and its rows are
// left untouched.
func Apply(rows []valuation.Row, filters Filters, s Sort) []valuation.Row {
	out := make([]valuation.Row, 0, len(rows))
	for _, row := range rows {
		if filters.ExcludeAmmo && row.CategoryID == categoryAmmunition {
			continue
		}
		if filters.ProfitableOnly && row.Diff <= 0 {
			continue
		}
		if filters.MinRatio > 0 && row.Ratio < filters.MinRatio {
			continue
		}
		out = append(out, row)
	}

	less := lessFunc(s.Column)
	asc := s.Dir != DirDesc
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return less(&out[i], &out[j])
		}
		return less(&out[j], &out[i])
	})
	return out
}

func lessFunc(column string) func(a, b *valuation.Row) bool {
	switch column {
	case ColName:
		return func(a, b *valuation.Row) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case ColItemCost:
		return func(a, b *valuation.Row) bool { return a.ItemCost < b.ItemCost }
	case ColReprocessValue:
		return func(a, b *valuation.Row) bool { return a.ReprocessValue < b.ReprocessValue }
	case ColRatio:
		return func(a, b *valuation.Row) bool { return a.Ratio < b.Ratio }
	case ColRecommendation:
		return func(a, b *valuation.Row) bool { return a.Recommendation < b.Recommendation }
	default:
		return func(a, b *valuation.Row) bool { return a.Diff < b.Diff }
	}
}

// TotalsRow sums the comparison columns over a filtered row set. Ratio is
// the aggregate reprocess value over the aggregate cost, 0 when the cost is
// not positive.
type TotalsRow struct {
	ItemCost       float64 `json:"itemCost"`
	ReprocessValue float64 `json:"reprocessValue"`
	Diff           float64 `json:"diff"`
	Ratio          float64 `json:"ratio"`
}

// Totals computes column sums over rows.
func Totals(rows []valuation.Row) TotalsRow {
	var t TotalsRow
	for _, row := range rows {
		t.ItemCost += row.ItemCost
		t.ReprocessValue += row.ReprocessValue
		t.Diff += row.Diff
	}
	if t.ItemCost > 0 {
		t.Ratio = t.ReprocessValue / t.ItemCost
	}
	return t
}

// MergeBreakdown merges every row's material breakdown by material name,
// summing quantities, for a combined explanation. Output is sorted by name.
func MergeBreakdown(rows []valuation.Row) []valuation.BreakdownLine {
	merged := make(map[string]valuation.BreakdownLine)
	for _, row := range rows {
		for _, line := range row.Breakdown {
			agg := merged[line.Name]
			agg.Name = line.Name
			agg.Quantity += line.Quantity
			agg.UnitPrice = line.UnitPrice
			merged[line.Name] = agg
		}
	}
	out := make([]valuation.BreakdownLine, 0, len(merged))
	for _, line := range merged {
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
