package view

import (
	"math"
	"reflect"
	"testing"

	"github.com/Jsharifz/Reprocess-King/internal/valuation"
)

func sampleRows() []valuation.Row {
	return []valuation.Row{
		{Name: "Alpha", CategoryID: 7, ItemCost: 1000, ReprocessValue: 1100, Diff: 100, Ratio: 1.1, Recommendation: "Reprocess"},
		{Name: "bravo", CategoryID: 8, ItemCost: 500, ReprocessValue: 400, Diff: -100, Ratio: 0.8, Recommendation: "Sell to buy orders"},
		{Name: "Charlie", CategoryID: 7, ItemCost: 200, ReprocessValue: 700, Diff: 500, Ratio: 3.5, Recommendation: "Reprocess"},
	}
}

func namesOf(rows []valuation.Row) []string {
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Name
	}
	return names
}

func TestApplyDoesNotMutateSource(t *testing.T) {
	rows := sampleRows()
	snapshot := make([]valuation.Row, len(rows))
	copy(snapshot, rows)

	_ = Apply(rows, Filters{ProfitableOnly: true}, DefaultSort())
	_ = Apply(rows, Filters{}, Sort{Column: ColName, Dir: DirAsc})

	if !reflect.DeepEqual(rows, snapshot) {
		t.Fatal("Apply mutated the source rows")
	}
	unfiltered := Apply(rows, Filters{}, DefaultSort())
	if len(unfiltered) != len(rows) {
		t.Fatalf("removing filters must restore full count, got %d", len(unfiltered))
	}
}

func TestApplyFilters(t *testing.T) {
	rows := sampleRows()

	noAmmo := Apply(rows, Filters{ExcludeAmmo: true}, Sort{Column: ColName, Dir: DirAsc})
	if !reflect.DeepEqual(namesOf(noAmmo), []string{"Alpha", "Charlie"}) {
		t.Fatalf("exclude ammo: got %v", namesOf(noAmmo))
	}

	profitable := Apply(rows, Filters{ProfitableOnly: true}, Sort{Column: ColName, Dir: DirAsc})
	if !reflect.DeepEqual(namesOf(profitable), []string{"Alpha", "Charlie"}) {
		t.Fatalf("profitable only: got %v", namesOf(profitable))
	}

	minRatio := Apply(rows, Filters{MinRatio: 2}, Sort{Column: ColName, Dir: DirAsc})
	if !reflect.DeepEqual(namesOf(minRatio), []string{"Charlie"}) {
		t.Fatalf("min ratio: got %v", namesOf(minRatio))
	}

	// Threshold 0 disables the ratio filter entirely.
	all := Apply(rows, Filters{MinRatio: 0}, Sort{Column: ColName, Dir: DirAsc})
	if len(all) != 3 {
		t.Fatalf("zero threshold must keep all rows, got %d", len(all))
	}
}

func TestApplySort(t *testing.T) {
	rows := sampleRows()

	byDiff := Apply(rows, Filters{}, Sort{Column: ColDiff, Dir: DirDesc})
	if !reflect.DeepEqual(namesOf(byDiff), []string{"Charlie", "Alpha", "bravo"}) {
		t.Fatalf("diff desc: got %v", namesOf(byDiff))
	}

	byName := Apply(rows, Filters{}, Sort{Column: ColName, Dir: DirAsc})
	if !reflect.DeepEqual(namesOf(byName), []string{"Alpha", "bravo", "Charlie"}) {
		t.Fatalf("name asc is case-insensitive: got %v", namesOf(byName))
	}
}

func TestNextSort(t *testing.T) {
	s := DefaultSort()
	if s.Column != ColDiff || s.Dir != DirDesc {
		t.Fatalf("unexpected default sort: %+v", s)
	}

	// Re-selecting the active column toggles direction.
	s = NextSort(s, ColDiff)
	if s.Dir != DirAsc {
		t.Fatalf("expected toggle to asc, got %+v", s)
	}
	s = NextSort(s, ColDiff)
	if s.Dir != DirDesc {
		t.Fatalf("expected toggle back to desc, got %+v", s)
	}

	// A new numeric column defaults descending, a string column ascending.
	s = NextSort(s, ColRatio)
	if s.Column != ColRatio || s.Dir != DirDesc {
		t.Fatalf("numeric column default: %+v", s)
	}
	s = NextSort(s, ColName)
	if s.Column != ColName || s.Dir != DirAsc {
		t.Fatalf("string column default: %+v", s)
	}
}

func TestValidDir(t *testing.T) {
	if !ValidDir(DirAsc) || !ValidDir(DirDesc) {
		t.Fatal("asc and desc must be valid directions")
	}
	if ValidDir("sideways") || ValidDir("") {
		t.Fatal("unexpected direction accepted")
	}
}

func TestTotals(t *testing.T) {
	totals := Totals(sampleRows())
	if totals.ItemCost != 1700 || totals.ReprocessValue != 2200 || totals.Diff != 500 {
		t.Fatalf("unexpected totals: %+v", totals)
	}
	if math.Abs(totals.Ratio-2200.0/1700.0) > 1e-9 {
		t.Fatalf("aggregate ratio: got %v", totals.Ratio)
	}

	if got := Totals(nil); got.Ratio != 0 {
		t.Fatalf("empty totals ratio must be 0, got %v", got.Ratio)
	}
}

func TestMergeBreakdown(t *testing.T) {
	rows := []valuation.Row{
		{Name: "A", Breakdown: []valuation.BreakdownLine{
			{Name: "Tritanium", Quantity: 10, UnitPrice: 4},
			{Name: "Pyerite", Quantity: 5, UnitPrice: 10},
		}},
		{Name: "B", Breakdown: []valuation.BreakdownLine{
			{Name: "Tritanium", Quantity: 7, UnitPrice: 4},
		}},
	}
	merged := MergeBreakdown(rows)
	want := []valuation.BreakdownLine{
		{Name: "Pyerite", Quantity: 5, UnitPrice: 10},
		{Name: "Tritanium", Quantity: 17, UnitPrice: 4},
	}
	if !reflect.DeepEqual(merged, want) {
		t.Fatalf("unexpected merge: %v", merged)
	}
}
