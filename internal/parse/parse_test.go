package parse

import "testing"

func TestLinesAccumulatesDuplicates(t *testing.T) {
	entries := Lines("Tritanium\nTritanium 5\ntritanium x3")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry, ok := entries["tritanium"]
	if !ok {
		t.Fatal("expected tritanium entry")
	}
	if entry.Quantity != 9 {
		t.Fatalf("expected quantity 9, got %d", entry.Quantity)
	}
	if entry.DisplayName != "Tritanium" {
		t.Fatalf("expected first-seen casing retained, got %q", entry.DisplayName)
	}
}

func TestLinesInventoryRowBoundary(t *testing.T) {
	entries := Lines("Hobgoblin II\t5\t25 m3")
	entry, ok := entries["hobgoblin ii"]
	if !ok {
		t.Fatalf("expected hobgoblin entry, got %v", entries)
	}
	if entry.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", entry.Quantity)
	}
}

func TestLinesBoundarySkipsNumericPredecessor(t *testing.T) {
	// "5,000" has a numeric prefix, so "3" directly after it is not the
	// quantity boundary; the fallback strips the trailing digits instead.
	entries := Lines("Compressed Veldspar 5,000 3")
	entry, ok := entries["compressed veldspar 5,000"]
	if !ok {
		t.Fatalf("unexpected entries: %v", entries)
	}
	if entry.Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", entry.Quantity)
	}
}

func TestLinesTrailingQuantityForms(t *testing.T) {
	cases := []struct {
		line string
		name string
		qty  int64
	}{
		{"Pyerite 250", "pyerite", 250},
		{"Pyerite x4", "pyerite", 4},
		{"Pyerite x", "pyerite", 1},
		{"Pyerite", "pyerite", 1},
	}
	for _, tc := range cases {
		entries := Lines(tc.line)
		entry, ok := entries[tc.name]
		if !ok {
			t.Fatalf("line %q: missing entry %q", tc.line, tc.name)
		}
		if entry.Quantity != tc.qty {
			t.Fatalf("line %q: expected quantity %d, got %d", tc.line, tc.qty, entry.Quantity)
		}
	}
}

func TestLinesDiscardsNamelessLines(t *testing.T) {
	entries := Lines("42\nx\n\n   ")
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %v", entries)
	}
}

func TestLinesClampsQuantity(t *testing.T) {
	entries := Lines("Mexallon 0")
	if entries["mexallon"].Quantity != 1 {
		t.Fatalf("expected clamp to 1, got %d", entries["mexallon"].Quantity)
	}
}
