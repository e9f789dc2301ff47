// Package parse turns freeform multi-line inventory text into a deduplicated,
// quantity-aggregated list of item entries.
package parse

import (
	"strconv"
	"strings"
)

// Entry is one deduplicated item line. DisplayName keeps the first-seen
// casing; quantities for repeated names accumulate.
type Entry struct {
	DisplayName string
	Quantity    int64
}

// Lines parses raw multi-line text into a map keyed by the lowercase item
// name. Lines that reduce to an empty name (only digits, only "x") are
// discarded.
func Lines(input string) map[string]Entry {
	entries := make(map[string]Entry)
	for _, rawLine := range strings.Split(input, "\n") {
		name, qty := parseLine(rawLine)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if existing, ok := entries[key]; ok {
			existing.Quantity += qty
			entries[key] = existing
			continue
		}
		entries[key] = Entry{DisplayName: name, Quantity: qty}
	}
	return entries
}

// parseLine extracts the item name and quantity from one line. The line may
// be a plain name, a "name qty" pair, or a pasted inventory row where the
// quantity is the first digits-only column after the name.
func parseLine(line string) (string, int64) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "", 0
	}

	// Inventory-row format: scan for the first digits-only token whose
	// preceding token is not itself numeric. That token is the quantity
	// boundary; everything before it is the name.
	for i := 1; i < len(tokens); i++ {
		if isDigits(tokens[i]) && !hasNumericPrefix(tokens[i-1]) {
			qty, _ := strconv.ParseInt(tokens[i], 10, 64)
			return strings.Join(tokens[:i], " "), clampQty(qty)
		}
	}

	// Fallback for simple lists: strip a trailing quantity token ("5",
	// "x3") or a bare trailing "x".
	qty := int64(1)
	last := tokens[len(tokens)-1]
	switch {
	case isDigits(last):
		qty, _ = strconv.ParseInt(last, 10, 64)
		tokens = tokens[:len(tokens)-1]
	case len(last) > 1 && (last[0] == 'x' || last[0] == 'X') && isDigits(last[1:]):
		qty, _ = strconv.ParseInt(last[1:], 10, 64)
		tokens = tokens[:len(tokens)-1]
	case strings.EqualFold(last, "x"):
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " "), clampQty(qty)
}

func clampQty(qty int64) int64 {
	if qty < 1 {
		return 1
	}
	return qty
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// hasNumericPrefix reports whether the token starts with a number, matching
// the lenient leading-number semantics of the pasted-row format (e.g.
// "5000" and "5,000" both count, "Hobgoblin" does not).
func hasNumericPrefix(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
	}
	return i < len(s) && s[i] >= '0' && s[i] <= '9'
}
