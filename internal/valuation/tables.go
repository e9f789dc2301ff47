package valuation

import "strings"

// Ammunition-class items reprocess in hundred-unit batches; everything else
// reprocesses one at a time.
const (
	categoryAmmunition = 8
	bulkBatchSize      = 100
)

// Groups whose catalog bills are stored in hundred-unit increments even
// though the items reprocess individually. Their per-batch quantities are
// divided by the stored denominator.
var perUnitBillDenominators = map[int64]float64{
	86:   100, // frequency crystals
	90:   100, // bombs
	4061: 100, // condenser packs
}

// Groups inside the bulk category that are still reprocessed individually.
var individuallyReprocessedGroups = map[int64]struct{}{
	86: {},
}

// Yield correction factors for families whose catalog bills diverge from
// real reprocessing output. Primary dispatch is by group id; when the group
// is unknown a normalized name-substring fallback applies.
var groupYieldFactors = map[int64]float64{
	90:   5,
	86:   0.2,
	4061: 0.02,
}

var nameYieldFactors = []struct {
	substr string
	factor float64
}{
	{"bomb", 5},
	{"crystal", 0.2},
	{"script", 0.02},
}

// batchSize returns the unit count over which an item's bill is expressed.
func batchSize(categoryID, groupID int64) float64 {
	if categoryID != categoryAmmunition {
		return 1
	}
	if _, ok := individuallyReprocessedGroups[groupID]; ok {
		return 1
	}
	return bulkBatchSize
}

// perBatchQuantity converts a stored bill quantity to the effective
// quantity per batch, unrolling the hundred-unit storage convention for
// per-unit-reprocessed groups.
func perBatchQuantity(groupID int64, stored int64) float64 {
	qty := float64(stored)
	if denom, ok := perUnitBillDenominators[groupID]; ok {
		return qty / denom
	}
	return qty
}

// yieldFactor returns the normalization multiplier for an item, 1 when no
// correction applies.
func yieldFactor(groupID int64, name string) float64 {
	if f, ok := groupYieldFactors[groupID]; ok {
		return f
	}
	lower := strings.ToLower(name)
	for _, nf := range nameYieldFactors {
		if strings.Contains(lower, nf.substr) {
			return nf.factor
		}
	}
	return 1
}
