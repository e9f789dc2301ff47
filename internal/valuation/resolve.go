package valuation

import (
	"sort"

	"github.com/Jsharifz/Reprocess-King/internal/parse"
	"github.com/Jsharifz/Reprocess-King/internal/sde"
)

// ResolvedItem is a catalog-backed input line: an entry whose name matched a
// known type carrying a non-empty reprocessing bill.
type ResolvedItem struct {
	Name       string
	TypeID     int64
	GroupID    int64
	CategoryID int64
	Quantity   int64
	Materials  []sde.Material
}

// Resolve matches parsed entries against the catalog and returns the
// surviving items plus the sorted distinct set of ids needing a price (each
// item's own id and every material id in its bill). Unknown names and
// non-reprocessable types are dropped silently.
func Resolve(entries map[string]parse.Entry, idx *sde.Index) ([]ResolvedItem, []int64) {
	items := make([]ResolvedItem, 0, len(entries))
	idSet := make(map[int64]struct{})

	for _, entry := range entries {
		typeID, ok := idx.TypeIDByName(entry.DisplayName)
		if !ok {
			continue
		}
		materials := idx.Materials(typeID)
		if len(materials) == 0 {
			continue
		}
		items = append(items, ResolvedItem{
			Name:       entry.DisplayName,
			TypeID:     typeID,
			GroupID:    idx.GroupOf(typeID),
			CategoryID: idx.CategoryOf(typeID),
			Quantity:   entry.Quantity,
			Materials:  materials,
		})
		idSet[typeID] = struct{}{}
		for _, m := range materials {
			idSet[m.TypeID] = struct{}{}
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return items, ids
}
