// Package sde loads and indexes the static data export: the type catalog,
// the reprocessing material bills, and the group-to-category map.
package sde

import "strings"

// Material is one line of an item's reprocessing bill, quantities expressed
// per batch as stored in the export.
type Material struct {
	TypeID   int64
	Quantity int64
}

// Index holds the immutable-after-load catalog mappings for a session.
type Index struct {
	nameToID        map[string]int64
	idToName        map[int64]string
	idToGroup       map[int64]int64
	groupToCategory map[int64]int64
	materials       map[int64][]Material
}

// TypeIDByName resolves a display name to a type id, case-insensitively.
func (ix *Index) TypeIDByName(name string) (int64, bool) {
	id, ok := ix.nameToID[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// NameOf returns the canonical catalog name for a type id, or "" if unknown.
func (ix *Index) NameOf(id int64) string {
	return ix.idToName[id]
}

// GroupOf returns the group id for a type, or 0 if unknown.
func (ix *Index) GroupOf(id int64) int64 {
	return ix.idToGroup[id]
}

// CategoryOf returns the category id for a type via its group, or 0.
func (ix *Index) CategoryOf(id int64) int64 {
	group, ok := ix.idToGroup[id]
	if !ok {
		return 0
	}
	return ix.groupToCategory[group]
}

// Materials returns the reprocessing bill for a type. A nil or empty bill
// marks the type as non-reprocessable.
func (ix *Index) Materials(id int64) []Material {
	return ix.materials[id]
}

// Stats reports index sizes for logging and the probe tool.
func (ix *Index) Stats() (types, bills, groups int) {
	return len(ix.nameToID), len(ix.materials), len(ix.groupToCategory)
}
