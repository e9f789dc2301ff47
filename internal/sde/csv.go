package sde

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
)

// BuildIndex assembles an Index from the three raw CSV payloads. Malformed
// or short rows are skipped, not fatal.
func BuildIndex(typesCSV, materialsCSV, groupsCSV []byte) *Index {
	ix := &Index{
		nameToID:        make(map[string]int64),
		idToName:        make(map[int64]string),
		idToGroup:       make(map[int64]int64),
		groupToCategory: make(map[int64]int64),
		materials:       make(map[int64][]Material),
	}

	// invTypes: typeID,groupID,typeName,...
	forEachRow(typesCSV, 3, func(row []string) {
		typeID, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return
		}
		name := strings.TrimSpace(row[2])
		if name != "" {
			ix.nameToID[strings.ToLower(name)] = typeID
			ix.idToName[typeID] = name
		}
		if groupID, err := strconv.ParseInt(row[1], 10, 64); err == nil {
			ix.idToGroup[typeID] = groupID
		}
	})

	// invTypeMaterials: typeID,materialTypeID,quantity
	forEachRow(materialsCSV, 3, func(row []string) {
		typeID, err1 := strconv.ParseInt(row[0], 10, 64)
		matID, err2 := strconv.ParseInt(row[1], 10, 64)
		qty, err3 := strconv.ParseInt(row[2], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return
		}
		ix.materials[typeID] = append(ix.materials[typeID], Material{TypeID: matID, Quantity: qty})
	})

	// invGroups: groupID,categoryID,...
	forEachRow(groupsCSV, 2, func(row []string) {
		groupID, err1 := strconv.ParseInt(row[0], 10, 64)
		categoryID, err2 := strconv.ParseInt(row[1], 10, 64)
		if err1 != nil || err2 != nil {
			return
		}
		ix.groupToCategory[groupID] = categoryID
	})

	return ix
}

// forEachRow streams CSV records, skipping the header row and any record
// shorter than minFields.
func forEachRow(data []byte, minFields int, fn func(row []string)) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			continue
		}
		if first {
			first = false
			continue
		}
		if len(row) < minFields {
			continue
		}
		fn(row)
	}
}
