package valuation

import (
	"reflect"
	"testing"

	"github.com/Jsharifz/Reprocess-King/internal/parse"
	"github.com/Jsharifz/Reprocess-King/internal/sde"
)

func testIndex() *sde.Index {
	types := []byte("typeID,groupID,typeName\n" +
		"34,18,Tritanium\n" +
		"35,18,Pyerite\n" +
		"1001,25,Test Module\n" +
		"1002,25,Hollow Module\n")
	materials := []byte("typeID,materialTypeID,quantity\n" +
		"1001,34,12\n" +
		"1001,35,4\n")
	groups := []byte("groupID,categoryID\n" +
		"18,4\n" +
		"25,7\n")
	return sde.BuildIndex(types, materials, groups)
}

func TestResolveDropsUnknownAndNonReprocessable(t *testing.T) {
	entries := map[string]parse.Entry{
		"test module":   {DisplayName: "Test Module", Quantity: 2},
		"hollow module": {DisplayName: "Hollow Module", Quantity: 1},
		"garbage line":  {DisplayName: "Garbage Line", Quantity: 1},
	}
	items, ids := Resolve(entries, testIndex())
	if len(items) != 1 {
		t.Fatalf("expected 1 resolved item, got %d", len(items))
	}
	item := items[0]
	if item.TypeID != 1001 || item.Quantity != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}
	if item.GroupID != 25 || item.CategoryID != 7 {
		t.Fatalf("unexpected classification: %+v", item)
	}
	if !reflect.DeepEqual(ids, []int64{34, 35, 1001}) {
		t.Fatalf("unexpected price id set: %v", ids)
	}
}

func TestResolveCaseInsensitiveLookup(t *testing.T) {
	entries := map[string]parse.Entry{
		"test module": {DisplayName: "TEST module", Quantity: 1},
	}
	items, _ := Resolve(entries, testIndex())
	if len(items) != 1 {
		t.Fatalf("expected resolution despite casing, got %d items", len(items))
	}
	if items[0].Name != "TEST module" {
		t.Fatalf("display name must keep user casing, got %q", items[0].Name)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	items, ids := Resolve(map[string]parse.Entry{}, testIndex())
	if len(items) != 0 || len(ids) != 0 {
		t.Fatalf("expected empty results, got %d items %d ids", len(items), len(ids))
	}
}
