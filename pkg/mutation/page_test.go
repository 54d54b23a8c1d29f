package mutation

import (
	"encoding/json"
	"testing"
)

type testItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func testItemID(item testItem) string { return item.ID }

func TestRemoveItem(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		id          string
		wantOK      bool
		wantRemoved int
		wantItems   []string
		wantTotal   int64
	}{
		{
			name:        "removes matching item",
			data:        `{"items":[{"id":"a"},{"id":"b"},{"id":"c"}],"total":3}`,
			id:          "b",
			wantOK:      true,
			wantRemoved: 1,
			wantItems:   []string{"a", "c"},
			wantTotal:   2,
		},
		{
			name:        "removes only the first duplicate",
			data:        `{"items":[{"id":"a"},{"id":"a"}],"total":2}`,
			id:          "a",
			wantOK:      true,
			wantRemoved: 1,
			wantItems:   []string{"a"},
			wantTotal:   1,
		},
		{
			name:        "total never drops below zero",
			data:        `{"items":[{"id":"a"}],"total":0}`,
			id:          "a",
			wantOK:      true,
			wantRemoved: 1,
			wantItems:   []string{},
			wantTotal:   0,
		},
		{
			name:        "missing id removes nothing",
			data:        `{"items":[{"id":"a"}],"total":1}`,
			id:          "zzz",
			wantOK:      true,
			wantRemoved: 0,
		},
		{
			name:        "total with fraction digits",
			data:        `{"items":[{"id":"a"},{"id":"b"}],"total":3.0}`,
			id:          "a",
			wantOK:      true,
			wantRemoved: 1,
			wantItems:   []string{"b"},
			wantTotal:   2,
		},
		{
			name:        "total in exponent form",
			data:        `{"items":[{"id":"a"}],"total":1e1}`,
			id:          "a",
			wantOK:      true,
			wantRemoved: 1,
			wantItems:   []string{},
			wantTotal:   9,
		},
		{name: "not an object", data: `[1,2,3]`, id: "a"},
		{name: "null payload", data: `null`, id: "a"},
		{name: "missing items", data: `{"total":1}`, id: "a"},
		{name: "missing total", data: `{"items":[]}`, id: "a"},
		{name: "items not an array", data: `{"items":{},"total":1}`, id: "a"},
		{name: "items null", data: `{"items":null,"total":1}`, id: "a"},
		{name: "total null", data: `{"items":[],"total":null}`, id: "a"},
		{name: "total negative", data: `{"items":[],"total":-1}`, id: "a"},
		{name: "total fractional", data: `{"items":[],"total":1.5}`, id: "a"},
		{name: "total string", data: `{"items":[],"total":"1"}`, id: "a"},
		{name: "total exponent fractional", data: `{"items":[],"total":15e-1}`, id: "a"},
		{name: "total out of range", data: `{"items":[],"total":1e400}`, id: "a"},
		{name: "item wrong shape", data: `{"items":["a"],"total":1}`, id: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, removed, ok := removeItem([]byte(tt.data), tt.id, testItemID)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if removed != tt.wantRemoved {
				t.Errorf("removed = %d, want %d", removed, tt.wantRemoved)
			}
			if !ok || removed == 0 {
				return
			}

			var page struct {
				Items []testItem `json:"items"`
				Total int64      `json:"total"`
			}
			if err := json.Unmarshal(next, &page); err != nil {
				t.Fatalf("result is not valid JSON: %v", err)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", page.Total, tt.wantTotal)
			}
			if len(page.Items) != len(tt.wantItems) {
				t.Fatalf("items = %+v, want ids %v", page.Items, tt.wantItems)
			}
			for i, id := range tt.wantItems {
				if page.Items[i].ID != id {
					t.Errorf("items[%d].id = %s, want %s", i, page.Items[i].ID, id)
				}
			}
		})
	}
}

func TestRemoveItem_PreservesOtherFields(t *testing.T) {
	data := `{"items":[{"id":"a","name":"keep","extra":{"x":1}},{"id":"b"}],"total":2,"limit":50,"offset":0,"cursor":"abc"}`

	next, removed, ok := removeItem([]byte(data), "b", testItemID)
	if !ok || removed != 1 {
		t.Fatalf("removeItem() = removed %d ok %v", removed, ok)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(next, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for field, want := range map[string]string{
		"limit":  `50`,
		"offset": `0`,
		"cursor": `"abc"`,
		"items":  `[{"id":"a","name":"keep","extra":{"x":1}}]`,
		"total":  `1`,
	} {
		if string(fields[field]) != want {
			t.Errorf("%s = %s, want %s", field, fields[field], want)
		}
	}
}

func TestRemoveItem_MissReturnsInputUnchanged(t *testing.T) {
	data := []byte(`{"items": [ {"id":"a"} ], "total": 1}`)
	next, removed, ok := removeItem(data, "b", testItemID)
	if !ok || removed != 0 {
		t.Fatalf("removeItem() = removed %d ok %v", removed, ok)
	}
	if string(next) != string(data) {
		t.Errorf("payload rewritten on miss: %s", next)
	}
}
