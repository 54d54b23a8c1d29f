package mutation

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

var jsonNull = []byte("null")

// removeItem drops the first item whose identity equals id from a list
// payload of the form {"items": [...], "total": n}. Fields other than items
// and total are carried over untouched.
//
// ok is false when data does not have that shape, when total is not a
// non-negative integer, or when an item does not decode as T. In that case
// the payload must not be interpreted at all.
func removeItem[T any](data []byte, id string, itemID func(T) string) (next []byte, removed int, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, 0, false
	}

	rawItems, hasItems := fields["items"]
	rawTotal, hasTotal := fields["total"]
	if !hasItems || !hasTotal || bytes.Equal(bytes.TrimSpace(rawTotal), jsonNull) {
		return nil, 0, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawItems, &items); err != nil || items == nil {
		return nil, 0, false
	}

	total, ok := parseTotal(rawTotal)
	if !ok {
		return nil, 0, false
	}

	kept := make([]json.RawMessage, 0, len(items))
	for _, raw := range items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, 0, false
		}
		if removed == 0 && itemID(item) == id {
			removed = 1
			continue
		}
		kept = append(kept, raw)
	}

	if removed == 0 {
		return data, 0, true
	}

	total -= int64(removed)
	if total < 0 {
		total = 0
	}

	encodedItems, err := json.Marshal(kept)
	if err != nil {
		return nil, 0, false
	}
	fields["items"] = encodedItems
	fields["total"] = json.RawMessage(strconv.FormatInt(total, 10))

	next, err = json.Marshal(fields)
	if err != nil {
		return nil, 0, false
	}
	return next, removed, true
}

// parseTotal accepts any JSON number with an integral, non-negative value,
// so 3, 3.0 and 3e0 all read as 3.
func parseTotal(raw json.RawMessage) (int64, bool) {
	// json.Number also decodes quoted numbers; a string total is not a count.
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] == '"' {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	if total, err := n.Int64(); err == nil {
		return total, total >= 0
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f != math.Trunc(f) || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
