package store

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// answeredPath is the progress counter that must never roll backward across
// merges, even when a stale client posts an older snapshot.
const answeredPath = "progress.answered"

// MergeSnapshots deep-merges incoming into existing. Objects merge key by
// key; scalars and arrays from incoming replace the existing value. The
// answered progress count keeps whichever side is higher.
func MergeSnapshots(existing, incoming json.RawMessage) json.RawMessage {
	if len(existing) == 0 || !gjson.ParseBytes(existing).IsObject() {
		existing = json.RawMessage(`{}`)
	}
	if len(incoming) == 0 {
		return existing
	}
	in := gjson.ParseBytes(incoming)
	if !in.IsObject() {
		return existing
	}

	merged := mergeObject(existing, "", in)

	prev := gjson.GetBytes(existing, answeredPath)
	cur := gjson.GetBytes(merged, answeredPath)
	if prev.Exists() && (!cur.Exists() || cur.Int() < prev.Int()) {
		if out, err := sjson.SetBytes(merged, answeredPath, prev.Int()); err == nil {
			merged = out
		}
	}
	return merged
}

func mergeObject(dst json.RawMessage, prefix string, obj gjson.Result) json.RawMessage {
	obj.ForEach(func(key, val gjson.Result) bool {
		path := escapeKey(key.String())
		if prefix != "" {
			path = prefix + "." + path
		}
		if val.IsObject() {
			dst = mergeObject(dst, path, val)
			return true
		}
		if out, err := sjson.SetRawBytes(dst, path, []byte(val.Raw)); err == nil {
			dst = out
		}
		return true
	})
	return dst
}

// escapeKey protects sjson path metacharacters in object keys.
func escapeKey(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`)
	return r.Replace(key)
}
