package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSnapshots(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		incoming string
		want     string
	}{
		{
			name:     "disjoint keys union",
			existing: `{"a":1}`,
			incoming: `{"b":2}`,
			want:     `{"a":1,"b":2}`,
		},
		{
			name:     "nested objects merge key by key",
			existing: `{"progress":{"answered":2,"skipped":1},"user":{"name":"kim"}}`,
			incoming: `{"progress":{"answered":3},"user":{"plan":"pro"}}`,
			want:     `{"progress":{"answered":3,"skipped":1},"user":{"name":"kim","plan":"pro"}}`,
		},
		{
			name:     "answered never rolls backward",
			existing: `{"progress":{"answered":5}}`,
			incoming: `{"progress":{"answered":2,"current":"q3"}}`,
			want:     `{"progress":{"answered":5,"current":"q3"}}`,
		},
		{
			name:     "arrays replace wholesale",
			existing: `{"items":[1,2,3]}`,
			incoming: `{"items":[4]}`,
			want:     `{"items":[4]}`,
		},
		{
			name:     "empty existing",
			existing: ``,
			incoming: `{"a":1}`,
			want:     `{"a":1}`,
		},
		{
			name:     "empty incoming keeps existing",
			existing: `{"a":1}`,
			incoming: ``,
			want:     `{"a":1}`,
		},
		{
			name:     "non-object incoming ignored",
			existing: `{"a":1}`,
			incoming: `[1,2]`,
			want:     `{"a":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeSnapshots(json.RawMessage(tt.existing), json.RawMessage(tt.incoming))
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestMergeSnapshotsDottedKeys(t *testing.T) {
	got := MergeSnapshots(json.RawMessage(`{}`), json.RawMessage(`{"a.b":"v"}`))
	assert.JSONEq(t, `{"a.b":"v"}`, string(got))
}
