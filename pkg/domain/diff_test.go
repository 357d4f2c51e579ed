package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name      string
		old       *Session
		new       *Session
		wantNil   bool
		wantAddr  *string
		wantState map[string]*Value
		wantCPs   int
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &Session{
				ID:      "sess-1",
				Address: "0.1",
				Turn:    1,
				State:   map[string]Value{"a": Num(1)},
			},
			wantAddr:  ptr("0.1"),
			wantState: map[string]*Value{"a": ptr(Num(1))},
		},
		{
			name:    "No Changes",
			old:     &Session{ID: "sess-1", Address: "0.1", Turn: 2, State: map[string]Value{"a": Num(1)}},
			new:     &Session{ID: "sess-1", Address: "0.1", Turn: 2, State: map[string]Value{"a": Num(1)}},
			wantNil: true,
		},
		{
			name:      "State Added & Modified",
			old:       &Session{ID: "sess-1", State: map[string]Value{"a": Num(1), "b": Str("old")}},
			new:       &Session{ID: "sess-1", State: map[string]Value{"a": Num(1), "b": Str("new"), "c": Bool(true)}},
			wantState: map[string]*Value{"b": ptr(Str("new")), "c": ptr(Bool(true))},
		},
		{
			name:      "State Deletion",
			old:       &Session{State: map[string]Value{"a": Num(1), "b": Num(2)}},
			new:       &Session{State: map[string]Value{"a": Num(1)}},
			wantState: map[string]*Value{"b": nil},
		},
		{
			name: "Checkpoint Append",
			old:  &Session{ID: "sess-1", Checkpoints: []Checkpoint{{Turn: 1}}},
			new: &Session{ID: "sess-1", Checkpoints: []Checkpoint{
				{Turn: 1},
				{Turn: 2, Events: []Event{{Kind: EventDialog, Body: "hi"}}},
			}},
			wantCPs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.new.ID, got.SessionID)
			assert.Equal(t, tt.wantAddr, got.Address)
			assert.Equal(t, tt.wantState, got.State)
			assert.Equal(t, tt.wantCPs, got.Checkpoints)
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &Session{State: map[string]Value{"a": Num(1), "b": Num(2)}}
		s2 := &Session{State: map[string]Value{"a": Num(1)}}
		diff := Diff(s1, s2)
		require.NotNil(t, diff)

		bytes, err := json.Marshal(diff)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(bytes), `"b":null`), string(bytes))
	})

	t.Run("Empty State Omitted", func(t *testing.T) {
		s1 := &Session{Turn: 1, State: map[string]Value{"a": Num(1)}}
		s2 := &Session{Turn: 2, State: map[string]Value{"a": Num(1)}}
		diff := Diff(s1, s2)
		require.NotNil(t, diff)

		bytes, err := json.Marshal(diff)
		require.NoError(t, err)
		assert.NotContains(t, string(bytes), `"state"`)
	})
}

func ptr[T any](v T) *T { return &v }
