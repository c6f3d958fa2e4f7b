package repository

import (
	"encoding/json"
	"testing"

	"gorm.io/datatypes"
)

func TestMergeCandidates(t *testing.T) {
	t.Parallel()

	decode := func(t *testing.T, raw datatypes.JSON) []string {
		t.Helper()
		var keys []string
		if err := json.Unmarshal(raw, &keys); err != nil {
			t.Fatalf("merged candidates are not a string array: %v", err)
		}
		return keys
	}

	tests := []struct {
		name     string
		existing string
		incoming []string
		want     []string
	}{
		{
			name:     "empty set gains all keys",
			existing: "",
			incoming: []string{"a.png", "b.png"},
			want:     []string{"a.png", "b.png"},
		},
		{
			name:     "new keys append after existing in order",
			existing: `["a.png"]`,
			incoming: []string{"b.png", "c.png"},
			want:     []string{"a.png", "b.png", "c.png"},
		},
		{
			name:     "redelivered keys leave the set unchanged",
			existing: `["a.png","b.png"]`,
			incoming: []string{"b.png", "a.png"},
			want:     []string{"a.png", "b.png"},
		},
		{
			name:     "duplicates within one delivery collapse",
			existing: `["a.png"]`,
			incoming: []string{"b.png", "b.png"},
			want:     []string{"a.png", "b.png"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := decode(t, MergeCandidates(datatypes.JSON(tt.existing), tt.incoming))
			if len(got) != len(tt.want) {
				t.Fatalf("merged = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("merged = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
