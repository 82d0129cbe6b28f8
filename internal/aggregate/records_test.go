package aggregate

import (
	"testing"

	"github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestUpsert(t *testing.T) {
	tests := []struct {
		name     string
		existing []models.Attachment
		stored   []models.Attachment
		want     []string
	}{
		{
			name:     "appends new records",
			existing: []models.Attachment{{ID: "a"}},
			stored:   []models.Attachment{{ID: "b"}, {ID: "c"}},
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "record already fetched is replaced in place",
			existing: []models.Attachment{{ID: "a"}, {ID: "b", Name: "old"}},
			stored:   []models.Attachment{{ID: "b", Name: "new"}, {ID: "c"}},
			want:     []string{"a", "b", "c"},
		},
		{
			name:   "empty list",
			stored: []models.Attachment{{ID: "a"}},
			want:   []string{"a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := upsert(tt.existing, attachmentKey, tt.stored...)

			ids := make([]string, len(got))
			for i, a := range got {
				ids[i] = a.ID
				if a.ID == "b" && len(tt.existing) > 1 {
					assert.Equal(t, "new", a.Name)
				}
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}
