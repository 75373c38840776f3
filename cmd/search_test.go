package cmd

import (
	"testing"
	"time"

	"github.com/iksnae/chatvault/internal/archive"
)

func TestDisplayHits(t *testing.T) {
	tests := []struct {
		name string
		hits []*archive.SearchHit
	}{
		{
			name: "no hits",
			hits: nil,
		},
		{
			name: "ranked hits",
			hits: []*archive.SearchHit{
				{
					ChatID:     1,
					ExternalID: "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
					Title:      "TLS handshake failure",
					Source:     "editor",
					Mode:       "agent",
					UpdatedAt:  time.Now().UnixMilli(),
					Snippet:    "the [handshake] fails when…",
					Score:      -4.2,
				},
				{
					ChatID:     2,
					ExternalID: "short",
					Title:      "",
					Source:     "legacy",
					Mode:       "chat",
					Snippet:    "",
					Score:      -1.1,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Rendering goes to stdout; just verify it doesn't panic.
			displayHits("handshake", tt.hits)
		})
	}
}
