package export

import (
	"testing"
)

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"jsonl", "jsonl", false},
		{"md", "md", false},
		{"markdown", "md", false},
		{"yaml", "yaml", false},
		{"json", "json", false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := exporter.Extension(); got != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", got, tt.wantExt)
			}
		})
	}
}

func TestNewExporter_MarkdownAlias(t *testing.T) {
	short, err := NewExporter("md")
	if err != nil {
		t.Fatalf("NewExporter(md) error = %v", err)
	}
	long, err := NewExporter("markdown")
	if err != nil {
		t.Fatalf("NewExporter(markdown) error = %v", err)
	}
	if _, ok := short.(*MarkdownExporter); !ok {
		t.Errorf("NewExporter(md) = %T, want *MarkdownExporter", short)
	}
	if _, ok := long.(*MarkdownExporter); !ok {
		t.Errorf("NewExporter(markdown) = %T, want *MarkdownExporter", long)
	}
}
