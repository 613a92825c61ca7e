package cli

import (
	"testing"
	"time"
)

func TestParseSince(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"24h", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"xd", 0, true},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSince(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSince(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSince(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if tt.input == "" {
			if !got.IsZero() {
				t.Errorf("parseSince(\"\") should be zero, got %v", got)
			}
			continue
		}
		elapsed := time.Since(got)
		if elapsed < tt.want || elapsed > tt.want+time.Minute {
			t.Errorf("parseSince(%q) cutoff off by %v", tt.input, elapsed-tt.want)
		}
	}
}
