package solana

import "testing"

func TestParseSOL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"whole number", "5", 5_000_000_000, false},
		{"simple fraction", "1.5", 1_500_000_000, false},
		{"full precision", "0.000000001", 1, false},
		{"nine decimals", "2.123456789", 2_123_456_789, false},
		{"trailing fraction zeros", "0.100", 100_000_000, false},
		{"leading dot", ".5", 500_000_000, false},
		{"zero", "0", 0, false},
		{"whitespace trimmed", " 1 ", 1_000_000_000, false},
		{"empty", "", 0, true},
		{"negative", "-1", 0, true},
		{"ten decimals", "0.0000000001", 0, true},
		{"not a number", "abc", 0, true},
		{"two dots", "1.2.3", 0, true},
		{"overflow", "99999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSOL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSOL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSOL(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatSOL(t *testing.T) {
	tests := []struct {
		lamports uint64
		want     string
	}{
		{0, "0"},
		{1, "0.000000001"},
		{1_000_000_000, "1"},
		{1_500_000_000, "1.5"},
		{2_123_456_789, "2.123456789"},
		{100_000_000, "0.1"},
	}

	for _, tt := range tests {
		if got := FormatSOL(tt.lamports); got != tt.want {
			t.Errorf("FormatSOL(%d) = %q, want %q", tt.lamports, got, tt.want)
		}
	}
}

// Round trip must be lossless for every representable amount.
func TestParseFormatRoundTrip(t *testing.T) {
	for _, lamports := range []uint64{0, 1, 999_999_999, 1_000_000_000, 123_456_789_012} {
		got, err := ParseSOL(FormatSOL(lamports))
		if err != nil {
			t.Fatalf("round trip of %d failed: %v", lamports, err)
		}
		if got != lamports {
			t.Errorf("round trip of %d = %d", lamports, got)
		}
	}
}
