package storage

import "testing"

func TestHashContent(t *testing.T) {
	tests := []struct {
		name     string
		content1 string
		content2 string
		wantSame bool
	}{
		{
			name:     "identical content produces identical hash",
			content1: "deploy finished at 14:02\nlooks healthy",
			content2: "deploy finished at 14:02\nlooks healthy",
			wantSame: true,
		},
		{
			name:     "different content produces different hash",
			content1: "deploy finished",
			content2: "deploy failed",
			wantSame: false,
		},
		{
			name:     "whitespace is significant",
			content1: "hello world",
			content2: "hello  world",
			wantSame: false,
		},
		{
			name:     "empty content hashes consistently",
			content1: "",
			content2: "",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h1 := HashContent(tt.content1)
			h2 := HashContent(tt.content2)

			if (h1 == h2) != tt.wantSame {
				t.Errorf("HashContent equality = %v, want %v", h1 == h2, tt.wantSame)
			}
			if len(h1) != 64 {
				t.Errorf("Expected 64 hex characters, got %d", len(h1))
			}
		})
	}
}

func TestHashContent_KnownValue(t *testing.T) {
	// sha256("") is a fixed value; guards against accidental algorithm swaps.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := HashContent(""); got != want {
		t.Errorf("HashContent(\"\") = %q, want %q", got, want)
	}
}
