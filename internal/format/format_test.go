package format

import (
	"strings"
	"testing"

	"github.com/router-for-me/disqord/internal/openrouter"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "free"},
		{"0.00003", "$30.00/1M"},
		{"0.000015", "$15.00/1M"},
		{"0.0000005", "$0.50/1M"},
		{"0.00000001", "$0.01/1M"},
		{"0.000000001", "$0.001/1M"},
		{"0.0000000001", "$0.0001/1M"},
		{"not-a-number", "not-a-number"},
	}
	for _, tc := range cases {
		if got := FormatPrice(tc.in); got != tc.want {
			t.Fatalf("FormatPrice(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestFormatContextLength(t *testing.T) {
	cases := map[int]string{
		128000:  "128K (128,000)",
		1000:    "1K (1,000)",
		1048576: "1048K (1,048,576)",
		512:     "512",
	}
	for in, want := range cases {
		if got := FormatContextLength(in); got != want {
			t.Fatalf("FormatContextLength(%d): expected %q, got %q", in, want, got)
		}
	}
}

func TestDetailsLine(t *testing.T) {
	cost := 0.00012
	line := DetailsLine(Details{
		Model:     "openai/gpt-4o",
		Provider:  "OpenAI",
		LatencyMs: 2000,
		Usage: &openrouter.Usage{
			PromptTokens:            10,
			CompletionTokens:        50,
			TotalTokens:             60,
			Cost:                    &cost,
			PromptTokensDetails:     &openrouter.PromptTokensDetails{CachedTokens: 4},
			CompletionTokensDetails: &openrouter.CompletionTokensDetails{ReasoningTokens: 7},
		},
	})
	want := "Tokens: 10+50=60 | Cost: $0.000120 | Model: openai/gpt-4o | Latency: 2000ms | Provider: OpenAI | Cached: 4 | Reasoning: 7 | TPS: 25.00"
	if line != want {
		t.Fatalf("expected %q, got %q", want, line)
	}

	minimal := DetailsLine(Details{Usage: &openrouter.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}})
	if minimal != "Tokens: 1+2=3" {
		t.Fatalf("expected tokens only, got %q", minimal)
	}
	if DetailsLine(Details{Model: "m"}) != "" {
		t.Fatalf("expected empty line without usage")
	}
}

func TestSplitIntoChunks(t *testing.T) {
	if got := SplitIntoChunks("short", MessageLimit); len(got) != 1 || got[0] != "short" {
		t.Fatalf("expected single chunk, got %v", got)
	}

	text := strings.Repeat("a", 4500)
	chunks := SplitIntoChunks(text, MessageLimit)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 2000 || len(chunks[2]) != 500 {
		t.Fatalf("unexpected chunk sizes: %d %d", len(chunks[0]), len(chunks[2]))
	}

	multibyte := strings.Repeat("あ", 2001)
	chunks = SplitIntoChunks(multibyte, MessageLimit)
	if len(chunks) != 2 || chunks[1] != "あ" {
		t.Fatalf("expected rune-aligned split, got %d chunks", len(chunks))
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Fatalf("expected hé, got %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}
