package postprocess

import (
	"strings"
	"testing"
)

func TestFillerRemoval(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "mixed case opener",
			in:   "Sure Thing, your balance point is 30°F",
			want: "your balance point is 30°F",
		},
		{
			name: "certainly with bang",
			in:   "Certainly! The lockout should be 25°F.",
			want: "The lockout should be 25°F.",
		},
		{
			name: "mid sentence",
			in:   "That is a GREAT QUESTION about defrost cycles.",
			want: "That is a about defrost cycles.",
		},
		{
			name: "according to",
			in:   "According to the manual, superheat should be 8°F.",
			want: "the manual, superheat should be 8°F.",
		},
		{
			name: "clean text untouched",
			in:   "Your balance point is 30°F.",
			want: "Your balance point is 30°F.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.in)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.Contains(strings.ToLower(got), "sure thing") {
				t.Errorf("filler survived: %q", got)
			}
		})
	}
}

func TestWhitespaceCollapse(t *testing.T) {
	got := Clean("  Your   balance\n\npoint\tis  30°F  ")
	if got != "Your balance point is 30°F" {
		t.Errorf("got %q", got)
	}
}

func TestWordBudgetSentenceTrim(t *testing.T) {
	// 249 filler words, then a sentence end right at the boundary, then overflow.
	words := make([]string, 0, 300)
	for i := 0; i < 249; i++ {
		words = append(words, "word")
	}
	words = append(words, "done.")
	for i := 0; i < 40; i++ {
		words = append(words, "overflow")
	}
	got := Clean(strings.Join(words, " "))

	if !strings.HasSuffix(got, "done.") {
		t.Errorf("should trim at the terminator: ...%q", got[len(got)-20:])
	}
	if strings.Contains(got, "overflow") {
		t.Error("overflow words survived the cut")
	}
	if n := len(strings.Fields(got)); n != MaxWords {
		t.Errorf("word count = %d", n)
	}
}

func TestWordBudgetNoNearbyTerminator(t *testing.T) {
	// A period early on, then an unbroken run well past the budget. The
	// terminator is far outside the window, so the cut stays at the word
	// boundary.
	words := []string{"Intro", "sentence", "ends."}
	for i := 0; i < 300; i++ {
		words = append(words, "running")
	}
	got := Clean(strings.Join(words, " "))

	if n := len(strings.Fields(got)); n != MaxWords {
		t.Errorf("word count = %d, want %d", n, MaxWords)
	}
	if strings.HasSuffix(got, ".") {
		t.Errorf("should keep the word-boundary cut, got suffix %q", got[len(got)-10:])
	}
}

func TestShortTextUntouched(t *testing.T) {
	in := "Set the lockout to 25°F and watch aux runtime for a week."
	if got := Clean(in); got != in {
		t.Errorf("got %q", got)
	}
}
