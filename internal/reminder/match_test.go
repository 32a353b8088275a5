package reminder

import (
	"testing"
	"time"
)

func TestMatchScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		phrase, message string
		want            float64
	}{
		{"call mom", "Call Mom", scoreExact},
		{"mom", "Call mom", scoreContains},
		{"call mom tonight please", "call mom", scoreContains},
		{"water the plants", "plants need water", 0.5},
		{"gym", "Call mom", 0},
		{"", "Call mom", 0},
	}
	for _, tt := range tests {
		if got := matchScore(tt.phrase, tt.message); got != tt.want {
			t.Errorf("matchScore(%q, %q) = %v, want %v", tt.phrase, tt.message, got, tt.want)
		}
	}
}

func TestBestMatch_TiesKeepEarliest(t *testing.T) {
	t.Parallel()

	rs := []Reminder{
		{ID: "a", Message: "stretch legs", CreatedAt: baseTime},
		{ID: "b", Message: "stretch arms", CreatedAt: baseTime.Add(time.Minute)},
		{ID: "c", Message: "drink water", CreatedAt: baseTime.Add(2 * time.Minute)},
	}
	if got := bestMatch("stretch", rs); got != 0 {
		t.Errorf("bestMatch(stretch) = %d, want 0", got)
	}
	if got := bestMatch("stretch arms", rs); got != 1 {
		t.Errorf("bestMatch(stretch arms) = %d, want 1", got)
	}
	if got := bestMatch("sleep", rs); got != -1 {
		t.Errorf("bestMatch(sleep) = %d, want -1", got)
	}
}
