package upstream

import (
	"strings"
	"testing"
)

func TestCharEstimator(t *testing.T) {
	tests := []struct {
		name       string
		ratio      float64
		completion int
		payload    string
		want       int
	}{
		{name: "empty", ratio: 4, payload: "", want: 0},
		{name: "minimum one token", ratio: 4, payload: "a", want: 1},
		{name: "rounded", ratio: 4, payload: strings.Repeat("x", 10), want: 3},
		{name: "exact", ratio: 4, payload: strings.Repeat("x", 400), want: 100},
		{name: "completion allowance", ratio: 4, completion: 50, payload: strings.Repeat("x", 400), want: 150},
		{name: "empty skips allowance", ratio: 4, completion: 50, payload: "", want: 0},
		{name: "default ratio", ratio: 0, payload: strings.Repeat("x", 40), want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewCharEstimator(tt.ratio, tt.completion)
			if got := e.Estimate([]byte(tt.payload)); got != tt.want {
				t.Errorf("Expected %d tokens, got %d", tt.want, got)
			}
		})
	}
}

func TestFixed(t *testing.T) {
	if got := Fixed(7).Estimate([]byte("anything")); got != 7 {
		t.Errorf("Expected 7, got %d", got)
	}
}
