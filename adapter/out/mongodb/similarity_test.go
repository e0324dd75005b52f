package mongodb

import (
	"math"
	"strings"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name  string
		text1 string
		text2 string
		want  float64
	}{
		{"identical", "disk is full on server", "disk is full on server", 1.0},
		{"empty first", "", "anything", 0.0},
		{"empty second", "anything", "", 0.0},
		{"no common words", "alpha beta gamma", "delta epsilon zeta", 0.0},
		{"case insensitive", "Disk Full", "disk full", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.text1, tt.text2)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityLengthRatioGuard(t *testing.T) {
	short := "disk full"
	long := strings.Repeat("disk full ", 20)
	if got := CosineSimilarity(short, long); got != 0.0 {
		t.Errorf("length-ratio guard failed, got %v", got)
	}
	if got := CosineSimilarity(long, short); got != 0.0 {
		t.Errorf("length-ratio guard failed in reverse, got %v", got)
	}
}

func TestCosineSimilarityPartialOverlap(t *testing.T) {
	got := CosineSimilarity("server disk is almost full", "server disk nearly empty today")
	if got <= 0.0 || got >= 1.0 {
		t.Errorf("partial overlap should score strictly between 0 and 1, got %v", got)
	}
}
