package service

import (
	"math"
	"testing"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "bare object",
			response: `{"relief": "custody"}`,
			want:     `{"relief": "custody"}`,
		},
		{
			name:     "surrounded by prose",
			response: `Here is the result: {"relief": "custody"} Hope this helps.`,
			want:     `{"relief": "custody"}`,
		},
		{
			name:     "fenced",
			response: "```json\n{\"relief\": \"custody\"}\n```",
			want:     `{"relief": "custody"}`,
		},
		{
			name:     "no object",
			response: "I cannot answer that.",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	got, err := extractJSONArray("```\n[{\"id\": \"x\", \"score\": 3}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `[{"id": "x", "score": 3}]` {
		t.Errorf("got %q", got)
	}

	if _, err := extractJSONArray("no array here"); err == nil {
		t.Error("expected error for missing array")
	}
}

func TestNormalizeEmbedding(t *testing.T) {
	embedding := []float64{3, 4}

	normalizeEmbedding(embedding)

	var sumSq float64
	for _, v := range embedding {
		sumSq += v * v
	}
	if math.Abs(sumSq-1) > 1e-9 {
		t.Errorf("expected unit L2 norm, got %v", math.Sqrt(sumSq))
	}
	if math.Abs(embedding[0]-0.6) > 1e-9 || math.Abs(embedding[1]-0.8) > 1e-9 {
		t.Errorf("unexpected normalized values: %v", embedding)
	}
}

func TestNormalizeEmbeddingZeroVector(t *testing.T) {
	embedding := []float64{0, 0, 0}

	normalizeEmbedding(embedding)

	for _, v := range embedding {
		if v != 0 {
			t.Errorf("zero vector must stay zero, got %v", embedding)
		}
	}
}
