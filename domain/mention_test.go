package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDetectMention(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Plain mention", "@ai tell me a joke", true},
		{"Uppercase mention", "hey @AI what's up", true},
		{"Space between at and name", "@ AI are you there", true},
		{"Mid sentence", "I think @ai should answer", true},
		{"No mention", "no mention here", false},
		{"Email lookalike", "mail me at ai@example.com", false},
		{"Empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, DetectMention(tt.input), tt.input)
		})
	}
}

func TestExtractQuery(t *testing.T) {
	req := require.New(t)

	// The mention token disappears from the query
	req.Equal("tell me a joke", ExtractQuery("@ai tell me a joke"))
	req.Equal("hey  what's up", ExtractQuery("hey @AI what's up"))

	// A bare mention falls back to the original text so the provider
	// still receives something to answer
	req.Equal("@ai", ExtractQuery("@ai"))
	req.Equal("@ AI", ExtractQuery("@ AI"))
}

func TestAIRequest_CorrelationID(t *testing.T) {
	req := require.New(t)

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := AIRequest{EnqueuedAt: at}

	req.Equal("ai_"+"1748779200000000000", r.CorrelationID())

	// Two requests enqueued at different instants never share an id
	other := AIRequest{EnqueuedAt: at.Add(time.Nanosecond)}
	req.NotEqual(r.CorrelationID(), other.CorrelationID())
}
