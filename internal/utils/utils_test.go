package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty string", "", nil},
		{"only separators", " , ,", nil},
		{"single value", "FORM_CHANGED", []string{"FORM_CHANGED"}},
		{"varied spacing", "FORM_CHANGED,  NOTIFICATION , CATALOG_LOADED", []string{"FORM_CHANGED", "NOTIFICATION", "CATALOG_LOADED"}},
		{"trailing comma", "a,b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestOperationTimer(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := OperationTimer("fast", time.Hour, log)
	assert.GreaterOrEqual(t, done(), time.Duration(0))
	assert.Contains(t, buf.String(), `"operation":"fast"`)
	assert.NotContains(t, buf.String(), "Slow operation detected")

	buf.Reset()
	done = OperationTimer("slow", time.Nanosecond, log)
	time.Sleep(time.Millisecond)
	done()
	assert.Contains(t, buf.String(), "Slow operation detected")
}
