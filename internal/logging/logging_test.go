package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		enabled       zap.AtomicLevel
	}{
		{"debug", "console", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warn", "json", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"error", "json", zap.NewAtomicLevelAt(zap.ErrorLevel)},
	}
	for _, tt := range tests {
		log, err := New(tt.level, tt.format)
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(tt.enabled.Level()), tt.level)
		assert.False(t, log.Core().Enabled(tt.enabled.Level()-1), tt.level)
	}
}

func TestNew_UnknownLevelKeepsDefault(t *testing.T) {
	log, err := New("loud", "json")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}
