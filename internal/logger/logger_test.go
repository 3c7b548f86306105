package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		log, err := NewLogger("info", format)
		require.NoError(t, err, format)
		require.NotNil(t, log)

		// Info-level logger keeps warnings, drops debug.
		assert.NotNil(t, log.Check(zapcore.WarnLevel, "msg"))
		assert.Nil(t, log.Check(zapcore.DebugLevel, "msg"))
	}
}

func TestNewLogger_UnknownLevel(t *testing.T) {
	log, err := NewLogger("loud", "console")
	require.Error(t, err)
	assert.Nil(t, log)
	assert.Contains(t, err.Error(), "loud")
}
