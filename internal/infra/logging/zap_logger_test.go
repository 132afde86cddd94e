package logging_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rcarvalho-pb/tipbot-go/internal/infra/logging"
)

func TestZapLogger_ShouldForwardLevelAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := logging.NewZapLogger(zap.New(core)).Named("engine")

	logger.Info("chain started", map[string]any{
		"chain-id": "ch-1",
		"amount":   int64(1250),
	})
	logger.Error("gateway failed", map[string]any{
		"error": errors.New("boom"),
	})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "engine", entries[0].LoggerName)
	require.Equal(t, "ch-1", entries[0].ContextMap()["chain-id"])
	require.EqualValues(t, 1250, entries[0].ContextMap()["amount"])

	require.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	require.Equal(t, "boom", entries[1].ContextMap()["error"])
}

func TestZapLogger_ShouldDropEntriesBelowLevel(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := logging.NewZapLogger(zap.New(core))

	logger.Info("ignored", nil)
	logger.Warn("kept", nil)

	require.Equal(t, 1, logs.Len())
	require.Equal(t, "kept", logs.All()[0].Message)
}

func TestBuild_ShouldRejectUnknownLevel(t *testing.T) {
	_, err := logging.Build("LOUD", false)
	require.Error(t, err)

	l, err := logging.Build("DEBUG", true)
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
}
