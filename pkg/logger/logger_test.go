package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerUsableBeforeInit(t *testing.T) {
	require.NotNil(t, Logger())
	require.NotPanics(t, func() { WithModule("test").Info("noop") })
}

func TestInitAcceptsLevels(t *testing.T) {
	require.NoError(t, Init("debug"))
	// Unknown levels fall back to info rather than failing startup.
	require.NoError(t, Init("chatty"))
}

func TestWithTenant(t *testing.T) {
	log := WithTenant("provisioning", "tenant-1")
	require.NotNil(t, log)
	require.NotPanics(t, func() { log.Debug("noop") })
}
