package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	bytes.Buffer
	synced bool
}

func (b *syncBuffer) Sync() error {
	b.synced = true
	return nil
}

func TestExit_SyncsBeforeExiting(t *testing.T) {
	code := -1
	prev := exit
	exit = func(c int) { code = c }
	defer func() { exit = prev }()

	sink := &syncBuffer{}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), sink, zapcore.DebugLevel)
	Exit(zap.New(core), "api stopped", errors.New("listen tcp :8080: address already in use"))

	assert.Equal(t, 1, code)
	assert.True(t, sink.synced)
	assert.Contains(t, sink.String(), `"msg":"api stopped"`)
	assert.Contains(t, sink.String(), "address already in use")
}

func TestNew_FallsBackToInfo(t *testing.T) {
	logger, err := New("shouting", "json", "test")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}
