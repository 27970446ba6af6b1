package monitoring

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("test message")
	assert.True(t, called, "custom logger was not called")

	// nil installs a no-op that does not reach the previous logger.
	called = false
	SetLogger(nil)
	Logf("test message")
	assert.False(t, called)
}

func TestLogf_Default(t *testing.T) {
	require.NotNil(t, Logf)
	assert.NotPanics(t, func() { Logf("test message: %s", "value") })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"", LevelOff},
		{"off", LevelOff},
		{"OPS", LevelOps},
		{" diag ", LevelDiag},
		{"trace", LevelTrace},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevelWriters(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, LogWriters{}, LevelOff.Writers(&buf))
	assert.Equal(t, LogWriters{Ops: &buf}, LevelOps.Writers(&buf))
	assert.Equal(t, LogWriters{Ops: &buf, Diag: &buf}, LevelDiag.Writers(&buf))
	assert.Equal(t, LogWriters{Ops: &buf, Diag: &buf, Trace: &buf}, LevelTrace.Writers(&buf))
}
