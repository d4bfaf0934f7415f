package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFormat(t *testing.T) {
	l := New()
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.With("crawler").WithField("rows", 3).Warnf("skipped %d", 2)

	line := buf.String()
	assert.Regexp(t, regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[WARN\] \[logger_test\.go:\d+\] skipped 2 component=crawler rows=3\n$`), line)
}

func TestInitLevel(t *testing.T) {
	l, c, err := Init("debug", "")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l, c, err = Init("nonsense", "")
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestInitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sentiboard.log")
	l, c, err := Init("info", path)
	require.NoError(t, err)

	l.Info("hello")
	l.Debug("hidden")
	require.NoError(t, c.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO]")
	assert.Contains(t, string(data), "hello")
	assert.NotContains(t, string(data), "hidden")
}
