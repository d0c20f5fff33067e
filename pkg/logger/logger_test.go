package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"muslink-platform/internal/config"
)

func TestInitLogger_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, InitLogger(config.Log{Level: "info", File: file, MaxSizeMB: 1}))

	zap.S().Infow("事件已记录", "type", "click")
	zap.S().Debug("不应出现")
	_ = Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "事件已记录")
	assert.NotContains(t, string(data), "不应出现")
}

func TestInitLogger_BadLevel(t *testing.T) {
	assert.Error(t, InitLogger(config.Log{Level: "loud", File: filepath.Join(t.TempDir(), "x.log")}))
}
