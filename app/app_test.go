package app

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func reset(t *testing.T) {
	t.Helper()
	cfg = nil
	once = sync.Once{}
	logger = nil
	loggerOnce = sync.Once{}
}

func TestConfig_LoadsApplicationTestYml(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Dir(cwd)))
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	reset(t)

	res := Config()
	require.True(t, res.IsOk())
	v := res.MustGet()
	require.Equal(t, "sqlite3", v.GetString("datasource.DefaultDS.driver"))
	require.Equal(t, int64(1), PublicRole().MustGet())
}

func TestConfig_FromPackageDir(t *testing.T) {
	reset(t)
	v := Config().MustGet()
	require.True(t, v.GetBool(KeyLogDevelopment))
}

func TestLogger(t *testing.T) {
	reset(t)
	l := Logger()
	require.NotNil(t, l)
	require.Same(t, l, Logger())
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger(t *testing.T) {
	v := viper.New()
	v.Set(KeyLogLevel, "warn")
	l, err := newLogger(v)
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))

	v.Set(KeyLogLevel, "loud")
	_, err = newLogger(v)
	require.Error(t, err)
}

func TestFindProjectRoot(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)
	root, ok := findProjectRoot(cwd)
	require.True(t, ok)
	require.FileExists(t, filepath.Join(root, "go.mod"))

	_, ok = findProjectRoot(string(filepath.Separator))
	require.False(t, ok)
}

func TestIsTestProcess(t *testing.T) {
	require.True(t, isTestProcess())
}
