package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	cfgName     = "application"
	testCfgName = "application_test"
)

// Configuration keys shared by the xschema packages.
const (
	KeyLogDevelopment = "log.development"
	KeyLogLevel       = "log.level"
	KeyLogOutput      = "log.output"
	KeyPublicRole     = "xschema.publicRole"
	KeyDatasource     = "datasource"
)

var (
	cfg  *viper.Viper
	once sync.Once

	logger     *zap.Logger
	loggerOnce sync.Once
)

// Config loads the application configuration.
//
// Under `go test` application_test.yml is preferred, otherwise application.yml.
// Both are searched in the module root, the working directory and their
// ./config subdirectories. A missing file is not an error.
func Config() mo.Result[*viper.Viper] {
	once.Do(func() {
		cfg, _ = loadViper(false)
	})
	return lo.If(cfg == nil, mo.Err[*viper.Viper](fmt.Errorf("can not find %s.yml", cfgName))).Else(mo.Ok(cfg))
}

// PublicRole returns the configured public role id, if any.
func PublicRole() mo.Option[int64] {
	v, err := Config().Get()
	if err != nil || !v.IsSet(KeyPublicRole) {
		return mo.None[int64]()
	}
	return mo.Some(v.GetInt64(KeyPublicRole))
}

// Logger returns the process wide logger, built once from the log.* keys and
// installed as zap's global logger.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		v := Config().OrElse(viper.New())
		l, err := newLogger(v)
		if err != nil {
			l = zap.NewNop()
		}
		logger = l
		zap.ReplaceGlobals(logger)
	})
	return logger
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	var zc zap.Config
	if v.GetBool(KeyLogDevelopment) {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if out := v.GetStringSlice(KeyLogOutput); len(out) > 0 {
		zc.OutputPaths = out
	}
	if lvl := v.GetString(KeyLogLevel); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", lvl, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

func loadViper(required bool) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	addDefaultConfigPaths(v)

	cwd, _ := os.Getwd()
	tryRead := func(cand string) bool {
		if _, err := os.Stat(cand); err == nil {
			v.SetConfigFile(cand)
			return v.ReadInConfig() == nil
		}
		return false
	}

	dirs := []string{cwd, filepath.Join(cwd, "config")}
	if root, ok := findProjectRoot(cwd); ok {
		dirs = append([]string{root, filepath.Join(root, "config")}, dirs...)
	}
	for _, dir := range dirs {
		for _, ext := range []string{".yml", ".yaml"} {
			if tryRead(filepath.Join(dir, testCfgName+ext)) {
				return v, nil
			}
		}
	}

	name := lo.Ternary(isTestProcess(), testCfgName, cfgName)
	v.SetConfigName(name)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !required && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return v, nil
}

// addDefaultConfigPaths registers the module root and the working directory,
// each with its ./config subdirectory. Viper resolves relative paths against
// the working directory, which varies between IDE runs, package tests and
// deployed binaries.
func addDefaultConfigPaths(v *viper.Viper) {
	cwd, err := os.Getwd()
	if err != nil {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		return
	}
	if root, ok := findProjectRoot(cwd); ok {
		v.AddConfigPath(root)
		v.AddConfigPath(filepath.Join(root, "config"))
	}
	v.AddConfigPath(cwd)
	v.AddConfigPath(filepath.Join(cwd, "config"))
}

// findProjectRoot walks upward from start to the nearest directory holding a go.mod.
func findProjectRoot(start string) (string, bool) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// isTestProcess reports whether the binary was started by `go test`.
func isTestProcess() bool {
	if lo.ContainsBy(os.Args, func(a string) bool { return strings.HasPrefix(a, "-test.") }) {
		return true
	}
	const maxFrames = 256
	pcs := make([]uintptr, maxFrames)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if strings.HasSuffix(f.File, "_test.go") {
			return true
		}
		if !more {
			return false
		}
	}
}
