package sqlx

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kcmvp/xschema/app"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DB is the database contract used by this package. It mirrors the methods
// used from *sql.DB so decorators such as SQL logging can wrap it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PingContext(ctx context.Context) error
	Close() error
	// Driver is the name the connection was opened with.
	Driver() string
}

// Open wraps an opened *sql.DB.
func Open(driver string, raw *sql.DB) DB {
	return stdDB{DB: raw, driver: driver}
}

type stdDB struct {
	*sql.DB
	driver string
}

func (d stdDB) Driver() string { return d.driver }

type loggingDB struct {
	inner  DB
	logger *zap.Logger
}

func (d loggingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := d.inner.ExecContext(ctx, query, args...)
	d.log("exec", start, err, zap.String("sql", query), zap.Any("args", args))
	return res, err
}

func (d loggingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.inner.QueryContext(ctx, query, args...)
	d.log("query", start, err, zap.String("sql", query), zap.Any("args", args))
	return rows, err
}

func (d loggingDB) PingContext(ctx context.Context) error {
	start := time.Now()
	err := d.inner.PingContext(ctx)
	d.log("ping", start, err)
	return err
}

func (d loggingDB) Close() error {
	start := time.Now()
	err := d.inner.Close()
	d.log("close", start, err)
	return err
}

func (d loggingDB) Driver() string { return d.inner.Driver() }

func (d loggingDB) log(op string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("driver", d.inner.Driver()), zap.Duration("dur", time.Since(start)))
	if err != nil {
		d.logger.Error("sqlx "+op, append(fields, zap.Error(err))...)
		return
	}
	d.logger.Debug("sqlx "+op, fields...)
}

// WithSQLLogger wraps db with a SQL logger if logger is not nil.
func WithSQLLogger(db DB, logger *zap.Logger) DB {
	if logger == nil {
		return db
	}
	return loggingDB{inner: db, logger: logger}
}

var (
	dsRegistry = map[string]DB{}
	dsMu       sync.RWMutex

	initOnce sync.Once
	initErr  error

	sqlLogger *zap.Logger
)

// SetSQLLogger enables SQL logging for the datasources registered after
// this call.
func SetSQLLogger(l *zap.Logger) {
	sqlLogger = l
}

// registerDataSource opens, pings and registers the datasource, then runs its
// scripts.
func registerDataSource(ctx context.Context, name string, cfg dataSource) error {
	if cfg.Driver == "" {
		return fmt.Errorf("driver is required to register datasource %q", name)
	}
	dsn, err := cfg.DSNChecked()
	if err != nil {
		return fmt.Errorf("invalid dsn for datasource %q: %w", name, err)
	}
	raw, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return fmt.Errorf("open datasource %q: %w", name, err)
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return fmt.Errorf("ping datasource %q: %w", name, err)
	}
	db := WithSQLLogger(Open(cfg.Driver, raw), sqlLogger)
	for _, script := range cfg.Scripts {
		if err := RunScript(ctx, db, script); err != nil {
			_ = db.Close()
			return fmt.Errorf("datasource %q: %w", name, err)
		}
	}
	dsMu.Lock()
	defer dsMu.Unlock()
	dsRegistry[name] = db
	return nil
}

// RunScript executes the statements of a SQL file. Relative paths resolve
// against the working directory first, then the module root.
func RunScript(ctx context.Context, db DB, path string) error {
	body, err := readScript(path)
	if err != nil {
		return err
	}
	return Exec(ctx, db, string(body))
}

// Exec runs every ';' separated statement of script.
func Exec(ctx context.Context, db DB, script string) error {
	stmts := lo.Filter(lo.Map(strings.Split(script, ";"), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}), func(s string, _ int) bool { return s != "" })
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func readScript(path string) ([]byte, error) {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		if cwd, err := os.Getwd(); err == nil {
			if root, ok := moduleRoot(cwd); ok {
				candidates = append(candidates, filepath.Join(root, path))
			}
		}
	}
	for _, cand := range candidates {
		if body, err := os.ReadFile(cand); err == nil {
			return body, nil
		}
	}
	return nil, fmt.Errorf("script %s not found", path)
}

func moduleRoot(dir string) (string, bool) {
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

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func initDataSources() error {
	initOnce.Do(func() {
		res := app.Config()
		if res.IsError() {
			initErr = res.Error()
			return
		}
		raw := res.MustGet().GetStringMap(app.KeyDatasource)
		for name, val := range raw {
			child := viper.New()
			m, ok := val.(map[string]any)
			if !ok {
				initErr = fmt.Errorf("datasource %s: not a mapping", name)
				return
			}
			if err := child.MergeConfigMap(m); err != nil {
				initErr = fmt.Errorf("merge datasource %s: %w", name, err)
				return
			}
			var ds dataSource
			if err := child.Unmarshal(&ds); err != nil {
				initErr = fmt.Errorf("unmarshal datasource %s: %w", name, err)
				return
			}
			if err := registerDataSource(context.Background(), name, ds); err != nil {
				initErr = fmt.Errorf("register datasource %s: %w", name, err)
				return
			}
		}
	})
	return initErr
}

// GetDS returns a configured datasource by name. Viper lower-cases keys, so
// the lookup is case-insensitive.
func GetDS(name string) (DB, bool) {
	if err := initDataSources(); err != nil {
		zap.L().Error("sqlx datasources", zap.Error(err))
	}
	dsMu.RLock()
	defer dsMu.RUnlock()
	db, ok := dsRegistry[strings.ToLower(lo.Ternary(name == "", DefaultDSName, name))]
	return db, ok
}

// DefaultDS returns the datasource named DefaultDS.
func DefaultDS() (DB, bool) {
	return GetDS(DefaultDSName)
}

// CloseDataSource closes and removes the named datasource.
func CloseDataSource(name string) error {
	dsMu.Lock()
	defer dsMu.Unlock()
	key := strings.ToLower(name)
	if db, ok := dsRegistry[key]; ok {
		delete(dsRegistry, key)
		return db.Close()
	}
	return nil
}

// CloseAllDataSources closes every datasource and returns the first error.
func CloseAllDataSources() error {
	dsMu.Lock()
	defer dsMu.Unlock()
	var firstErr error
	for name, db := range dsRegistry {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(dsRegistry, name)
	}
	return firstErr
}
