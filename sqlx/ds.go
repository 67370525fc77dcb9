package sqlx

import (
	"fmt"
	"strings"

	// Drivers selectable through datasource.<name>.driver.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	UserKey     = "${user}"
	PasswordKey = "${password}"
	HostKey     = "${host}"

	// DefaultDSName is the datasource returned by DefaultDS.
	DefaultDSName = "DefaultDS"
)

type dataSource struct {
	DB       string   `mapstructure:"db"`
	Driver   string   `mapstructure:"driver"`
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
	Host     string   `mapstructure:"host"`
	URL      string   `mapstructure:"url"`
	Scripts  []string `mapstructure:"scripts"`
}

// DSNChecked returns the connection string for sql.Open. Go drivers do not
// share a DSN format, so url is required and is driver specific. A
// placeholder used in url requires the matching field.
func (ds dataSource) DSNChecked() (string, error) {
	if strings.TrimSpace(ds.URL) == "" {
		return "", fmt.Errorf("dsn requires url")
	}
	if strings.Contains(ds.URL, UserKey) && ds.User == "" {
		return "", fmt.Errorf("dsn requires user")
	}
	if strings.Contains(ds.URL, PasswordKey) && ds.Password == "" {
		return "", fmt.Errorf("dsn requires password")
	}
	if strings.Contains(ds.URL, HostKey) && ds.Host == "" {
		return "", fmt.Errorf("dsn requires host")
	}
	return ds.DSN(), nil
}

// DSN substitutes ${user}, ${password} and ${host} in url.
func (ds dataSource) DSN() string {
	dsn := strings.ReplaceAll(ds.URL, UserKey, ds.User)
	dsn = strings.ReplaceAll(dsn, PasswordKey, ds.Password)
	return strings.ReplaceAll(dsn, HostKey, ds.Host)
}

// Rebind rewrites '?' placeholders into the driver's bind style.
func Rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
