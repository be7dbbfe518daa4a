package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
)

// mergeOptions overlays configured driver options on top of the driver defaults and
// returns them sorted by key so DSNs are stable.
func mergeOptions(defaults, overrides map[string]string) [][2]string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, merged[k]})
	}
	return out
}

// sqliteDSN returns the connection string and, for file databases, the file path.
// Memory databases get a unique name so separate handles never share rows.
func sqliteDSN(cfg Config) (dsn string, path string) {
	if cfg.DSN != "" {
		return cfg.DSN, ""
	}

	defaults := map[string]string{"_foreign_keys": "1", "_busy_timeout": "5000"}
	path = strings.TrimSpace(cfg.Path)
	if path == "" || strings.EqualFold(path, ":memory:") {
		defaults["mode"] = "memory"
		defaults["cache"] = "shared"
		dsn = "file:omnikit-" + uuid.NewString()
		path = ""
	} else {
		defaults["_journal_mode"] = "WAL"
		dsn = "file:" + filepath.ToSlash(path)
	}

	query := make([]string, 0, len(defaults))
	for _, kv := range mergeOptions(defaults, cfg.Options) {
		query = append(query, kv[0]+"="+kv[1])
	}
	return dsn + "?" + strings.Join(query, "&"), path
}

func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("postgres configuration requires user and database name")
	}

	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(quoteLibpq(value))
	}
	write("host", firstNonEmpty(cfg.Host, "localhost"))
	write("port", fmt.Sprint(portOr(cfg.Port, 5432)))
	write("user", cfg.User)
	write("dbname", cfg.Name)
	if cfg.Password != "" {
		write("password", cfg.Password)
	}
	for _, kv := range mergeOptions(map[string]string{"sslmode": "disable"}, cfg.Options) {
		write(kv[0], kv[1])
	}
	return b.String(), nil
}

// buildMySQLDSN assembles a go-sql-driver DSN and checks that the driver can parse it.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return checkMySQLDSN(cfg.DSN)
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	credentials := cfg.User
	if cfg.Password != "" {
		credentials += ":" + cfg.Password
	}

	opts := mergeOptions(map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "UTC",
	}, cfg.Options)
	query := make([]string, 0, len(opts))
	for _, kv := range opts {
		query = append(query, kv[0]+"="+kv[1])
	}

	return checkMySQLDSN(fmt.Sprintf("%s@tcp(%s:%d)/%s?%s",
		credentials, firstNonEmpty(cfg.Host, "127.0.0.1"), portOr(cfg.Port, 3306), cfg.Name, strings.Join(query, "&")))
}

func checkMySQLDSN(dsn string) (string, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	return dsn, nil
}

// quoteLibpq quotes values containing spaces or quotes the way libpq keyword/value
// connection strings expect.
func quoteLibpq(value string) string {
	if value != "" && !strings.ContainsAny(value, ` '\`) {
		return value
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(value) + "'"
}

func firstNonEmpty(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func portOr(port, fallback int) int {
	if port <= 0 {
		return fallback
	}
	return port
}
