package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "defaults",
			cfg:  Config{User: "omnikit", Name: "omnikit"},
			want: "host=localhost port=5432 user=omnikit dbname=omnikit sslmode=disable",
		},
		{
			name: "options override defaults",
			cfg: Config{
				User: "app", Name: "kit", Host: "db.internal", Port: 6543, Password: "pass",
				Options: map[string]string{"sslmode": "require", "search_path": "omnikit"},
			},
			want: "host=db.internal port=6543 user=app dbname=kit password=pass search_path=omnikit sslmode=require",
		},
		{
			name: "quotes awkward passwords",
			cfg:  Config{User: "app", Name: "kit", Password: `it's a secret`},
			want: `host=localhost port=5432 user=app dbname=kit password='it\'s a secret' sslmode=disable`,
		},
		{
			name: "raw dsn wins",
			cfg:  Config{DSN: "postgres://u:p@h/db"},
			want: "postgres://u:p@h/db",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dsn, err := buildPostgresDSN(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.want, dsn)
		})
	}

	_, err := buildPostgresDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "omnikit", Name: "omnikit"})
	require.NoError(t, err)
	require.Equal(t, "omnikit@tcp(127.0.0.1:3306)/omnikit?charset=utf8mb4&loc=UTC&parseTime=True", dsn)

	dsn, err = buildMySQLDSN(Config{
		User: "app", Password: "secret", Name: "kit", Host: "mysql.internal", Port: 3307,
		Options: map[string]string{"tls": "skip-verify", "loc": "Local"},
	})
	require.NoError(t, err)
	require.Equal(t, "app:secret@tcp(mysql.internal:3307)/kit?charset=utf8mb4&loc=Local&parseTime=True&tls=skip-verify", dsn)

	dsn, err = buildMySQLDSN(Config{DSN: "root:pw@tcp(db:3306)/kit?parseTime=true"})
	require.NoError(t, err)
	require.Equal(t, "root:pw@tcp(db:3306)/kit?parseTime=true", dsn)

	_, err = buildMySQLDSN(Config{DSN: "not a dsn"})
	require.Error(t, err)

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	dsn, path := sqliteDSN(Config{Path: "data/omnikit.sqlite"})
	require.Equal(t, "data/omnikit.sqlite", path)
	require.Equal(t, "file:data/omnikit.sqlite?_busy_timeout=5000&_foreign_keys=1&_journal_mode=WAL", dsn)

	first, path := sqliteDSN(Config{Path: ":memory:"})
	require.Empty(t, path)
	require.Contains(t, first, "mode=memory")
	require.Contains(t, first, "cache=shared")
	second, _ := sqliteDSN(Config{})
	require.NotEqual(t, first, second)

	dsn, _ = sqliteDSN(Config{Path: "kit.db", Options: map[string]string{"_busy_timeout": "100"}})
	require.Equal(t, "file:kit.db?_busy_timeout=100&_foreign_keys=1&_journal_mode=WAL", dsn)

	dsn, path = sqliteDSN(Config{DSN: "file:custom.db"})
	require.Equal(t, "file:custom.db", dsn)
	require.Empty(t, path)
}
