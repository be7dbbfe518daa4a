package app

import (
	"strings"

	"github.com/charlesng35/omnikit/internal/database"
)

// ConnectionConfig converts DatabaseConfig into the database package representation.
func (c DatabaseConfig) ConnectionConfig() database.Config {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	switch driver {
	case "", "sqlite", "sqlite3":
		driver = "sqlite"
	case "postgresql":
		driver = "postgres"
	}

	return database.Config{
		Driver:   driver,
		Path:     strings.TrimSpace(c.Path),
		DSN:      strings.TrimSpace(c.DSN),
		Host:     strings.TrimSpace(c.Host),
		Port:     c.Port,
		Name:     strings.TrimSpace(c.Name),
		User:     strings.TrimSpace(c.User),
		Password: c.Password,
		Options:  c.Options,
	}
}
