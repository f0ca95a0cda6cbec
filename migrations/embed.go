// Package migrations embeds the daemon's SQL migration files so the
// binary carries its own schema history.
package migrations

import (
	"embed"

	"github.com/nerrad567/usb-host-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
