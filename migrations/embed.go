// Package migrations embeds the schema files for the document store and
// audit log. Importing it registers them with the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
