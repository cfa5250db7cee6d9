// migrations содержит SQL-миграции схемы auth-service (формат goose).
package migrations

import "embed"

// FS - встроенные файлы миграций.
//
//go:embed *.sql
var FS embed.FS
