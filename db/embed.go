// Package db carries the goose migrations compiled into the binary, so
// migration runs do not depend on the working directory.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
