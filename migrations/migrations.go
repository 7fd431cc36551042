// Package migrations embeds the SQL schema scripts.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed *.sql
var files embed.FS

// Up returns the schema creation script.
func Up() (string, error) {
	return read("001_create_schema.up.sql")
}

// Down returns the schema removal script.
func Down() (string, error) {
	return read("001_create_schema.down.sql")
}

func read(name string) (string, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("failed to read migration %s: %w", name, err)
	}
	return string(b), nil
}
