package database

import "io/fs"

// migrationsFS returns the embedded migrations rooted at the migrations
// directory, as goose providers expect.
func migrationsFS() fs.FS {
	sub, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		// The directory is embedded at compile time.
		panic(err)
	}
	return sub
}
