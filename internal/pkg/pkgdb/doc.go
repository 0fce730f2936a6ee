// Package pkgdb opens the database handles used by the storage backends:
// Postgres/PostGIS through the pgx database/sql driver and SQLite through gorm.
package pkgdb
