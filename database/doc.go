// Package database connects the file catalog to its storage backend.
// SQLite and PostgreSQL are supported; both expose the same Catalog port.
package database
