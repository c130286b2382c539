// Package store persists rendered rows to SQLite so past sessions can be reviewed.
package store
