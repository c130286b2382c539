// Package session owns the start/stop lifecycle of a recording session.
package session
