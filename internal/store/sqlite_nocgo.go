//go:build !cgo
// +build !cgo

package store

import (
	_ "modernc.org/sqlite"
)

const (
	sqliteDriver     = "sqlite"
	sqliteDSNOptions = "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(0)"
)
