package eventstore

import (
	_ "github.com/mattn/go-sqlite3" // cgo sqlite driver, registers as "sqlite3"
)
