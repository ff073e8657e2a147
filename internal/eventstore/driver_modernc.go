package eventstore

import (
	_ "modernc.org/sqlite" // pure Go sqlite driver, registers as "sqlite"
)
