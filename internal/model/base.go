package model

import (
	"github.com/google/uuid"
)

// assignID gives a record a fresh UUID unless the caller already set one.
// Keys are generated in Go so the schema stays portable across postgres and sqlite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
