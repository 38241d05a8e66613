package id

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// ULID generates lexically sortable ids; used for client-side event ids.
type ULID struct{}

func (ULID) New() string {
	return ulid.Make().String()
}

// UUID generates random v4 ids; used for durable record ids.
type UUID struct{}

func (UUID) New() string {
	return uuid.NewString()
}
