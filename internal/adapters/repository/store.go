// Package repository defines the report store interface and errors.
package repository

import (
	"context"

	"github.com/okian/markscard/internal/domain/identity"
	"github.com/okian/markscard/internal/domain/report"
)

// Store holds each identity's append-only report history.
type Store interface {
	// Append adds rec to the end of id's history, creating it on first use.
	// Either the whole record becomes visible or nothing does.
	Append(ctx context.Context, id identity.Identity, rec report.Record) error

	// List returns a copy of id's history in append order. Unknown
	// identities yield an empty slice, never ErrNotFound.
	List(ctx context.Context, id identity.Identity) ([]report.Record, error)

	// Count returns the number of identities holding at least one record.
	Count(ctx context.Context) int

	// Total returns the number of records across all identities.
	Total(ctx context.Context) int
}
