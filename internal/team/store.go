package team

import "context"

// Store persists teams as whole documents.
//
// Replace must be atomic and conditional: it writes t only if the stored
// version still equals expectedVersion, bumps the version, and otherwise
// returns ErrVersionConflict. Missing teams are reported as ErrNotFound.
type Store interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	List(ctx context.Context, f Filter) ([]*Team, error)
	Replace(ctx context.Context, t *Team, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
}
