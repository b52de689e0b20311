// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/G-districts/Gschool-connect/internal/domain"
)

// DocumentStore persists the shared state document. Implementations load and
// save the whole document; Update is the only mutation path and serializes
// read-modify-write passes so concurrent requests cannot clobber each other's
// writes within one process.
type DocumentStore interface {
	// Load returns the current document. A missing or corrupt backing file
	// yields a fresh default document, never an error visible to callers.
	Load(ctx context.Context) (*domain.Document, error)

	// Update runs fn against the current document under the store lock and
	// persists the result if fn returns nil. The document version is bumped
	// on every successful save.
	Update(ctx context.Context, fn func(*domain.Document) error) (*domain.Document, error)

	// Close releases the store.
	Close() error
}

// Repository is the relational side store: console accounts, key/value
// settings and chat/DM transcripts.
type Repository interface {
	// GetUser retrieves a console account by email, nil if absent.
	GetUser(ctx context.Context, email string) (*domain.User, error)

	// UpsertUser creates or updates a console account.
	UpsertUser(ctx context.Context, user *domain.User) error

	// Authenticate checks credentials and returns the account, nil if the
	// pair does not match.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetSetting unmarshals the stored JSON value for key into dest and
	// reports whether the key existed.
	GetSetting(ctx context.Context, key string, dest any) (bool, error)

	// SetSetting stores value for key as JSON, replacing any prior value.
	SetSetting(ctx context.Context, key string, value any) error

	// AppendMessage appends one transcript entry to a room.
	AppendMessage(ctx context.Context, room, userID, role, text string, ts int64) error

	// Messages returns a room's transcript in timestamp order.
	Messages(ctx context.Context, room string) ([]domain.DirectMessage, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
