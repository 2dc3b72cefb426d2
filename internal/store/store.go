// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/codyburke970/ai-council/internal/domain"
)

// Repository defines the interface for persisting user profile records.
type Repository interface {
	// GetProfile retrieves the profile for a device identity. It returns
	// (nil, nil) when no record exists or the stored record is unparseable.
	GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error)

	// SaveProfile overwrites the entire persisted record, stamping
	// LastUpdated to the current time.
	SaveProfile(ctx context.Context, userID string, profile *domain.UserProfile) error

	// DeleteProfile removes the record. Deleting an absent record is not an
	// error.
	DeleteProfile(ctx context.Context, userID string) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
