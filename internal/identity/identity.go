// Package identity resolves the users recorded as PerformedBy and ApprovedBy
// on ledger operations.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/InventoryGo/pkg/errors"
	"github.com/utafrali/InventoryGo/pkg/httpclient"
)

// User is the subset of a user account the inventory service relies on.
type User struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IsActive bool      `json:"is_active"`
}

// Resolver looks up users by ID.
type Resolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*User, error)
}

// HTTPResolver resolves users against the identity service through a
// circuit-breaking HTTP client.
type HTTPResolver struct {
	client  *httpclient.CircuitBreakerClient
	baseURL string
}

// NewHTTPResolver creates a resolver calling GET {baseURL}/api/v1/users/{id}.
func NewHTTPResolver(client *httpclient.CircuitBreakerClient, baseURL string) *HTTPResolver {
	return &HTTPResolver{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Resolve fetches the user and rejects inactive accounts.
func (r *HTTPResolver) Resolve(ctx context.Context, userID uuid.UUID) (*User, error) {
	var envelope struct {
		Data User `json:"data"`
	}
	url := fmt.Sprintf("%s/api/v1/users/%s", r.baseURL, userID)
	if err := r.client.GetJSON(ctx, url, &envelope); err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}

	u := envelope.Data
	if !u.IsActive {
		return nil, apperrors.InvalidInput(fmt.Sprintf("user %s is inactive", userID))
	}
	return &u, nil
}

// StaticResolver accepts every user ID. It backs local runs without an
// identity service.
type StaticResolver struct{}

// Resolve returns an active user carrying userID.
func (StaticResolver) Resolve(_ context.Context, userID uuid.UUID) (*User, error) {
	return &User{ID: userID, IsActive: true}, nil
}

// ResolveOptional resolves id when it is set and does nothing otherwise.
func ResolveOptional(ctx context.Context, r Resolver, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := r.Resolve(ctx, *id)
	return err
}
