// Package session mints access/refresh token pairs and persists the
// refresh side so it can be validated and revoked later.
package session

import (
	"context"
	"fmt"

	"github.com/mkravets/famhub/internal/model"
	"github.com/mkravets/famhub/internal/storage"
	"github.com/mkravets/famhub/internal/utils"
)

// Issuer creates sessions: a short-lived HS256 access token plus a
// long-lived random refresh token whose SHA-256 hash is stored.
type Issuer struct {
	secret        string
	accessTTLMin  int
	refreshTTLDay int
	tokens        storage.TokenStore
}

// New wires an Issuer.
func New(secret string, accessTTLMin, refreshTTLDay int, tokens storage.TokenStore) *Issuer {
	return &Issuer{
		secret:        secret,
		accessTTLMin:  accessTTLMin,
		refreshTTLDay: refreshTTLDay,
		tokens:        tokens,
	}
}

// Issue returns a fresh session for the user and persists the refresh
// token hash.
func (i *Issuer) Issue(ctx context.Context, u model.User) (model.Session, error) {
	access, err := utils.NewAccessToken(i.secret, u.ID, u.Email, i.accessTTLMin)
	if err != nil {
		return model.Session{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(i.refreshTTLDay)
	if err != nil {
		return model.Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := i.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return model.Session{}, fmt.Errorf("store refresh token: %w", err)
	}
	return model.Session{
		AccessToken:    access.Token,
		AccessExpires:  access.Exp,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
	}, nil
}

// Refresh rotates a session: the presented refresh token is validated,
// revoked, and replaced by a brand new pair.
func (i *Issuer) Refresh(ctx context.Context, raw string, lookup func(ctx context.Context, userID uint64) (model.User, error)) (model.Session, error) {
	hash := utils.HashRefreshRaw(raw)
	userID, err := i.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return model.Session{}, err
	}
	user, err := lookup(ctx, userID)
	if err != nil {
		return model.Session{}, err
	}
	if err := i.tokens.RevokeByHash(ctx, hash); err != nil {
		return model.Session{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	return i.Issue(ctx, user)
}

// Revoke invalidates one refresh token.
func (i *Issuer) Revoke(ctx context.Context, raw string) error {
	return i.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(raw))
}
