package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// ErrCredentialInvalid is returned when a user's credential is absent, or
// expired with no way to refresh it. The only recovery is re-registration.
var ErrCredentialInvalid = errors.New("credential invalid")

// autoSaveTokenSource wraps an oauth2.TokenSource and automatically saves refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore
	lastToken  *oauth2.Token
}

// Token implements oauth2.TokenSource and saves the token if it was refreshed.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	// Check if the token was refreshed by comparing access tokens
	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		// Token was refreshed, save it
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.lastToken = token
	}

	return token, nil
}

// EnsureValid returns a usable token for the store's user. An unexpired
// token is returned as-is. An expired token with a refresh token is
// refreshed against the provider and persisted before it is returned, so
// callers never retry a refresh themselves. Anything else reports
// ErrCredentialInvalid.
func EnsureValid(ctx context.Context, oauthConfig *oauth2.Config, store TokenStore) (*oauth2.Token, error) {
	token, err := store.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, ErrCredentialInvalid
	}

	if token.Valid() {
		return token, nil
	}

	if token.RefreshToken == "" {
		return nil, ErrCredentialInvalid
	}

	refreshed, err := oauthConfig.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh failed: %v", ErrCredentialInvalid, err)
	}

	// The refresh response may omit the refresh token; keep the old one so
	// the credential stays refreshable.
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = token.RefreshToken
	}

	if err := store.SaveToken(refreshed); err != nil {
		return nil, fmt.Errorf("failed to save refreshed token: %w", err)
	}

	return refreshed, nil
}

// Client returns an authenticated HTTP client for a validated token.
// Refreshes performed by the transport are persisted back to the store.
func Client(ctx context.Context, oauthConfig *oauth2.Config, store TokenStore, token *oauth2.Token) *http.Client {
	tokenSource := oauthConfig.TokenSource(ctx, token)

	autoSaveSource := &autoSaveTokenSource{
		source:     oauth2.ReuseTokenSource(token, tokenSource),
		tokenStore: store,
		lastToken:  token,
	}

	return oauth2.NewClient(ctx, autoSaveSource)
}
