// Package auth resolves bearer tokens to player identities for the HTTP
// API and the event stream.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrInvalidToken indicates the token was rejected.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnavailable indicates the validation backend could not be
	// reached; callers should not treat this as a bad token.
	ErrUnavailable = errors.New("validation service unavailable")
)

// Validator resolves a bearer token to a player ID.
type Validator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// NoopValidator accepts any non-empty token as the player ID itself.
// Development and test use only.
type NoopValidator struct{}

func (NoopValidator) Validate(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// StaticValidator resolves tokens through a fixed map, typically loaded
// from the config file.
type StaticValidator struct {
	tokens map[string]string
}

func NewStaticValidator(tokens map[string]string) *StaticValidator {
	return &StaticValidator{tokens: tokens}
}

func (v *StaticValidator) Validate(_ context.Context, token string) (string, error) {
	player, ok := v.tokens[token]
	if !ok {
		return "", ErrInvalidToken
	}
	return player, nil
}

// HTTPValidator delegates validation to an external endpoint. The
// endpoint receives {"token": ...} and answers 200 with
// {"player_id": ...} for valid tokens, 401/403 otherwise.
type HTTPValidator struct {
	url    string
	client *http.Client
}

func NewHTTPValidator(url string) *HTTPValidator {
	return &HTTPValidator{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (string, error) {
	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrInvalidToken
	default:
		return "", fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var payload struct {
		PlayerID string `json:"player_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	if payload.PlayerID == "" {
		return "", ErrInvalidToken
	}
	return payload.PlayerID, nil
}
