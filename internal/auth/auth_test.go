package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopValidator(t *testing.T) {
	v := NoopValidator{}

	player, err := v.Validate(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", player)

	_, err = v.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestStaticValidator(t *testing.T) {
	v := NewStaticValidator(map[string]string{"secret-a": "alice", "secret-b": "bob"})

	player, err := v.Validate(context.Background(), "secret-a")
	require.NoError(t, err)
	assert.Equal(t, "alice", player)

	_, err = v.Validate(context.Background(), "secret-c")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Token string `json:"token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Token != "good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"player_id": "alice"})
	}))
	defer srv.Close()

	v := NewHTTPValidator(srv.URL)

	player, err := v.Validate(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "alice", player)

	_, err = v.Validate(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	srv.Close()

	v := NewHTTPValidator(srv.URL)
	_, err := v.Validate(context.Background(), "any")
	assert.ErrorIs(t, err, ErrUnavailable)
}
