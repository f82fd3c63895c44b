package volc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comicbook/internal/config"
)

func TestNewArkClient_MissingKey(t *testing.T) {
	_, err := NewArkClient(config.ArkConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGenerateImage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer ark-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":[{"b64_json":"AAAA","format":"jpeg"},{"url":"https://x/2.png"}]}`))
	}))
	defer srv.Close()

	c, err := NewArkClient(config.ArkConfig{APIKey: "ark-key", BaseURL: srv.URL})
	require.NoError(t, err)

	url, err := c.GenerateImage(context.Background(), "a castle at dusk")
	require.NoError(t, err)
	assert.Equal(t, "data:image/jpeg;base64,AAAA", url)
	assert.Equal(t, "a castle at dusk", got["prompt"])
	assert.Equal(t, DefaultSize, got["size"])
	assert.Equal(t, config.DefaultArkImageModel, got["model"])
}

func TestGenerateImage_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c, err := NewArkClient(config.ArkConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.GenerateImage(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestGenerateImage_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewArkClient(config.ArkConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.GenerateImage(context.Background(), "p")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 429")
}
