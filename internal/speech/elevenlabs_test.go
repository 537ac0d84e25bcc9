package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabsRequiresAPIKey(t *testing.T) {
	_, err := NewElevenLabsClient(Config{})
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestElevenLabsSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "salut", body["text"])
		assert.Equal(t, defaultModelID, body["model_id"])

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("fake-mp3"))
	}))
	defer server.Close()

	client, err := NewElevenLabsClient(Config{
		APIKey:  "secret",
		VoiceID: "voice-1",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	audio, err := client.Synthesize(context.Background(), "salut")
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-mp3"), audio)
}

func TestElevenLabsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewElevenLabsClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), "hi")
	var serr *SynthesisError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusTooManyRequests, serr.Status)
}

func TestElevenLabsEmptyAudio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewElevenLabsClient(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), "hi")
	var serr *SynthesisError
	require.ErrorAs(t, err, &serr)
}
