package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeAcceptsHealthyEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	assert.NoError(t, Probe(context.Background(), server.URL, "test-key"))
}

func TestProbeRejectsBadCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	err := Probe(context.Background(), server.URL, "wrong-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestProbeUnreachableEndpoint(t *testing.T) {
	err := Probe(context.Background(), "http://127.0.0.1:1", "test-key")
	assert.Error(t, err)
}
