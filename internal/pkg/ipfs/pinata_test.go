package ipfs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yigit/diplomaregistry/internal/pkg/apperrors"
)

func newTestPinata(t *testing.T, handler http.HandlerFunc, cfg PinataConfig) *PinataClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.APIURL = srv.URL
	if cfg.GatewayURL == "" {
		cfg.GatewayURL = "https://gateway.example"
	}
	return NewPinataClient(cfg, zerolog.Nop())
}

func TestPinataClient_Publish(t *testing.T) {
	content := []byte("%PDF-1.7 diploma")
	id, err := DigestCID(content)
	require.NoError(t, err)

	client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("pinata_api_key"))
		assert.Equal(t, "secret", r.Header.Get("pinata_secret_api_key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		got, _ := io.ReadAll(file)
		assert.Equal(t, content, got)
		assert.Equal(t, "diploma-42.pdf", header.Filename)
		assert.Equal(t, "application/pdf", header.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"diploma-42.pdf"}`, r.FormValue("pinataMetadata"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{"IpfsHash": id.String(), "PinSize": len(content)})
	}, PinataConfig{APIKey: "key", APISecret: "secret"})

	locator, err := client.Publish(context.Background(), content, "application/pdf", "diploma-42.pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example/ipfs/"+id.String(), locator)
}

func TestPinataClient_PublishDocument(t *testing.T) {
	id, err := DigestCID([]byte("doc"))
	require.NoError(t, err)

	client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinJSONToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("pinata_api_key"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"name": "Ada"}, body["pinataContent"])
		assert.Equal(t, map[string]interface{}{"name": "metadata-42.json"}, body["pinataMetadata"])

		_, _ = w.Write([]byte(`{"IpfsHash":"` + id.String() + `"}`))
	}, PinataConfig{JWT: "jwt-token"})

	locator, err := client.PublishDocument(context.Background(), map[string]string{"name": "Ada"}, "metadata-42.json")
	require.NoError(t, err)
	assert.Contains(t, locator, id.String())
}

func TestPinataClient_PublishFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantCID bool
	}{
		{"non-success status", http.StatusUnauthorized, `{"error":"invalid key"}`, false},
		{"malformed body", http.StatusOK, `not json`, false},
		{"missing content identifier", http.StatusOK, `{"PinSize":10}`, true},
		{"malformed content identifier", http.StatusOK, `{"IpfsHash":"not-a-cid"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, PinataConfig{JWT: "jwt"})

			_, err := client.Publish(context.Background(), []byte("x"), "image/png", "x.png")
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrPublishFailed)
			if tt.wantCID {
				assert.ErrorIs(t, err, ErrInvalidCID)
			}
		})
	}
}

func TestPinataClient_PublishEmpty(t *testing.T) {
	called := false
	client := newTestPinata(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, PinataConfig{JWT: "jwt"})

	_, err := client.Publish(context.Background(), nil, "image/png", "x.png")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.ErrorIs(t, err, apperrors.ErrPublishFailed)

	_, err = client.PublishDocument(context.Background(), nil, "x.json")
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.False(t, called)
}

func TestPinataClient_Unreachable(t *testing.T) {
	client := NewPinataClient(PinataConfig{APIURL: "http://127.0.0.1:1", JWT: "jwt"}, zerolog.Nop())
	_, err := client.Publish(context.Background(), []byte("x"), "image/png", "x.png")
	assert.ErrorIs(t, err, apperrors.ErrPublishFailed)
}

func TestPinataClient_Fetch(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ipfs/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"image":"ipfs://x"}`))
	}))
	defer gateway.Close()

	client := NewPinataClient(PinataConfig{GatewayURL: gateway.URL}, zerolog.Nop())

	data, err := client.Fetch(context.Background(), gateway.URL+"/ipfs/abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"image":"ipfs://x"}`, string(data))

	_, err = client.Fetch(context.Background(), gateway.URL+"/ipfs/missing")
	assert.Error(t, err)
}
