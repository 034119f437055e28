package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"
)

const maxFetchBytes = 8 << 20

// PinataConfig configures the pinning service client
type PinataConfig struct {
	APIURL     string
	JWT        string
	APIKey     string
	APISecret  string
	GatewayURL string
	Timeout    time.Duration
}

// PinataClient publishes content through the Pinata pinning API and reads it back
// through an IPFS HTTP gateway.
type PinataClient struct {
	config PinataConfig
	http   *http.Client
	logger zerolog.Logger
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinJSONRequest struct {
	PinataContent  interface{}       `json:"pinataContent"`
	PinataMetadata map[string]string `json:"pinataMetadata,omitempty"`
}

// NewPinataClient creates a new PinataClient
func NewPinataClient(config PinataConfig, logger zerolog.Logger) *PinataClient {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	return &PinataClient{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("component", "pinata").Logger(),
	}
}

// Publish pins a file
func (c *PinataClient) Publish(ctx context.Context, data []byte, contentType, name string) (string, error) {
	if len(data) == 0 {
		return "", publishError(ErrEmptyContent, "artifact upload rejected")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(name)))
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", publishError(err, "failed to build upload body")
	}
	if _, err := part.Write(data); err != nil {
		return "", publishError(err, "failed to build upload body")
	}

	meta, _ := json.Marshal(map[string]string{"name": name})
	if err := writer.WriteField("pinataMetadata", string(meta)); err != nil {
		return "", publishError(err, "failed to build upload body")
	}
	if err := writer.Close(); err != nil {
		return "", publishError(err, "failed to build upload body")
	}

	return c.pin(ctx, "/pinning/pinFileToIPFS", writer.FormDataContentType(), body)
}

// PublishDocument pins a JSON document
func (c *PinataClient) PublishDocument(ctx context.Context, doc interface{}, name string) (string, error) {
	if doc == nil {
		return "", publishError(ErrEmptyContent, "document upload rejected")
	}
	payload, err := json.Marshal(pinJSONRequest{
		PinataContent:  doc,
		PinataMetadata: map[string]string{"name": name},
	})
	if err != nil {
		return "", publishError(err, "failed to encode document")
	}

	return c.pin(ctx, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload))
}

func (c *PinataClient) pin(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	url := strings.TrimRight(c.config.APIURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", publishError(err, "failed to create pin request")
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("Pin request failed")
		return "", publishError(err, "storage network unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", publishError(err, "failed to read pin response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Str("path", path).Str("body", string(raw)).Msg("Pin request rejected")
		return "", publishError(fmt.Errorf("pinning service returned status %d", resp.StatusCode), "upload rejected")
	}

	var pinned pinResponse
	if err := json.Unmarshal(raw, &pinned); err != nil {
		return "", publishError(err, "malformed pin response")
	}
	if pinned.IpfsHash == "" {
		return "", publishError(ErrInvalidCID, "pin response has no content identifier")
	}
	id, err := cid.Decode(pinned.IpfsHash)
	if err != nil {
		return "", publishError(fmt.Errorf("%w: %v", ErrInvalidCID, err), "pin response has a malformed content identifier")
	}

	locator := c.locator(id)
	c.logger.Info().Str("cid", id.String()).Int64("size", pinned.PinSize).Msg("Content pinned")
	return locator, nil
}

// Fetch reads content through the gateway
func (c *PinataClient) Fetch(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("ipfs: invalid locator %q: %w", locator, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ipfs: fetch %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfs: fetch %s: gateway returned status %d", locator, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
}

func (c *PinataClient) authorize(req *http.Request) {
	if c.config.JWT != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.JWT)
		return
	}
	req.Header.Set("pinata_api_key", c.config.APIKey)
	req.Header.Set("pinata_secret_api_key", c.config.APISecret)
}

func (c *PinataClient) locator(id cid.Cid) string {
	return strings.TrimRight(c.config.GatewayURL, "/") + "/ipfs/" + id.String()
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
