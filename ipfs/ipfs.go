package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gobridgerelay/config"

	"github.com/cockroachdb/errors"
)

// Client pins JSON documents to a Pinata-compatible pinning service and
// reads them back through an IPFS gateway
type Client struct {
	PinURL    string
	Gateway   string
	APIKey    string
	APISecret string
	HTTP      *http.Client
}

func NewClient(cfg *config.Configuration) *Client {
	return &Client{
		PinURL:    cfg.IPFS.PinURL,
		Gateway:   cfg.IPFS.Gateway,
		APIKey:    cfg.IPFS.APIKey,
		APISecret: cfg.IPFS.APISecret,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
	}
}

type pinRequest struct {
	PinataContent map[string]interface{} `json:"pinataContent"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinJSON stores data and returns its CID
func (c *Client) PinJSON(ctx context.Context, data map[string]interface{}) (string, error) {
	if data == nil {
		return "", errors.New("only JSON objects can be pinned")
	}
	if c.APIKey == "" || c.APISecret == "" {
		return "", errors.New("pinning API key and secret are not set, export PINATA_API_KEY and PINATA_SECRET_API_KEY")
	}

	body, err := json.Marshal(&pinRequest{PinataContent: data})
	if err != nil {
		return "", errors.Wrap(err, "cannot marshal pin request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.PinURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "cannot create pin request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("pinata_api_key", c.APIKey)
	req.Header.Set("pinata_secret_api_key", c.APISecret)

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}

	var resp pinResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", errors.Wrap(err, "cannot unmarshal pin response")
	}
	if resp.IpfsHash == "" {
		return "", errors.New("pin response has no IpfsHash")
	}
	return resp.IpfsHash, nil
}

// GetJSON reads a pinned JSON object by CID
func (c *Client) GetJSON(ctx context.Context, cid string) (map[string]interface{}, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, errors.New("empty cid")
	}
	return FetchJSON(ctx, c.HTTP, ResolveURI(c.Gateway, "ipfs://"+cid))
}

// ResolveURI rewrites ipfs://<cid>[/path] to <gateway>/ipfs/<cid>[/path],
// other URIs are returned unchanged
func ResolveURI(gateway, uri string) string {
	if !strings.HasPrefix(uri, "ipfs://") {
		return uri
	}
	path := strings.TrimPrefix(uri, "ipfs://")
	path = strings.TrimPrefix(path, "ipfs/")
	return fmt.Sprintf("%s/ipfs/%s", strings.TrimRight(gateway, "/"), path)
}

// FetchJSON GETs url and decodes a JSON object
func FetchJSON(ctx context.Context, client *http.Client, url string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create request for %s", url)
	}

	c := &Client{HTTP: client}
	raw, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrapf(err, "%s is not a JSON object", url)
	}
	if data == nil {
		return nil, errors.Newf("%s is not a JSON object", url)
	}
	return data, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read response of %s", req.URL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("%s %s: status %d: %s", req.Method, req.URL, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
