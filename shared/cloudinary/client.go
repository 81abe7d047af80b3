package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.AssetStore = (*Client)(nil)

const (
	defaultBaseURL = "https://api.cloudinary.com/v1_1"
	defaultTimeout = 60 * time.Second
)

// Config holds the media store account settings. BaseURL is only overridden in tests.
type Config struct {
	CloudName    string
	APIKey       string
	APISecret    string
	UploadPreset string
	BaseURL      string
}

// Client is an authenticated client for the media store's upload and destroy APIs.
// Uploads use an unsigned upload preset; deletes are signed with the API secret.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a Client. A nil httpClient gets a default client with a 60s timeout.
// Missing credentials are reported per call as *domain.ConfigError, not here.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type destroyResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload stores data under folder and returns the asset's secure URL.
func (c *Client) Upload(ctx context.Context, data []byte, filename string, folder string) (domain.ImageReference, error) {
	if err := c.requireConfig("CLOUDINARY_CLOUD_NAME", c.cfg.CloudName, "CLOUDINARY_UPLOAD_PRESET", c.cfg.UploadPreset); err != nil {
		return "", err
	}

	op := fmt.Sprintf("uploading %s", filename)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart file field: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write multipart file field: %w", err)
	}
	// Unsigned presets only accept file, upload_preset and folder.
	if err := w.WriteField("upload_preset", c.cfg.UploadPreset); err != nil {
		return "", fmt.Errorf("failed to write upload_preset field: %w", err)
	}
	if folder != "" {
		if err := w.WriteField("folder", folder); err != nil {
			return "", fmt.Errorf("failed to write folder field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("image/upload"), &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var out uploadResponse
	if err := c.do(req, op, &out); err != nil {
		return "", err
	}
	if out.SecureURL == "" {
		return "", &domain.StoreError{Op: op, Err: errors.New("response carried no secure_url")}
	}

	return domain.ImageReference(out.SecureURL), nil
}

// Delete destroys each identifier with its own signed request. A failure for one
// identifier is recorded as OutcomeError and does not stop the others. An empty id
// list returns an empty map without touching the network.
func (c *Client) Delete(ctx context.Context, ids []string) (map[string]domain.DeleteOutcome, error) {
	ids = uniqueIDs(ids)
	results := make(map[string]domain.DeleteOutcome, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	if err := c.requireConfig(
		"CLOUDINARY_CLOUD_NAME", c.cfg.CloudName,
		"CLOUDINARY_API_KEY", c.cfg.APIKey,
		"CLOUDINARY_API_SECRET", c.cfg.APISecret,
	); err != nil {
		return nil, err
	}

	for _, id := range ids {
		outcome, err := c.destroy(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("publicID", id).Msg("Failed to delete asset")
		} else {
			log.Debug().Str("publicID", id).Str("outcome", string(outcome)).Msg("Deleted asset")
		}
		results[id] = outcome
	}

	return results, nil
}

func (c *Client) destroy(ctx context.Context, publicID string) (domain.DeleteOutcome, error) {
	op := fmt.Sprintf("destroying %s", publicID)
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature := Sign(map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
	}, c.cfg.APISecret)

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", timestamp)
	form.Set("api_key", c.cfg.APIKey)
	form.Set("signature", signature)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("image/destroy"), strings.NewReader(form.Encode()))
	if err != nil {
		return domain.OutcomeError, fmt.Errorf("failed to build destroy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out destroyResponse
	if err := c.do(req, op, &out); err != nil {
		return domain.OutcomeError, err
	}

	switch domain.DeleteOutcome(out.Result) {
	case domain.OutcomeDeleted:
		return domain.OutcomeDeleted, nil
	case domain.OutcomeNotFound:
		return domain.OutcomeNotFound, nil
	default:
		return domain.OutcomeError, &domain.StoreError{Op: op, Err: fmt.Errorf("unexpected result %q", out.Result)}
	}
}

// Sign computes the media store request signature: the SHA-1 hex digest of the
// parameters sorted by name, joined as k=v pairs with '&', followed by the secret.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func (c *Client) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.CloudName), path)
}

// do sends req and decodes a JSON body into out, normalizing transport and status
// failures into *domain.StoreError.
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return handleStoreError(op, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return handleStoreError(op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleStoreError(op, resp.StatusCode, errors.New(errorMessage(body, resp.Status)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return handleStoreError(op, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func handleStoreError(op string, status int, err error) error {
	return &domain.StoreError{Op: op, StatusCode: status, Err: err}
}

// errorMessage extracts {"error":{"message":...}} from a failure body, falling back
// to the HTTP status text.
func errorMessage(body []byte, fallback string) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return fallback
}

// requireConfig takes name/value pairs and returns a ConfigError naming every empty value.
func (c *Client) requireConfig(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return &domain.ConfigError{Missing: missing}
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
