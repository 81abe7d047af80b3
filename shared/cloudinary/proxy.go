package cloudinary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/rs/zerolog/log"
)

var _ domain.AssetDeleter = (*ProxyDeleter)(nil)

// ConfigErrorCode marks a proxy rejection caused by unset signing credentials.
const ConfigErrorCode = "config_error"

// DeleteRequest is the body accepted by the delete proxy endpoint.
type DeleteRequest struct {
	PublicIDs []string `json:"publicIds"`
}

// DeleteResponse is the body returned by the delete proxy endpoint.
type DeleteResponse struct {
	Results map[string]domain.DeleteOutcome `json:"results,omitempty"`
	Error   string                          `json:"error,omitempty"`
	Code    string                          `json:"code,omitempty"`
	Missing []string                        `json:"missing,omitempty"`
}

// ProxyDeleter deletes assets through an intermediate endpoint that signs requests
// server side, so the API secret never leaves that server.
type ProxyDeleter struct {
	url        string
	httpClient *http.Client
}

func NewProxyDeleter(url string, httpClient *http.Client) *ProxyDeleter {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &ProxyDeleter{url: url, httpClient: httpClient}
}

// Delete posts ids to the proxy. Transport failures mark every id as OutcomeError;
// a configuration rejection from the proxy is returned as *domain.ConfigError.
func (p *ProxyDeleter) Delete(ctx context.Context, ids []string) (map[string]domain.DeleteOutcome, error) {
	ids = uniqueIDs(ids)
	results := make(map[string]domain.DeleteOutcome, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	payload, err := json.Marshal(DeleteRequest{PublicIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to encode delete request: %w", err)
	}

	resp, err := p.post(ctx, payload)
	if err != nil {
		log.Error().Err(err).Strs("publicIDs", ids).Msg("Delete proxy request failed")
		return failAll(ids), nil
	}

	if resp.Code == ConfigErrorCode {
		return nil, &domain.ConfigError{Missing: resp.Missing}
	}
	if resp.Error != "" {
		log.Error().Str("error", resp.Error).Strs("publicIDs", ids).Msg("Delete proxy rejected request")
		return failAll(ids), nil
	}

	for _, id := range ids {
		outcome, ok := resp.Results[id]
		switch {
		case !ok:
			results[id] = domain.OutcomeError
		case outcome == domain.OutcomeDeleted, outcome == domain.OutcomeNotFound:
			results[id] = outcome
		default:
			results[id] = domain.OutcomeError
		}
	}
	return results, nil
}

func (p *ProxyDeleter) post(ctx context.Context, payload []byte) (*DeleteResponse, error) {
	op := "posting to delete proxy"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build delete proxy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, handleStoreError(op, 0, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, handleStoreError(op, httpResp.StatusCode, err)
	}

	var out DeleteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
			return nil, handleStoreError(op, httpResp.StatusCode, errors.New(httpResp.Status))
		}
		return nil, handleStoreError(op, httpResp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	if out.Error == "" && (httpResp.StatusCode < 200 || httpResp.StatusCode > 299) {
		out.Error = httpResp.Status
	}
	return &out, nil
}

func failAll(ids []string) map[string]domain.DeleteOutcome {
	results := make(map[string]domain.DeleteOutcome, len(ids))
	for _, id := range ids {
		results[id] = domain.OutcomeError
	}
	return results
}
