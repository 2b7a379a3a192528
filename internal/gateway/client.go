package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient implements Client against the provider's REST API.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	shortcode string
	http      *http.Client
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a gateway client. timeout bounds every call; the
// provider is treated as unreliable and slow.
func NewHTTPClient(baseURL, apiKey, shortcode string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		shortcode: shortcode,
		http:      &http.Client{Timeout: timeout},
	}
}

type initiateRequest struct {
	Shortcode      string `json:"shortcode"`
	Phone          string `json:"phone"`
	Amount         int64  `json:"amount"`
	IdempotencyRef string `json:"idempotency_ref"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Initiate sends an STK push to the given phone number.
func (c *HTTPClient) Initiate(ctx context.Context, phone string, amount int64, idempotencyRef string) (*InitiateResult, error) {
	body, err := json.Marshal(initiateRequest{
		Shortcode:      c.shortcode,
		Phone:          phone,
		Amount:         amount,
		IdempotencyRef: idempotencyRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode initiate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/debits", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build initiate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failure: the debit was never attempted on the provider.
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RejectedError{Message: readErrorMessage(resp)}
	}

	result := &InitiateResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to decode initiate response: %w", err)
	}
	if result.TrackingRef == "" {
		return nil, &RejectedError{Message: "provider returned no tracking reference"}
	}

	return result, nil
}

// Query returns the current status of a previously initiated debit.
func (c *HTTPClient) Query(ctx context.Context, trackingRef string) (*QueryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/debits/"+trackingRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RejectedError{Message: readErrorMessage(resp)}
	}

	result := &QueryResult{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}

	return result, nil
}

func readErrorMessage(resp *http.Response) string {
	var errResp errorResponse
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		return errResp.Message
	}
	return fmt.Sprintf("provider returned status %d", resp.StatusCode)
}
