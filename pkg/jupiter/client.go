// Package jupiter provides a client for the Jupiter aggregator API on Solana.
package jupiter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	// DefaultBaseURL is the Jupiter Lite API endpoint.
	DefaultBaseURL = "https://lite-api.jup.ag/swap/v1"

	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 30 * time.Second
)

// ErrMalformedResponse marks a gateway reply that parsed as JSON but failed
// validation, or did not parse at all. Distinct from transport errors so the
// caller can tell a broken gateway from an unreachable one.
var ErrMalformedResponse = errors.New("malformed gateway response")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a Jupiter API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ClientConfig contains configuration for the Jupiter client.
type ClientConfig struct {
	BaseURL    string
	APIKey     string // Optional: for the authenticated API tier
	Timeout    time.Duration
	HTTPClient *http.Client
}

// NewClient creates a new Jupiter API client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = &ClientConfig{}
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     config.APIKey,
	}
}

// GetQuote fetches a swap quote from Jupiter and validates it into a Quote.
func (c *Client) GetQuote(ctx context.Context, params *QuoteParams) (*Quote, error) {
	if params.InputMint == "" || params.OutputMint == "" {
		return nil, fmt.Errorf("inputMint and outputMint are required")
	}
	if params.Amount == 0 {
		return nil, fmt.Errorf("amount is required")
	}

	query := url.Values{}
	query.Set("inputMint", params.InputMint)
	query.Set("outputMint", params.OutputMint)
	query.Set("amount", strconv.FormatUint(params.Amount, 10))
	query.Set("swapMode", "ExactIn")
	if params.SlippageBps > 0 {
		query.Set("slippageBps", strconv.Itoa(params.SlippageBps))
	}

	requestURL := fmt.Sprintf("%s/quote?%s", c.baseURL, query.Encode())

	body, err := c.do(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, err
	}

	var raw quoteResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return validateQuote(&raw)
}

// BuildSwapTransaction builds an unsigned swap transaction from a quote.
// The quote is echoed to the gateway exactly as it was returned.
func (c *Client) BuildSwapTransaction(ctx context.Context, quote *Quote, userPublicKey string, wrapSol bool) (*SwapTransaction, error) {
	if quote == nil || quote.raw == nil {
		return nil, fmt.Errorf("quote is required")
	}
	if userPublicKey == "" {
		return nil, fmt.Errorf("userPublicKey is required")
	}

	reqBody, err := json.Marshal(&swapRequest{
		QuoteResponse:             quote.raw,
		UserPublicKey:             userPublicKey,
		WrapAndUnwrapSol:          wrapSol,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	body, err := c.do(ctx, "POST", c.baseURL+"/swap", reqBody)
	if err != nil {
		return nil, err
	}

	var raw swapResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.SwapTransaction == "" {
		return nil, fmt.Errorf("%w: swap response missing transaction payload", ErrMalformedResponse)
	}

	return &SwapTransaction{
		Payload:              raw.SwapTransaction,
		LastValidBlockHeight: raw.LastValidBlockHeight,
	}, nil
}

// do executes an HTTP request against the gateway and returns the body.
func (c *Client) do(ctx context.Context, method, requestURL string, reqBody []byte) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Jupiter API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// validateQuote converts the raw wire shape into a Quote, rejecting responses
// with missing or non-numeric required fields.
func validateQuote(raw *quoteResponse) (*Quote, error) {
	if raw.InputMint == "" || raw.OutputMint == "" {
		return nil, fmt.Errorf("%w: quote missing mints", ErrMalformedResponse)
	}

	inAmount, err := strconv.ParseUint(raw.InAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad inAmount %q", ErrMalformedResponse, raw.InAmount)
	}

	outAmount, err := strconv.ParseUint(raw.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad outAmount %q", ErrMalformedResponse, raw.OutAmount)
	}

	// priceImpactPct is optional on some routes; absent means negligible.
	var impact float64
	if raw.PriceImpactPct != "" {
		impact, err = strconv.ParseFloat(raw.PriceImpactPct, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad priceImpactPct %q", ErrMalformedResponse, raw.PriceImpactPct)
		}
	}

	return &Quote{
		InputMint:      raw.InputMint,
		OutputMint:     raw.OutputMint,
		InAmount:       inAmount,
		OutAmount:      outAmount,
		PriceImpactPct: impact,
		SlippageBps:    raw.SlippageBps,
		raw:            raw,
	}, nil
}
