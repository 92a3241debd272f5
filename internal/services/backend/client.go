package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"venue-booking/utils"
)

type ClientConfig struct {
	// FunctionsBaseURL is the base url of the serverless checkout, auth
	// and messaging functions.
	FunctionsBaseURL string `json:"functionsBaseUrl" mapstructure:"functions_base_url"`

	// DataBaseURL is the base url of the backend's row-level data API.
	DataBaseURL string `json:"dataBaseUrl" mapstructure:"data_base_url"`

	// AuthBaseURL is the base url of the managed auth service.
	AuthBaseURL string `json:"authBaseUrl" mapstructure:"auth_base_url"`

	// APIKey is the anonymous api key sent with every data/auth request.
	APIKey string `json:"apiKey" mapstructure:"api_key"`

	// CheckoutTimeout bounds checkout function calls.
	CheckoutTimeout time.Duration `json:"checkoutTimeout" mapstructure:"checkout_timeout"`

	// DataTimeout bounds row-level read calls.
	DataTimeout time.Duration `json:"dataTimeout" mapstructure:"data_timeout"`

	// Breaker tunes the circuit breaker guarding the read path. Zero
	// values use the breaker's defaults.
	Breaker utils.BreakerSettings `json:"breaker" mapstructure:"breaker"`
}

type Client struct {
	// functionsURL is the base url of the serverless functions.
	functionsURL string

	// dataURL is the base url of the row-level data API.
	dataURL string

	// authURL is the base url of the managed auth service.
	authURL string

	// apiKey authenticates anonymous data/auth requests.
	apiKey string

	// hc is the http client for checkout functions.
	hc *http.Client

	// dataHC is the http client for row-level reads.
	dataHC *http.Client

	// breaker guards the read path against a flapping data API.
	breaker *utils.CircuitBreaker
}

// NewClient creates a new backend client.
func NewClient(c *ClientConfig) *Client {
	checkoutTimeout := c.CheckoutTimeout
	if checkoutTimeout == 0 {
		checkoutTimeout = 10 * time.Second
	}
	dataTimeout := c.DataTimeout
	if dataTimeout == 0 {
		dataTimeout = 30 * time.Second
	}

	return &Client{
		functionsURL: strings.TrimRight(c.FunctionsBaseURL, "/"),
		dataURL:      strings.TrimRight(c.DataBaseURL, "/"),
		authURL:      strings.TrimRight(c.AuthBaseURL, "/"),
		apiKey:       c.APIKey,

		hc:     &http.Client{Timeout: checkoutTimeout},
		dataHC: &http.Client{Timeout: dataTimeout},

		breaker: utils.NewCircuitBreaker("backend-data", c.Breaker),
	}
}

// callFunction posts a JSON payload to one of the serverless functions
// and returns the raw status code and body. bearer is optional.
func (c *Client) callFunction(ctx context.Context, name string, payload any, bearer string) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("callFunction: json.Marshal: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s", c.functionsURL, name), bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("callFunction: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", utils.RequestID())
	if bearer != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("callFunction: http.Do: %v", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("callFunction: io.ReadAll: %v", err)
	}

	return resp.StatusCode, reply, nil
}

// getRows performs a row-level read against the data API. The query is
// PostgREST-style: table plus filter/select parameters. bearer is
// optional; anonymous reads carry only the api key.
func (c *Client) getRows(ctx context.Context, table string, query url.Values, bearer string, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s?%s", c.dataURL, table, query.Encode()), nil)
		if err != nil {
			return nil, fmt.Errorf("getRows: http.NewReq: %v", err)
		}
		req.Header.Set("apikey", c.apiKey)
		if bearer != "" {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
		}

		resp, err := c.dataHC.Do(req)
		if err != nil {
			return nil, fmt.Errorf("getRows: http.Do: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("getRows: %s: status %d: %s", table, resp.StatusCode, body)
		}

		dec := json.NewDecoder(resp.Body)
		if err := dec.Decode(out); err != nil {
			return nil, fmt.Errorf("getRows: json.Decode: %v", err)
		}
		return nil, nil
	})
	return err
}

// getSingleRow reads exactly one row. The data API returns an array; a
// miss is reported as an error so callers never see a zero-valued row.
func getSingleRow[T any](ctx context.Context, c *Client, table string, query url.Values, bearer string) (*T, error) {
	var rows []T
	if err := c.getRows(ctx, table, query, bearer, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("getSingleRow: %s: no row matched", table)
	}
	return &rows[0], nil
}
