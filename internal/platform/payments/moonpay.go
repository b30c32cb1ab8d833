package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.moonpay.com"

var ErrDecode = errors.New("failed to parse response")

// UpstreamError is a non-2xx answer from MoonPay.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
}

// TransportError means the request never produced a response.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "request error: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// MoonPay is a thin pass-through client; responses are returned as raw JSON.
type MoonPay struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewMoonPay(baseURL, apiKey string, client *http.Client) *MoonPay {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &MoonPay{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: client}
}

// BuyTransactions lists the buy transactions MoonPay holds for a customer.
func (m *MoonPay) BuyTransactions(ctx context.Context, customerID int64, bearer string) (json.RawMessage, error) {
	q := url.Values{"externalCustomerId": {strconv.FormatInt(customerID, 10)}}
	return m.get(ctx, "failed to fetch transaction info", "/v1/transactions", q, bearer)
}

func (m *MoonPay) BuyQuote(ctx context.Context, cryptoCode, fiatCode string, cryptoAmount uint64) (json.RawMessage, error) {
	q := url.Values{
		"quoteCurrencyAmount": {strconv.FormatUint(cryptoAmount, 10)},
		"baseCurrencyCode":    {fiatCode},
		"apiKey":              {m.apiKey},
	}
	return m.get(ctx, "failed to fetch buy quote info", "/v3/currencies/"+url.PathEscape(cryptoCode)+"/buy_quote", q, "")
}

func (m *MoonPay) BuyTransaction(ctx context.Context, transactionID string) (json.RawMessage, error) {
	q := url.Values{"apiKey": {m.apiKey}}
	return m.get(ctx, "failed to fetch buy info", "/v1/transactions/"+url.PathEscape(transactionID), q, "")
}

func (m *MoonPay) SwapTransaction(ctx context.Context, transactionID, bearer string) (json.RawMessage, error) {
	q := url.Values{"apiKey": {m.apiKey}}
	return m.get(ctx, "failed to fetch swap info", "/v4/swap/transaction/"+url.PathEscape(transactionID), q, bearer)
}

func (m *MoonPay) get(ctx context.Context, op, path string, q url.Values, bearer string) (json.RawMessage, error) {
	endpoint := m.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: op, Status: resp.StatusCode, Body: string(body)}
	}
	if !json.Valid(body) {
		return nil, ErrDecode
	}
	return json.RawMessage(body), nil
}
