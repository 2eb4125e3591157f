package clients

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

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/pkg/retrier"
)

// DefaultBaseURL is the production Mercado Bitcoin REST v4 endpoint.
const DefaultBaseURL = "https://api.mercadobitcoin.net/api/v4"

// APIError is a non-200 response from the exchange.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("mercado bitcoin api error %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("mercado bitcoin api http error %d", e.StatusCode)
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil {
		return &APIError{StatusCode: status}
	}
	return apiErr
}

// Options configures the Client.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Client is the authenticated gateway to the exchange REST API. Requests are
// retried a bounded number of times with a fixed delay; an HTTP 401 on an
// authenticated call re-authenticates once and resends before counting as a
// failure.
type Client struct {
	auth       *Authenticator
	baseURL    string
	httpClient *http.Client
	retrier    *retrier.Retrier
	l          *zap.Logger
}

// NewClient creates a Client on top of the given Authenticator.
func NewClient(auth *Authenticator, opts Options, l *zap.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var retryOpts []retrier.Option
	if opts.MaxAttempts > 0 {
		retryOpts = append(retryOpts, retrier.WithMaxAttempts(opts.MaxAttempts))
	}
	if opts.RetryDelay > 0 {
		retryOpts = append(retryOpts, retrier.WithDelay(opts.RetryDelay))
	}

	return &Client{
		auth:       auth,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retrier:    retrier.New(retryOpts...),
		l:          l,
	}
}

// GetAccounts lists the accounts the credentials can trade with.
func (c *Client) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := c.get(ctx, "/accounts", true, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetBalances lists the balances of one account.
func (c *Client) GetBalances(ctx context.Context, accountID string) ([]domain.Balance, error) {
	var balances []domain.Balance
	path := fmt.Sprintf("/accounts/%s/balances", url.PathEscape(accountID))
	if err := c.get(ctx, path, true, &balances); err != nil {
		return nil, err
	}
	return balances, nil
}

// GetAllOrders retrieves the full order history of an account.
func (c *Client) GetAllOrders(ctx context.Context, accountID string) (*domain.OrderList, error) {
	var list domain.OrderList
	path := fmt.Sprintf("/accounts/%s/orders", url.PathEscape(accountID))
	if err := c.get(ctx, path, true, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetOrders retrieves the orders of an account for one instrument.
func (c *Client) GetOrders(ctx context.Context, accountID, symbol string) ([]domain.Order, error) {
	var orders []domain.Order
	path := fmt.Sprintf("/accounts/%s/%s/orders", url.PathEscape(accountID), url.PathEscape(symbol))
	if err := c.get(ctx, path, true, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder retrieves a single order by id.
func (c *Client) GetOrder(ctx context.Context, accountID, symbol, orderID string) (*domain.Order, error) {
	var order domain.Order
	path := fmt.Sprintf("/accounts/%s/%s/orders/%s",
		url.PathEscape(accountID), url.PathEscape(symbol), url.PathEscape(orderID))
	if err := c.get(ctx, path, true, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetTicker returns the public market summary for one instrument.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error) {
	var ticker domain.Ticker
	path := fmt.Sprintf("/%s/ticker", url.PathEscape(symbol))
	if err := c.get(ctx, path, false, &ticker); err != nil {
		return nil, err
	}
	return &ticker, nil
}

// GetTickers returns public market summaries for several instruments.
func (c *Client) GetTickers(ctx context.Context, symbols ...string) ([]domain.Ticker, error) {
	var tickers []domain.Ticker
	path := "/tickers?symbols=" + url.QueryEscape(strings.Join(symbols, ","))
	if err := c.get(ctx, path, false, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// GetOrderbook returns the public order book snapshot for one instrument.
func (c *Client) GetOrderbook(ctx context.Context, symbol string) (*domain.Orderbook, error) {
	var book domain.Orderbook
	path := fmt.Sprintf("/%s/orderbook", url.PathEscape(symbol))
	if err := c.get(ctx, path, false, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// PlaceOrderRequest is the order submission payload. Market buys are sized by
// Cost (fiat), market sells by Qty (crypto).
type PlaceOrderRequest struct {
	Side       string `json:"side"`
	Type       string `json:"type"`
	Cost       string `json:"cost,omitempty"`
	Qty        string `json:"qty,omitempty"`
	LimitPrice string `json:"limitPrice,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

// PlaceOrder submits an order for an account and instrument.
func (c *Client) PlaceOrder(ctx context.Context, accountID, symbol string, req PlaceOrderRequest) (*domain.PlacedOrder, error) {
	var placed domain.PlacedOrder
	path := fmt.Sprintf("/accounts/%s/%s/orders", url.PathEscape(accountID), url.PathEscape(symbol))
	if err := c.do(ctx, http.MethodPost, path, req, true, &placed); err != nil {
		return nil, err
	}
	if placed.OrderID == "" {
		return nil, errors.New("exchange accepted order but returned no order id")
	}
	return &placed, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, accountID, symbol, orderID string) error {
	path := fmt.Sprintf("/accounts/%s/%s/orders/%s",
		url.PathEscape(accountID), url.PathEscape(symbol), url.PathEscape(orderID))
	return c.do(ctx, http.MethodDelete, path, nil, true, nil)
}

func (c *Client) get(ctx context.Context, path string, authenticated bool, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, authenticated, out)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, authenticated bool, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to encode request body")
		}
	}

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		err := c.send(ctx, method, path, payload, authenticated, out)
		if err != nil {
			c.l.Warn("exchange request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Error(err))
		}
		return err
	})
}

// send performs one attempt. On 401 it re-authenticates and resends once
// within the same attempt, matching the gateway's auth-retry contract.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, authenticated bool, out interface{}) error {
	resp, body, err := c.roundTrip(ctx, method, path, payload, authenticated)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		c.auth.Invalidate()
		if err := c.auth.Authenticate(ctx); err != nil {
			return errors.Wrap(err, "re-authentication after 401 failed")
		}
		resp, body, err = c.roundTrip(ctx, method, path, payload, authenticated)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s %s response", method, path)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, authenticated bool) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	if authenticated {
		header, err := c.auth.AuthorizationHeader(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "authentication failed")
		}
		req.Header.Set("Authorization", header)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read %s %s response", method, path)
	}
	return resp, body, nil
}
