package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/storefront-checkout/internal/domain"
	"github.com/joao-fontenele/storefront-checkout/internal/identity"
)

const (
	IdempotencyHeader = "Idempotency-Key"

	maxResponseBytes = 4 << 20
)

// Client talks to the headless content backend's generic REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, client *http.Client) *Client {
	return &Client{
		baseURL: baseURL,
		client:  client,
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type authResponse struct {
	JWT  string        `json:"jwt"`
	User identity.User `json:"user"`
}

type requestOption func(*http.Request)

func withBearer(credential string) requestOption {
	return func(r *http.Request) {
		if credential != "" {
			r.Header.Set("Authorization", "Bearer "+credential)
		}
	}
}

func withIdempotencyKey(key string) requestOption {
	return func(r *http.Request) {
		if key != "" {
			r.Header.Set(IdempotencyHeader, key)
		}
	}
}

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var resp envelope[[]domain.Product]
	if err := c.do(ctx, http.MethodGet, "/api/products?populate=*", nil, &resp, "failed to fetch products"); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	for _, p := range resp.Data {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("list products: %w", err)
		}
	}

	if resp.Data == nil {
		return []domain.Product{}, nil
	}
	return resp.Data, nil
}

func (c *Client) CreateOrder(ctx context.Context, credential, idempotencyKey string, order domain.OrderRecord) (domain.Created, error) {
	var resp envelope[domain.Created]
	err := c.do(ctx, http.MethodPost, "/api/orders", envelope[domain.OrderRecord]{Data: order}, &resp,
		"failed to create order", withBearer(credential), withIdempotencyKey(idempotencyKey))
	if err != nil {
		return domain.Created{}, fmt.Errorf("create order: %w", err)
	}
	return resp.Data, nil
}

func (c *Client) CreateTransaction(ctx context.Context, credential, idempotencyKey string, tx domain.TransactionRecord) (domain.Created, error) {
	var resp envelope[domain.Created]
	err := c.do(ctx, http.MethodPost, "/api/transactions", envelope[domain.TransactionRecord]{Data: tx}, &resp,
		"failed to create transaction", withBearer(credential), withIdempotencyKey(idempotencyKey))
	if err != nil {
		return domain.Created{}, fmt.Errorf("create transaction: %w", err)
	}
	return resp.Data, nil
}

// ListTransactions returns the user's transactions, newest first.
func (c *Client) ListTransactions(ctx context.Context, credential string, userID domain.ID) ([]domain.TransactionRecord, error) {
	query := url.Values{}
	query.Set("filters[user][id][$eq]", userID.String())
	query.Set("sort[0]", "createdAt:desc")
	query.Set("populate", "*")

	var resp envelope[[]domain.TransactionRecord]
	if err := c.do(ctx, http.MethodGet, "/api/transactions?"+query.Encode(), nil, &resp,
		"failed to fetch transactions", withBearer(credential)); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	if resp.Data == nil {
		return []domain.TransactionRecord{}, nil
	}
	return resp.Data, nil
}

func (c *Client) Login(ctx context.Context, identifier, password string) (identity.User, identity.Identity, error) {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/local", body, &resp, "authentication failed"); err != nil {
		return identity.User{}, identity.Identity{}, fmt.Errorf("login: %w", err)
	}

	if resp.JWT == "" || resp.User.ID.IsZero() {
		return identity.User{}, identity.Identity{}, errors.New("login: backend response is missing jwt or user")
	}

	return resp.User, identity.New(resp.User, resp.JWT), nil
}

// Register creates a backend user. The backend insists on an email, so one is
// derived from the username.
func (c *Client) Register(ctx context.Context, username, password string) (identity.User, error) {
	body := map[string]string{
		"username": username,
		"password": password,
		"email":    username + "@example.com",
	}

	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/local/register", body, &resp, "registration failed"); err != nil {
		return identity.User{}, fmt.Errorf("register: %w", err)
	}
	return resp.User, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, fallback string, opts ...requestOption) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody errorBody
		_ = json.Unmarshal(data, &errBody)
		return newAPIError(resp.StatusCode, errBody, fallback)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
