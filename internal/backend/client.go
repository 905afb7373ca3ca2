// Package backend talks to the REST backend that owns products, categories
// and accounts.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/markofilipovic2762/eshop-cms/internal/domain"
	apperrors "github.com/markofilipovic2762/eshop-cms/pkg/errors"
	"github.com/markofilipovic2762/eshop-cms/pkg/httpclient"
	"github.com/markofilipovic2762/eshop-cms/pkg/validator"
)

const upstreamName = "backend"

// HTTPDoer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy it.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client is the typed REST backend client.
type Client struct {
	http    HTTPDoer
	baseURL string
	logger  *slog.Logger
}

// New creates a client for the backend at baseURL.
func New(doer HTTPDoer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ProductFilter narrows GET /products. Zero fields are omitted.
type ProductFilter struct {
	CategoryID    int64
	SubcategoryID int64
	SupplierID    int64
	ProductName   string
}

func (f ProductFilter) query() url.Values {
	q := url.Values{}
	if f.CategoryID > 0 {
		q.Set("categoryId", strconv.FormatInt(f.CategoryID, 10))
	}
	if f.SubcategoryID > 0 {
		q.Set("subcategoryId", strconv.FormatInt(f.SubcategoryID, 10))
	}
	if f.SupplierID > 0 {
		q.Set("supplierId", strconv.FormatInt(f.SupplierID, 10))
	}
	if f.ProductName != "" {
		q.Set("productName", f.ProductName)
	}
	return q
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var sess domain.Session
	creds := domain.Credentials{Email: email, Password: password}
	if err := c.post(ctx, "/auth/login", creds, &sess); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &sess, nil
}

// Register creates an account. The response body is ignored.
func (c *Client) Register(ctx context.Context, reg domain.Registration) error {
	if err := c.post(ctx, "/auth/register", reg, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// Products lists products matching f. Records that fail validation are
// dropped and logged.
func (c *Client) Products(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	path := "/products"
	if q := f.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}

	var raw []domain.Product
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	out := make([]domain.Product, 0, len(raw))
	for _, p := range raw {
		if err := validator.Validate(p); err != nil {
			c.logger.WarnContext(ctx, "dropping invalid product from backend",
				slog.Int64("product_id", int64(p.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Product fetches one product. An invalid record is an error.
func (c *Client) Product(ctx context.Context, id domain.ProductID) (*domain.Product, error) {
	var p domain.Product
	if err := c.get(ctx, "/products/"+strconv.FormatInt(int64(id), 10), &p); err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	if err := validator.Validate(p); err != nil {
		return nil, apperrors.ServiceUnavailable("backend returned an invalid product", err)
	}
	return &p, nil
}

// Categories lists product categories, dropping invalid records.
func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	var raw []domain.Category
	if err := c.get(ctx, "/categories", &raw); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	out := make([]domain.Category, 0, len(raw))
	for _, cat := range raw {
		if err := validator.Validate(cat); err != nil {
			c.logger.WarnContext(ctx, "dropping invalid category from backend",
				slog.Int64("category_id", cat.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, cat)
	}
	return out, nil
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/categories", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("ping backend: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req, dst)
}

func (c *Client) post(ctx context.Context, path string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(ctx, req, dst)
}

func (c *Client) do(ctx context.Context, req *http.Request, dst any) error {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return apperrors.ServiceUnavailable("backend unreachable", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, upstreamName)
	}
	defer func() { _ = resp.Body.Close() }()

	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
