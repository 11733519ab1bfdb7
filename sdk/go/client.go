package recountsdk

import (
	"bytes"
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

// Client is a minimal recount HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Sector string `json:"sector,omitempty"`
}

type Leader struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CatalogEntry struct {
	Code        string `json:"codigo"`
	Description string `json:"descricao"`
	Type        string `json:"tipo,omitempty"`
	Unit        string `json:"unidade,omitempty"`
	Barcode     string `json:"cod_barras,omitempty"`
}

// Item is a count record. Slots holds the editable slots, nil meaning empty.
type Item struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Sector      string     `json:"sector"`
	Code        string     `json:"codigo"`
	Description string     `json:"descricao"`
	Type        string     `json:"tipo"`
	SystemUnit  string     `json:"unidade_sistema"`
	Barcode     string     `json:"cod_barras"`
	Digitizer   string     `json:"digitador_nome"`
	TeamLeader  string     `json:"lider_equipe"`
	Warehouse   string     `json:"armazem"`
	LabelCode   string     `json:"codigo_etiqueta"`
	CountUnit   string     `json:"unidade_contagem"`
	UsedScale   bool       `json:"usou_balanca"`
	Counts      []float64  `json:"contagens"`
	Discrepancy float64    `json:"diferenca"`
	Status      string     `json:"status"`
	NextAction  string     `json:"proxima_acao"`
	Slots       []*float64 `json:"slots"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}

// ItemInput is the body of a submit or update. Nil slots are blank.
type ItemInput struct {
	Code        string     `json:"codigo,omitempty"`
	Description string     `json:"descricao,omitempty"`
	Digitizer   string     `json:"digitador_nome,omitempty"`
	TeamLeader  string     `json:"lider_equipe,omitempty"`
	Warehouse   string     `json:"armazem,omitempty"`
	LabelCode   string     `json:"codigo_etiqueta,omitempty"`
	CountUnit   string     `json:"unidade_contagem"`
	UsedScale   bool       `json:"usou_balanca,omitempty"`
	Counts      []*float64 `json:"contagens,omitempty"`
}

type ItemPage struct {
	Items      []Item `json:"items"`
	NextCursor string `json:"next_cursor"`
}

type ListOptions struct {
	Status string
	Search string
	Limit  int
	Cursor string
}

type Reconciliation struct {
	Status      string     `json:"status"`
	Discrepancy float64    `json:"diferenca"`
	NextAction  string     `json:"proxima_acao"`
	Counts      []float64  `json:"contagens"`
	Slots       []*float64 `json:"slots"`
}

type Summary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s body=%s", e.StatusCode, e.Code, e.Body)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Count is a helper for building ItemInput.Counts.
func Count(v float64) *float64 { return &v }

func (c *Client) Register(ctx context.Context, name, email, password, role, sector string) (User, error) {
	body := map[string]any{"name": name, "email": email, "password": password}
	if role != "" {
		body["role"] = role
	}
	if sector != "" {
		body["sector"] = sector
	}
	var resp User
	err := c.do(ctx, http.MethodPost, "v0/auth/register", body, &resp)
	return resp, err
}

// Login authenticates and stores the bearer token on the client.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var resp struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "v0/auth/login", map[string]any{"email": email, "password": password}, &resp); err != nil {
		return User{}, err
	}
	c.BearerToken = resp.Token
	return resp.User, nil
}

func (c *Client) Me(ctx context.Context) (User, error) {
	var resp User
	err := c.do(ctx, http.MethodGet, "v0/me", nil, &resp)
	return resp, err
}

func (c *Client) Leaders(ctx context.Context) ([]Leader, error) {
	var resp struct {
		Items []Leader `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/leaders", nil, &resp)
	return resp.Items, err
}

// SearchCatalog looks a product up by exact code, or by term when code is empty.
func (c *Client) SearchCatalog(ctx context.Context, code, term string) (CatalogEntry, error) {
	q := url.Values{}
	if code != "" {
		q.Set("codigo", code)
	}
	if term != "" {
		q.Set("term", term)
	}
	var resp CatalogEntry
	err := c.do(ctx, http.MethodGet, "v0/catalog/search?"+q.Encode(), nil, &resp)
	return resp, err
}

func (c *Client) CreateCatalogEntry(ctx context.Context, entry CatalogEntry) (CatalogEntry, error) {
	var resp CatalogEntry
	err := c.do(ctx, http.MethodPost, "v0/catalog", entry, &resp)
	return resp, err
}

func (c *Client) SubmitCount(ctx context.Context, in ItemInput) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPost, "v0/items", in, &resp)
	return resp, err
}

func (c *Client) UpdateItem(ctx context.Context, id string, in ItemInput) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodPut, "v0/items/"+url.PathEscape(id), in, &resp)
	return resp, err
}

func (c *Client) GetItem(ctx context.Context, id string) (Item, error) {
	var resp Item
	err := c.do(ctx, http.MethodGet, "v0/items/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "v0/items/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListItems(ctx context.Context, opts ListOptions) (ItemPage, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.Search != "" {
		q.Set("q", opts.Search)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	endpoint := "v0/items"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp ItemPage
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Reconcile previews the outcome of counts without storing them.
func (c *Client) Reconcile(ctx context.Context, counts []*float64, usedScale bool) (Reconciliation, error) {
	if counts == nil {
		counts = []*float64{}
	}
	var resp Reconciliation
	err := c.do(ctx, http.MethodPost, "v0/reconcile", map[string]any{"contagens": counts, "usou_balanca": usedScale}, &resp)
	return resp, err
}

func (c *Client) Summary(ctx context.Context) (Summary, error) {
	var resp Summary
	err := c.do(ctx, http.MethodGet, "v0/reports/summary", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
