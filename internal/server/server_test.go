package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"

	"recount/internal/config"
	"recount/internal/db"
	"recount/internal/engine"
	"recount/internal/migrate"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, config.Default())
	if _, err := e.SeedCatalog(context.Background(), 3); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

// signup registers an account and returns bearer headers for it.
func signup(t *testing.T, srv *testServer, name, role, sector string) map[string]string {
	t.Helper()
	email := name + "@example.com"
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/register", map[string]any{
		"name": name, "email": email, "password": "pw", "role": role, "sector": sector,
	}, nil)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: %d %s", name, res.StatusCode, string(body))
	}
	res, body = doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{
		"email": email, "password": "pw",
	}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %d %s", name, res.StatusCode, string(body))
	}
	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.Token == "" {
		t.Fatalf("token: %v %s", err, string(body))
	}
	return map[string]string{"Authorization": "Bearer " + tok.Token}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v %s", err, string(body))
	}
	return env.Error.Code
}

func TestHealthIsPublicAndItemsAreNot(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health: %d %s", res.StatusCode, string(body))
	}
	if res.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/items", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", res.StatusCode, string(body))
	}
	if code := errorCode(t, body); code != "unauthorized" {
		t.Fatalf("unexpected code %s", code)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/items", nil, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", res.StatusCode)
	}
}

func TestAccounts(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	headers := signup(t, srv, "lia", "leader", "ALMOX")

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/register", map[string]any{
		"name": "dup", "email": "lia@example.com", "password": "x",
	}, nil)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict, got %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{
		"email": "lia@example.com", "password": "wrong",
	}, nil)
	if res.StatusCode != http.StatusUnauthorized || errorCode(t, body) != "invalid_credentials" {
		t.Fatalf("expected invalid credentials, got %d %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/me", nil, headers)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me: %d %s", res.StatusCode, string(body))
	}
	var me map[string]any
	_ = json.Unmarshal(body, &me)
	if me["role"] != "leader" || me["sector"] != "ALMOX" {
		t.Fatalf("unexpected me %v", me)
	}
	if _, leaked := me["password_hash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/leaders", nil, headers)
	if res.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"lia"`)) {
		t.Fatalf("leaders: %d %s", res.StatusCode, string(body))
	}
}

func TestCountFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	ana := signup(t, srv, "ana", "user", "ALMOX")

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/items", map[string]any{
		"codigo":           "1001",
		"unidade_contagem": "UN",
		"digitador_nome":   "Ana",
		"contagens":        []any{"10", ""},
	}, ana)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit: %d %s", res.StatusCode, string(body))
	}
	var item ItemResponse
	if err := json.Unmarshal(body, &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if item.Description != "PARAFUSO SEXTAVADO 1/2 POL" || item.Status != "IN_PROGRESS" {
		t.Fatalf("unexpected item %+v", item)
	}
	if len(item.Slots) != 2 || item.Slots[0] == nil || *item.Slots[0] != 10 || item.Slots[1] != nil {
		t.Fatalf("unexpected slots %v", item.Slots)
	}

	itemURL := srv.URL + "/v0/items/" + item.ID
	res, body = doJSON(t, client, http.MethodPut, itemURL, map[string]any{
		"unidade_contagem": "UN",
		"contagens":        []any{10, 10.5},
	}, ana)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("update: %d %s", res.StatusCode, string(body))
	}
	_ = json.Unmarshal(body, &item)
	if item.Status != "NEEDS_REVIEW" || item.NextAction != "perform count number 3" || len(item.Slots) != 3 {
		t.Fatalf("expected recount request, got %+v", item)
	}

	res, body = doJSON(t, client, http.MethodPut, itemURL, map[string]any{
		"contagens": []any{10, 10.5, 10.5},
	}, ana)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("third count: %d %s", res.StatusCode, string(body))
	}
	_ = json.Unmarshal(body, &item)
	if item.Status != "COUNTED" || item.NextAction != "completed" || len(item.Slots) != 3 {
		t.Fatalf("expected counted, got %+v", item)
	}

	res, body = doJSON(t, client, http.MethodPut, itemURL, map[string]any{
		"contagens": []any{10, 10.5, 10.5, 11},
	}, ana)
	if res.StatusCode != http.StatusConflict || errorCode(t, body) != "count_closed" {
		t.Fatalf("expected count_closed, got %d %s", res.StatusCode, string(body))
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/items?status=COUNTED", nil, ana)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", res.StatusCode, string(body))
	}
	var list ItemList
	_ = json.Unmarshal(body, &list)
	if len(list.Items) != 1 || list.Items[0].ID != item.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/reports/summary", nil, ana)
	if res.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"COUNTED":1`)) {
		t.Fatalf("summary: %d %s", res.StatusCode, string(body))
	}

	res, _ = doJSON(t, client, http.MethodDelete, itemURL, nil, ana)
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", res.StatusCode)
	}
	res, _ = doJSON(t, client, http.MethodGet, itemURL, nil, ana)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func TestItemScoping(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	ana := signup(t, srv, "ana", "user", "ALMOX")
	caio := signup(t, srv, "caio", "user", "ALMOX")
	lia := signup(t, srv, "lia", "leader", "ALMOX")

	res, body := doJSON(t, client, http.MethodPost, srv.URL+"/v0/items", map[string]any{
		"codigo": "X-9", "descricao": "Avulso", "unidade_contagem": "UN",
	}, ana)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("submit: %d %s", res.StatusCode, string(body))
	}
	var item ItemResponse
	_ = json.Unmarshal(body, &item)

	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/items/"+item.ID, nil, caio)
	if res.StatusCode != http.StatusForbidden || errorCode(t, body) != "forbidden" {
		t.Fatalf("expected 403, got %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/items/"+item.ID, nil, lia)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("leader get: %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/items", nil, caio)
	var list ItemList
	_ = json.Unmarshal(body, &list)
	if res.StatusCode != http.StatusOK || len(list.Items) != 0 {
		t.Fatalf("caio should see nothing: %d %s", res.StatusCode, string(body))
	}
}

func TestItemValidation(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ana := signup(t, srv, "ana", "user", "")
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/items", map[string]any{
		"codigo": "1001", "unidade_contagem": "",
	}, ana)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/items?status=DONE", nil, ana)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d %s", res.StatusCode, string(body))
	}
}

func TestCatalogEndpoints(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	ana := signup(t, srv, "ana", "user", "ALMOX")

	res, body := doJSON(t, client, http.MethodGet, srv.URL+"/v0/catalog/search", nil, ana)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without params, got %d %s", res.StatusCode, string(body))
	}
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v0/catalog/search?codigo=none", nil, ana)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
	res, body = doJSON(t, client, http.MethodGet, srv.URL+"/v0/catalog/search?term=7890001003", nil, ana)
	if res.StatusCode != http.StatusOK || !bytes.Contains(body, []byte(`"codigo":"1003"`)) {
		t.Fatalf("search by barcode: %d %s", res.StatusCode, string(body))
	}
	res, body = doJSON(t, client, http.MethodPost, srv.URL+"/v0/catalog", map[string]any{
		"codigo": "1003", "descricao": "again",
	}, ana)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict, got %d %s", res.StatusCode, string(body))
	}
}

func TestReconcilePreview(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ana := signup(t, srv, "ana", "user", "")
	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/reconcile", map[string]any{
		"usou_balanca": true,
		"contagens":    []any{"10", "abc", 10.0025},
	}, ana)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reconcile: %d %s", res.StatusCode, string(body))
	}
	var out ReconcileResponse
	_ = json.Unmarshal(body, &out)
	if out.Status != "COUNTED" || len(out.Counts) != 2 {
		t.Fatalf("unexpected preview %+v", out)
	}
}

func TestOpenAPIServed(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, body := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK || !bytes.Contains(body, []byte("/v0/items/{id}")) {
		t.Fatalf("openapi: %d", res.StatusCode)
	}
}

func TestOpenAPIConcurrentFirstRequests(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	const n = 8
	bodies := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := srv.Client().Get(srv.URL + "/v0/openapi.json")
			if err != nil {
				errs[i] = err
				return
			}
			defer res.Body.Close()
			if res.StatusCode != http.StatusOK {
				errs[i] = fmt.Errorf("status %d", res.StatusCode)
				return
			}
			bodies[i], errs[i] = io.ReadAll(res.Body)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("request %d: %v", i, errs[i])
		}
		if !bytes.Equal(bodies[i], bodies[0]) {
			t.Fatalf("request %d served a different document", i)
		}
	}
	if !bytes.Contains(bodies[0], []byte("bearerAuth")) {
		t.Fatalf("document is missing the security scheme")
	}
}
