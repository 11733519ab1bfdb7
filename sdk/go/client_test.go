package recountsdk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recount/internal/config"
	"recount/internal/db"
	"recount/internal/engine"
	"recount/internal/migrate"
	"recount/internal/server"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(context.Background(), conn))
	e := engine.New(conn, config.Default())
	_, err = e.SeedCatalog(context.Background(), 0)
	require.NoError(t, err)
	handler, err := server.New(server.Config{Engine: e, BasePath: "/v0", Auth: server.AuthConfig{JWTSecret: "sdk-secret"}})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCountFlow(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := New(srv.URL)

	_, err := c.Register(ctx, "Ana", "ana@example.com", "pw", "", "ALMOX")
	require.NoError(t, err)
	_, err = c.Me(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	u, err := c.Login(ctx, "ana@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ALMOX", u.Sector)

	entry, err := c.SearchCatalog(ctx, "", "martelo")
	require.NoError(t, err)
	assert.Equal(t, "1003", entry.Code)

	item, err := c.SubmitCount(ctx, ItemInput{Code: entry.Code, CountUnit: "UN", Counts: []*float64{Count(4), nil}})
	require.NoError(t, err)
	assert.Equal(t, "IN_PROGRESS", item.Status)
	assert.Equal(t, "MARTELO CARPINTEIRO", item.Description)

	item, err = c.UpdateItem(ctx, item.ID, ItemInput{Counts: []*float64{Count(4), Count(4)}})
	require.NoError(t, err)
	assert.Equal(t, "COUNTED", item.Status)
	assert.Equal(t, []float64{4, 4}, item.Counts)

	_, err = c.UpdateItem(ctx, item.ID, ItemInput{Counts: []*float64{Count(4), Count(4), Count(5)}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "count_closed", apiErr.Code)

	page, err := c.ListItems(ctx, ListOptions{Search: "martelo"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	summary, err := c.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ByStatus["COUNTED"])

	preview, err := c.Reconcile(ctx, []*float64{Count(1), Count(2)}, false)
	require.NoError(t, err)
	assert.Equal(t, "NEEDS_REVIEW", preview.Status)
	assert.Equal(t, "perform count number 3", preview.NextAction)

	require.NoError(t, c.DeleteItem(ctx, item.ID))
	_, err = c.GetItem(ctx, item.ID)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}
