package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Urkki/issuer-exercise/internal/adapter/middleware"
)

type fakeRow struct {
	status int
	body   []byte
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = r.status
	*dest[1].(*[]byte) = r.body
	return nil
}

// fakeDB stands in for the idempotency_keys table.
type fakeDB struct {
	cached map[string]fakeRow
}

func newFakeDB() *fakeDB {
	return &fakeDB{cached: make(map[string]fakeRow)}
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if row, ok := f.cached[args[0].(string)]; ok {
		return row
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.cached[args[0].(string)] = fakeRow{
		status: args[1].(int),
		body:   append([]byte(nil), args[2].([]byte)...),
	}
	return pgconn.CommandTag{}, nil
}

// newIdempotencyApp wires the middleware in front of a handler that
// reports how many times it actually ran.
func newIdempotencyApp(db middleware.DB, status int, calls *int) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Idempotency(db))
	app.Post("/hook", func(c *fiber.Ctx) error {
		*calls++
		return c.Status(status).JSON(fiber.Map{"calls": *calls})
	})
	return app
}

func post(t *testing.T, app *fiber.App, key string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	db := newFakeDB()
	calls := 0
	app := newIdempotencyApp(db, http.StatusOK, &calls)

	resp := post(t, app, "key-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	resp = post(t, app, "key-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	replayed, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, replayed)
	assert.Equal(t, "true", resp.Header.Get("X-Idempotency-Hit"))
}

func TestIdempotencyReplaysDecline(t *testing.T) {
	db := newFakeDB()
	calls := 0
	app := newIdempotencyApp(db, http.StatusForbidden, &calls)

	post(t, app, "key-1")
	resp := post(t, app, "key-1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Idempotency-Hit"))
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	db := newFakeDB()
	calls := 0
	app := newIdempotencyApp(db, http.StatusBadRequest, &calls)

	post(t, app, "key-1")
	resp := post(t, app, "key-1")

	// A 400 can be a transient failure, so the redelivery runs the
	// handler again instead of replaying it.
	assert.Equal(t, 2, calls)
	assert.Empty(t, resp.Header.Get("X-Idempotency-Hit"))
	assert.Empty(t, db.cached)
}

func TestIdempotencyIgnoresRequestsWithoutKey(t *testing.T) {
	db := newFakeDB()
	calls := 0
	app := newIdempotencyApp(db, http.StatusOK, &calls)

	post(t, app, "")
	post(t, app, "")

	assert.Equal(t, 2, calls)
	assert.Empty(t, db.cached)
}
