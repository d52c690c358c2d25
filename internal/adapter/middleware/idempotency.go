package middleware

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of the pgx pool API the middleware needs. *pgxpool.Pool
// satisfies it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Idempotency replays the cached response when the card network redelivers
// a webhook with an Idempotency-Key header it already sent. Requests
// without the header pass through untouched.
func Idempotency(db DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		var status int
		var body []byte
		err := db.QueryRow(c.Context(),
			`SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1`,
			key).Scan(&status, &body)
		if err == nil {
			slog.Info("idempotency hit, replaying cached response", "key", key)
			c.Set("X-Idempotency-Hit", "true")
			c.Set("Content-Type", "application/json")
			return c.Status(status).Send(body)
		}

		if err := c.Next(); err != nil {
			return err
		}

		resStatus := c.Response().StatusCode()
		if !cacheable(resStatus) {
			return nil
		}
		resBody := c.Response().Body()
		_, insertErr := db.Exec(c.Context(),
			`INSERT INTO idempotency_keys (key_id, response_status, response_body)
			 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			key, resStatus, resBody)
		if insertErr != nil {
			slog.Error("failed to save idempotency key", "error", insertErr, "key", key)
		}
		return nil
	}
}

// cacheable reports whether a response is a final webhook outcome. 400s
// can come from transient failures, and a redelivery should get a fresh
// attempt rather than a replay of one of those.
func cacheable(status int) bool {
	if status >= 200 && status < 300 {
		return true
	}
	return status == fiber.StatusForbidden
}
