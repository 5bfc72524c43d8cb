package account

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labdata/labdata/internal/platform/auth"
	"github.com/labdata/labdata/internal/platform/db"
)

type revocationRepoPG struct{ pool *pgxpool.Pool }

// NewRevocationRepoPG stores logged-out token ids in revoked_tokens.
func NewRevocationRepoPG(pool *pgxpool.Pool) auth.RevocationBackend {
	return &revocationRepoPG{pool: pool}
}

func (r *revocationRepoPG) SaveRevocation(ctx context.Context, jti string, expiresAt time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO revoked_tokens (jti, expires_at) VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING`, jti, expiresAt)
	return db.TranslateError("revoked_tokens", err)
}

func (r *revocationRepoPG) ActiveRevocations(ctx context.Context, now time.Time) (map[string]time.Time, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT jti, expires_at FROM revoked_tokens WHERE expires_at > $1`, now)
	if err != nil {
		return nil, db.TranslateError("revoked_tokens", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var jti string
		var exp time.Time
		if err := rows.Scan(&jti, &exp); err != nil {
			return nil, err
		}
		out[jti] = exp
	}
	return out, rows.Err()
}

func (r *revocationRepoPG) PurgeRevocations(ctx context.Context, now time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now)
	return db.TranslateError("revoked_tokens", err)
}
