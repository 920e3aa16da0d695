package results

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/pocket-matcher/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

type postgres struct {
	db *sql.DB
}

// Open connects to Postgres and makes sure the results table exists.
func Open(ctx context.Context, databaseURL string) (Repository, func() error, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}
	return NewPostgres(db), db.Close, nil
}

func NewPostgres(db *sql.DB) Repository {
	return &postgres{db: db}
}

func (r *postgres) InsertResult(ctx context.Context, res *domain.SessionResult) (int64, error) {
	if err := validateResult(res); err != nil {
		return 0, err
	}
	board, err := json.Marshal(res.FinalBoard)
	if err != nil {
		return 0, fmt.Errorf("marshal final_board: %w", err)
	}

	const query = `
		INSERT INTO match3_results (
			session_id,
			level,
			won,
			score,
			stars,
			moves_used,
			moves_left,
			reshuffles,
			final_board,
			started_at,
			ended_at,
			duration_ms
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12)
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id`

	var id sql.NullInt64
	err = r.db.QueryRowContext(ctx, query,
		res.SessionID,
		res.Level,
		res.Won,
		res.Score,
		res.Stars,
		res.MovesUsed,
		res.MovesLeft,
		res.Reshuffles,
		board,
		res.StartedAt,
		res.EndedAt,
		res.Duration.Milliseconds(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !id.Valid) {
		return 0, ErrDuplicateResult
	}
	if err != nil {
		return 0, fmt.Errorf("insert session result: %w", err)
	}
	return id.Int64, nil
}

func (r *postgres) RecentResults(ctx context.Context, level string, limit int) ([]*domain.SessionResult, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	const query = `
		SELECT
			id,
			session_id,
			level,
			won,
			score,
			stars,
			moves_used,
			moves_left,
			reshuffles,
			final_board,
			started_at,
			ended_at,
			duration_ms
		FROM match3_results
		WHERE level = $1
		ORDER BY ended_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, level, limit)
	if err != nil {
		return nil, fmt.Errorf("select session results: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.SessionResult, 0, limit)
	for rows.Next() {
		var (
			res        domain.SessionResult
			boardJSON  []byte
			durationMS sql.NullInt64
		)
		if err := rows.Scan(
			&res.ID,
			&res.SessionID,
			&res.Level,
			&res.Won,
			&res.Score,
			&res.Stars,
			&res.MovesUsed,
			&res.MovesLeft,
			&res.Reshuffles,
			&boardJSON,
			&res.StartedAt,
			&res.EndedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan session result: %w", err)
		}
		if len(boardJSON) > 0 {
			if err := json.Unmarshal(boardJSON, &res.FinalBoard); err != nil {
				return nil, fmt.Errorf("decode final_board: %w", err)
			}
		}
		if durationMS.Valid {
			res.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		}
		out = append(out, &res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session results: %w", err)
	}
	return out, nil
}

func (r *postgres) BestScore(ctx context.Context, level string) (int, error) {
	var best sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT MAX(score) FROM match3_results WHERE level = $1`, level).Scan(&best)
	if err != nil {
		return 0, fmt.Errorf("select best score: %w", err)
	}
	return int(best.Int64), nil
}

func (r *postgres) Stats(ctx context.Context, level string) (*domain.LevelStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE won),
			COALESCE(MAX(score), 0),
			COALESCE(MAX(stars), 0)
		FROM match3_results
		WHERE level = $1`

	st := &domain.LevelStats{Level: level}
	if err := r.db.QueryRowContext(ctx, query, level).Scan(&st.Played, &st.Wins, &st.BestScore, &st.BestStars); err != nil {
		return nil, fmt.Errorf("select level stats: %w", err)
	}
	return st, nil
}
