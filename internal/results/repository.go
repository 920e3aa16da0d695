package results

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/pocket-matcher/internal/domain"
)

var (
	ErrDuplicateResult = errors.New("session result already exists")
	ErrInvalidResult   = errors.New("invalid session result")
)

// Repository stores finished sessions.
type Repository interface {
	InsertResult(ctx context.Context, res *domain.SessionResult) (int64, error)
	RecentResults(ctx context.Context, level string, limit int) ([]*domain.SessionResult, error)
	// BestScore returns 0 when the level has no results.
	BestScore(ctx context.Context, level string) (int, error)
	Stats(ctx context.Context, level string) (*domain.LevelStats, error)
}

const defaultRecentLimit = 10

func validateResult(res *domain.SessionResult) error {
	if res == nil {
		return fmt.Errorf("%w: nil", ErrInvalidResult)
	}
	if strings.TrimSpace(res.SessionID) == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidResult)
	}
	return nil
}
