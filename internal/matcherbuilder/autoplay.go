package matcherbuilder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/pocket-matcher/internal/domain"
	"github.com/park285/pocket-matcher/internal/game"
	"github.com/park285/pocket-matcher/internal/render"
	"github.com/park285/pocket-matcher/internal/results"
)

// Outcome summarizes an autoplayed session.
type Outcome struct {
	Result    domain.SessionResult
	Turns     int
	BestScore int
	ImagePath string
	// Summary is the rendered game.summary line.
	Summary   string
}

// Autoplay plays levelName to the end, always taking the first available move.
// It persists snapshots after every turn and the final result.
func (d *Deps) Autoplay(ctx context.Context, levelName string, seed uint64) (*Outcome, error) {
	s, err := d.StartSession(ctx, levelName, seed)
	if err != nil {
		return nil, err
	}
	lvl := s.Level()
	log := d.logger.With(zap.String("session_id", s.ID()), zap.String("level", lvl.Name))
	log.Info("autoplay_start", zap.Uint64("seed", seed))

	if err := s.Begin(ctx); err != nil {
		return nil, err
	}
	if err := d.saveSnapshot(ctx, s); err != nil {
		return nil, err
	}

	out := &Outcome{}
	for !s.IsGameOver() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sw, ok, err := s.Hint()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("no move available on a playable board")
		}
		if _, err := s.Swap(ctx, sw.A, sw.B); err != nil {
			return nil, fmt.Errorf("turn %d: %w", out.Turns+1, err)
		}
		out.Turns++
		if err := d.saveSnapshot(ctx, s); err != nil {
			return nil, err
		}
	}

	out.Result = s.Result()
	id, err := d.Results.InsertResult(ctx, &out.Result)
	switch {
	case errors.Is(err, results.ErrDuplicateResult):
		log.Warn("autoplay_result_duplicate")
	case err != nil:
		return nil, fmt.Errorf("persist result: %w", err)
	default:
		out.Result.ID = id
	}
	if out.BestScore, err = d.Results.BestScore(ctx, lvl.Name); err != nil {
		return nil, err
	}
	out.Summary = d.Texts.Text("game.summary", map[string]any{
		"Level":     lvl.Name,
		"Score":     out.Result.Score,
		"MovesLeft": out.Result.MovesLeft,
		"Stars":     out.Result.Stars,
	}, fmt.Sprintf("%s | score %d | moves left %d | stars %d", lvl.Name, out.Result.Score, out.Result.MovesLeft, out.Result.Stars))

	png, err := d.Renderer.RenderPNG(ctx, s.Board(), render.Options{
		Title:     lvl.Name,
		Score:     out.Result.Score,
		Goal:      lvl.Goal(),
		MovesLeft: out.Result.MovesLeft,
	})
	if err != nil {
		return nil, fmt.Errorf("render board: %w", err)
	}
	if dir := strings.TrimSpace(d.Config.RenderOut); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		out.ImagePath = filepath.Join(dir, s.ID()+".png")
		if err := os.WriteFile(out.ImagePath, png, 0o644); err != nil {
			return nil, fmt.Errorf("write board image: %w", err)
		}
	}
	if d.Presenter != nil {
		if err := d.Presenter.ShowBoard(ctx, s.ID(), png); err != nil {
			log.Warn("autoplay_board_send_error", zap.Error(err))
		}
	}

	log.Info("autoplay_finish",
		zap.Bool("won", out.Result.Won),
		zap.Int("score", out.Result.Score),
		zap.Int("stars", out.Result.Stars),
		zap.Int("turns", out.Turns),
		zap.Int("best_score", out.BestScore),
	)
	return out, nil
}

func (d *Deps) saveSnapshot(ctx context.Context, s *game.Session) error {
	if d.Snapshots == nil {
		return nil
	}
	if err := d.Snapshots.Save(ctx, s.Snapshot()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
