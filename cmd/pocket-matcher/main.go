package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/pocket-matcher/internal/config"
	"github.com/park285/pocket-matcher/internal/matcherbuilder"
	"github.com/park285/pocket-matcher/internal/obslog"
)

func main() {
	levelFlag := flag.String("level", "", "level to play (overrides LEVEL_NAME)")
	games := flag.Int("games", 1, "number of games to autoplay")
	flag.Parse()

	defer func() { os.Exit(exitCode) }()

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}
	if *levelFlag != "" {
		cfg.LevelName = *levelFlag
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := matcherbuilder.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init_error", zap.Error(err))
	}
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := deps.Close(cctx); err != nil {
			logger.Warn("close_error", zap.Error(err))
		}
	}()

	if err := play(ctx, deps, cfg.LevelName, *games); err != nil {
		logger.Error("autoplay_error", zap.Error(err))
		exitCode = 1
	}
}

var exitCode int

func play(ctx context.Context, deps *matcherbuilder.Deps, levelName string, games int) error {
	seed := deps.Seed()
	for i := 0; i < games; i++ {
		out, err := deps.Autoplay(ctx, levelName, seed+uint64(i))
		if err != nil {
			return fmt.Errorf("game %d: %w", i+1, err)
		}
		r := out.Result
		fmt.Printf("%s %s | won %t | turns %d | best %d\n", r.SessionID, out.Summary, r.Won, out.Turns, out.BestScore)
	}

	stats, err := deps.Results.Stats(ctx, levelName)
	if err != nil {
		return err
	}
	fmt.Printf("level=%s played=%d wins=%d best=%d\n", stats.Level, stats.Played, stats.Wins, stats.BestScore)
	return nil
}
