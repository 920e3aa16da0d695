package domain

import "time"

// SessionResult is the persisted outcome of a finished session.
type SessionResult struct {
	ID         int64
	SessionID  string
	Level      string
	Won        bool
	Score      int
	Stars      int
	MovesUsed  int
	MovesLeft  int
	Reshuffles int
	FinalBoard []string
	StartedAt  time.Time
	EndedAt    time.Time
	Duration   time.Duration
}

// LevelStats aggregates results for one level.
type LevelStats struct {
	Level     string
	Played    int
	Wins      int
	BestScore int
	BestStars int
}
