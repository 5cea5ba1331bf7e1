// Command simulate drives the economy service with randomized gameplay:
// balls landing in buckets, the occasional duplicate or tampered score,
// level completions and session bookkeeping. Useful for watching the
// reconciliation pipeline end to end without the game client.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	app "github.com/okian/pachi/internal/app"
	"github.com/okian/pachi/pkg/logger"
)

const (
	ballsPerLevel   = 10
	maxBucketScore  = 500
	duplicateEvery  = 13 // every Nth ball resends the previous event id
	tamperedEvery   = 29 // every Nth ball carries an impossible score
	settleDuration  = 3 * time.Second
	dropInterval    = 50 * time.Millisecond
	defaultBalls    = 100
	defaultDataFile = "simulate_data.json"
)

func main() {
	balls := flag.Int("balls", defaultBalls, "number of balls to drop")
	dataFile := flag.String("data", defaultDataFile, "persisted record path")
	seed := flag.Int64("seed", time.Now().UnixNano(), "rng seed")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	_ = logger.SetLevelString("debug")
	log := logger.Get()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(*seed)) //nolint:gosec // simulation randomness, not crypto

	svc := app.New(
		app.WithLogger(log),
		app.WithDataFile(*dataFile),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	snapshot, err := svc.SessionSnapshot(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to read session: " + err.Error() + "\n")
		return
	}
	log.Info(ctx, "session resumed",
		logger.Int64("level", snapshot.Session.Level),
		logger.Int64("balance", snapshot.Balance),
		logger.Int("priorRewards", len(snapshot.Session.SessionRewards)),
	)

	level := snapshot.Session.Level
	ballsRemaining := snapshot.Session.BallsRemaining
	var roundScore, scoredThisLevel int64
	var eventID int64 = time.Now().Unix() * 1000

	for i := 0; i < *balls; i++ {
		eventID++
		score := int64(rng.Intn(maxBucketScore) + 1)
		bucket := fmt.Sprintf("Bucket_%d", rng.Intn(7))

		switch {
		case i > 0 && i%duplicateEvery == 0:
			// Replay the previous ball; the authority must not credit it twice.
			svc.OnScored(ctx, score, bucket, eventID-1)
		case i > 0 && i%tamperedEvery == 0:
			svc.OnScored(ctx, maxBucketScore*1000, bucket, eventID)
		default:
			svc.OnScored(ctx, score, bucket, eventID)
			roundScore += score
			scoredThisLevel++
		}

		if ballsRemaining > 0 {
			ballsRemaining--
		}

		if scoredThisLevel >= ballsPerLevel {
			svc.OnLevelCompleted(ctx)
			level++
			scoredThisLevel = 0
			if err := svc.ReportGameState(ctx, level, ballsRemaining, roundScore, scoredThisLevel); err != nil {
				log.Warn(ctx, "game state report failed", logger.Error(err))
			}
		}

		time.Sleep(dropInterval)
	}

	svc.OnLevelCompleted(ctx)
	time.Sleep(settleDuration)

	wallet, err := svc.Wallet(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to read wallet: " + err.Error() + "\n")
		return
	}
	log.Info(ctx, "simulation finished",
		logger.Int("ballsDropped", *balls),
		logger.Int64("finalWallet", wallet),
	)
}
