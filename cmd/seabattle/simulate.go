package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"seabattle/internal/ai"
	"seabattle/internal/app"
	"seabattle/internal/game"
	"seabattle/internal/match"
)

type simResult struct {
	winner int
	shots  int
}

// cmdSimulate plays computer against computer in parallel batches and
// prints who won how often.
func cmdSimulate(args []string) {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	games := fs.Int("games", envInt("GAMES", 100), "number of games")
	size := fs.Int("size", envInt("SIZE", app.DefaultSize), "board size")
	workers := fs.Int("workers", envInt("WORKERS", runtime.NumCPU()), "games played at once")
	seed := fs.Int64("seed", 0, "first game seed, 0 for time based")
	lf := addLogFlags(fs, "info")
	_ = fs.Parse(args)
	log := lf.logger()

	if *games < 0 {
		fmt.Fprintf(os.Stderr, "simulate: --games must be 0 or more, got %d\n", *games)
		fs.Usage()
		os.Exit(2)
	}

	base := seedOr(*seed)
	results, err := runBatch(context.Background(), *games, game.ClampSize(*size), *workers, base, log)
	if err != nil {
		log.Fatal().Err(err).Msg("simulate")
	}

	var wins [2]int
	total, least, most := 0, -1, 0
	for _, r := range results {
		wins[r.winner]++
		total += r.shots
		most = max(most, r.shots)
		if least < 0 || r.shots < least {
			least = r.shots
		}
	}
	log.Info().Int("games", *games).Int64("seed", base).Msg("simulation done")
	if *games == 0 {
		return
	}
	fmt.Printf("games:   %d\n", *games)
	fmt.Printf("AI 1:    %d wins (moves first)\n", wins[0])
	fmt.Printf("AI 2:    %d wins\n", wins[1])
	fmt.Printf("shots:   %.1f mean, %d min, %d max\n", float64(total)/float64(*games), least, most)
}

// runBatch plays games games on at most workers goroutines; game i uses
// seed base+i.
func runBatch(ctx context.Context, games, size, workers int, base int64, log zerolog.Logger) ([]simResult, error) {
	if games < 0 {
		return nil, fmt.Errorf("negative game count %d", games)
	}
	results := make([]simResult, games)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i := range results {
		g.Go(func() error {
			r, err := simulate(ctx, size, base+int64(i), log)
			results[i] = r
			return err
		})
	}
	return results, g.Wait()
}

func simulate(ctx context.Context, size int, seed int64, log zerolog.Logger) (simResult, error) {
	rng := rand.New(rand.NewSource(seed))
	glog := log.With().Int64("seed", seed).Logger()
	var seats [2]match.Seat
	for i := range seats {
		b, f, err := game.RandomFleet(size, rng)
		if err != nil {
			return simResult{}, err
		}
		name := fmt.Sprintf("AI %d", i+1)
		seats[i] = match.Seat{
			Player:      game.NewPlayer(name, b, f),
			Participant: ai.New(rand.New(rand.NewSource(rng.Int63())), glog),
		}
	}
	m := match.New(seats[0], seats[1], glog)
	w, err := m.Run(ctx)
	if err != nil {
		return simResult{}, err
	}
	return simResult{winner: w, shots: m.Shots()}, nil
}
