package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/rs/zerolog"

	"seabattle/internal/ai"
	"seabattle/internal/app"
	"seabattle/internal/console"
	"seabattle/internal/game"
	"seabattle/internal/match"
)

func cmdPlay(args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	mode := fs.String("mode", env("MODE", ""), "pvc or pvp; asked when empty")
	size := fs.Int("size", envInt("SIZE", 0), "board size; asked when 0")
	seed := fs.Int64("seed", 0, "random seed, 0 for time based")
	lf := addLogFlags(fs, "warn")
	_ = fs.Parse(args)
	log := lf.logger()

	ctx := context.Background()
	c := console.New(os.Stdin, os.Stdout)
	rng := rand.New(rand.NewSource(seedOr(*seed)))
	for {
		err := playOnce(ctx, c, rng, *mode, *size, log)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("play")
		}
		again, err := c.Ask(ctx, "\nType 'Y' to play again or anything else to quit: ", 'y')
		if err != nil || !again {
			return
		}
	}
}

func playOnce(ctx context.Context, c *console.Console, rng *rand.Rand, mode string, size int, log zerolog.Logger) error {
	if size == 0 {
		var err error
		if size, err = c.Menu(ctx); err != nil {
			return err
		}
	}
	size = game.ClampSize(size)

	pvp := mode == app.ModePvP
	if mode == "" {
		var err error
		pvp, err = c.Ask(ctx, "\nType 'P' to play against a friend or anything else to face the computer: ", 'p')
		if err != nil {
			return err
		}
	}

	names := [2]string{"PLAYER 1", "PLAYER 2"}
	humans := 1
	if pvp {
		humans = 2
	} else {
		names[1] = app.ComputerName
	}
	for i := 0; i < humans; i++ {
		s, err := c.Line(ctx, fmt.Sprintf("Nickname for %s: ", names[i]))
		if err != nil {
			return err
		}
		if s != "" {
			names[i] = s
		}
	}

	var players [2]*game.Player
	for i := range players {
		var (
			b   *game.Board
			f   *game.Fleet
			err error
		)
		if i < humans {
			b, f, err = c.PlaceFleet(ctx, names[i], size, rng)
		} else {
			b, f, err = game.RandomFleet(size, rng)
		}
		if err != nil {
			return err
		}
		players[i] = game.NewPlayer(names[i], b, f)
	}

	var seats [2]match.Seat
	for i := range seats {
		var p match.Participant = c.Human(players[i], players[1-i])
		if i >= humans {
			p = ai.New(rand.New(rand.NewSource(rng.Int63())), log.With().Str("ai", names[i]).Logger())
		}
		seats[i] = match.Seat{Player: players[i], Participant: p}
	}

	m := match.New(seats[0], seats[1], log)
	m.OnShot = func(tr match.TurnReport) {
		c.Printf("\n%s\n", console.Announce(names[tr.Shooter], tr.Report))
	}
	winner, err := m.Run(ctx)
	if err != nil {
		return err
	}

	c.Printf("\n")
	if err := console.WriteScreen(c.Out(), players[winner], players[1-winner]); err != nil {
		return err
	}
	c.Printf("\n%s wins after %d shots!\n", names[winner], m.Shots())
	return nil
}
