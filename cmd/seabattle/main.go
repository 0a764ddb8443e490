package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"seabattle/internal/app"
	"seabattle/internal/codec"
	"seabattle/internal/logging"
	"seabattle/internal/server"
	"seabattle/internal/zk"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "play":
		cmdPlay(args)
	case "simulate":
		cmdSimulate(args)
	case "serve":
		cmdServe(args)
	case "keys":
		cmdKeys(args)
	case "verify":
		cmdVerify(args)
	default:
		usage()
	}
}

func usage() {
	fmt.Println(`Sea Battle

Commands:
  play     [--mode pvc|pvp] [--size N] [--seed S]
  simulate --games N [--size N] [--workers W] [--seed S]
  serve    --addr :8080 [--proofs --keys ./keys]
  keys     --keys ./keys
  verify   --root ROOT_HEX --proof proof.json [--keys ./keys]

Every flag can also be set through SEABATTLE_<FLAG> (e.g. SEABATTLE_LOG_LEVEL).`)
}

// env returns SEABATTLE_<name> or def when it is unset.
func env(name, def string) string {
	if v, ok := os.LookupEnv("SEABATTLE_" + name); ok {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	n, err := strconv.Atoi(env(name, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return n
}

func envBool(name string) bool {
	b, _ := strconv.ParseBool(env(name, "false"))
	return b
}

type logFlags struct {
	level  *string
	format *string
}

func addLogFlags(fs *flag.FlagSet, level string) logFlags {
	return logFlags{
		level:  fs.String("log-level", env("LOG_LEVEL", level), "trace, debug, info, warn or error"),
		format: fs.String("log-format", env("LOG_FORMAT", logging.FormatConsole), "console or json"),
	}
}

// logger builds the command logger on stderr, leaving stdout to the game.
func (f logFlags) logger() zerolog.Logger {
	l, err := logging.New(*f.level, *f.format, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logging.Install(l)
	return l
}

func seedOr(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

// === serve ===

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", env("ADDR", ":8080"), "listen address")
	proofs := fs.Bool("proofs", envBool("PROOFS"), "attach groth16 proofs to shot payloads")
	keys := fs.String("keys", env("KEYS", "./keys"), "keys directory")
	lf := addLogFlags(fs, "info")
	_ = fs.Parse(args)
	log := lf.logger()

	var prover *zk.Prover
	if *proofs {
		if err := zk.EnsureShotKeys(*keys, log); err != nil {
			log.Fatal().Err(err).Msg("shot keys")
		}
		p, err := zk.LoadProver(*keys)
		if err != nil {
			log.Fatal().Err(err).Msg("load prover")
		}
		prover = p
	}

	srv := server.New(app.NewService(log, prover), log, *proofs)
	hs := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", *addr).Bool("proofs", *proofs).Msg("serving")
		if err := hs.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("serve")
	}
	log.Info().Msg("server stopped")
}

// === keys / verify ===

func cmdKeys(args []string) {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	keys := fs.String("keys", env("KEYS", "./keys"), "keys directory")
	lf := addLogFlags(fs, "info")
	_ = fs.Parse(args)
	log := lf.logger()

	if err := zk.EnsureShotKeys(*keys, log); err != nil {
		log.Fatal().Err(err).Msg("shot keys")
	}
	if _, err := zk.LoadVerifier(*keys); err != nil {
		log.Fatal().Err(err).Msg("verifying key unreadable")
	}
	fmt.Println("✓ keys ready in", *keys)
}

func cmdVerify(args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	rootHex := fs.String("root", env("ROOT", ""), "commitment root seen before play, 0x hex")
	proofPath := fs.String("proof", env("PROOF", "proof.json"), "shot proof payload json")
	keys := fs.String("keys", env("KEYS", ""), "keys directory; empty checks the opening only")
	lf := addLogFlags(fs, "warn")
	_ = fs.Parse(args)
	log := lf.logger()

	if *rootHex == "" {
		log.Fatal().Msg("--root required")
	}
	root, err := app.ParseRoot(*rootHex)
	if err != nil {
		log.Fatal().Err(err).Msg("root")
	}
	var payload codec.ShotProofPayload
	if err := loadJSON(*proofPath, &payload); err != nil {
		log.Fatal().Err(err).Msg("read payload")
	}

	var v *zk.Verifier
	if *keys != "" {
		if v, err = zk.LoadVerifier(*keys); err != nil {
			log.Fatal().Err(err).Msg("load verifier")
		}
	}
	res, err := app.VerifyPayload(v, root, payload)
	if err != nil {
		log.Fatal().Err(err).Int("shot", payload.Shot).Msg("verify")
	}

	result := map[bool]string{false: "MISS", true: "HIT"}[res.Hit]
	if !res.Proved {
		result += " (opening only)"
	}
	fmt.Printf("shot %d at cell %d: %s\n", payload.Shot, payload.Opening.Index, result)
}

func loadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
