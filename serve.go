package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/wordle/apps/wordled/assets"
	"github.com/robalobadob/wordle/apps/wordled/internal/daily"
	"github.com/robalobadob/wordle/apps/wordled/internal/httpserver"
	"github.com/robalobadob/wordle/apps/wordled/internal/server"
	"github.com/robalobadob/wordle/apps/wordled/internal/stats"
	"github.com/robalobadob/wordle/apps/wordled/internal/store"
	"github.com/robalobadob/wordle/apps/wordled/internal/words"
)

const serveUsage = "wordled serve <listener-port> <seed> <dictionary-filename> <num-words>"

var errUsage = errors.New("invalid argument(s)")

// serveArgs are the four positional startup parameters.
type serveArgs struct {
	port     int
	seed     int64
	dictPath string
	numWords int
}

func parseServeArgs(args []string) (serveArgs, error) {
	var a serveArgs
	if len(args) != 4 {
		return a, fmt.Errorf("%w: usage: %s", errUsage, serveUsage)
	}
	port, err := strconv.Atoi(args[0])
	if err != nil || port < 0 || port > 65535 {
		return a, fmt.Errorf("%w: listener-port %q", errUsage, args[0])
	}
	seed, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return a, fmt.Errorf("%w: seed %q", errUsage, args[1])
	}
	n, err := strconv.Atoi(args[3])
	if err != nil || n <= 0 {
		return a, fmt.Errorf("%w: num-words %q", errUsage, args[3])
	}
	return serveArgs{port: port, seed: seed, dictPath: args[2], numWords: n}, nil
}

// serveOptions carry everything beyond the positional args.
// Defaults come from the environment; flags override.
type serveOptions struct {
	statusAddr   string
	dbDSN        string
	maxSessions  int
	acceptRate   float64
	acceptBurst  int
	readTimeout  time.Duration
	drainTimeout time.Duration
	keepServing  bool
	mode         string
	dailySalt    string
}

func defaultServeOptions() serveOptions {
	return serveOptions{
		statusAddr:   getEnv("WORDLE_STATUS_ADDR", ""),
		dbDSN:        getEnv("WORDLE_DB_DSN", store.MemoryDSN),
		maxSessions:  getEnvInt("WORDLE_MAX_SESSIONS", 0),
		acceptRate:   getEnvFloat("WORDLE_ACCEPT_RPS", 0),
		acceptBurst:  getEnvInt("WORDLE_ACCEPT_BURST", 10),
		readTimeout:  getEnvDuration("WORDLE_READ_TIMEOUT", 0),
		drainTimeout: getEnvDuration("WORDLE_DRAIN_TIMEOUT", 0),
		keepServing:  !getEnvBool("WORDLE_STOP_AFTER_GAME", true),
		mode:         getEnv("WORDLE_MODE", "random"),
		dailySalt:    getEnv("WORDLE_DAILY_SALT", "local_dev_salt"),
	}
}

func serveCmd() *cobra.Command {
	o := defaultServeOptions()

	cmd := &cobra.Command{
		Use:   "serve <listener-port> <seed> <dictionary-filename> <num-words>",
		Short: "Run the Wordle game server",
		Long: `Load up to <num-words> five-letter words from <dictionary-filename> and
serve games on <listener-port>. Targets are drawn from a PRNG seeded with <seed>
(or, with --mode daily, from the UTC date).

SIGUSR1 stops the server; SIGINT, SIGTERM and SIGUSR2 are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parseServeArgs(args)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), a, o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.statusAddr, "status-addr", o.statusAddr, "HTTP status/metrics listen address (empty disables)")
	f.StringVar(&o.dbDSN, "db", o.dbDSN, "SQLite DSN for the finished-games log")
	f.IntVar(&o.maxSessions, "max-sessions", o.maxSessions, "concurrent session cap (0 = unlimited)")
	f.StringVar(&o.mode, "mode", o.mode, "target selection: random or daily")
	f.BoolVar(&o.keepServing, "keep-serving", o.keepServing, "keep accepting after a game finishes")

	return cmd
}

func (o serveOptions) indexSource(seed int64, dictSize int) (server.IndexSource, error) {
	switch o.mode {
	case "random":
		return server.NewSeededSource(seed), nil
	case "daily":
		return daily.Source{Salt: o.dailySalt, Size: dictSize}, nil
	default:
		return nil, fmt.Errorf("%w: mode %q (want random or daily)", errUsage, o.mode)
	}
}

func runServe(ctx context.Context, a serveArgs, o serveOptions) error {
	dict, err := words.Load(a.dictPath, a.numWords)
	if err != nil {
		return err
	}
	log.Info().Str("file", a.dictPath).Int("words", dict.Len()).Msg("opened dictionary")

	src, err := o.indexSource(a.seed, dict.Len())
	if err != nil {
		return err
	}
	if o.mode == "daily" {
		log.Info().Str("date", daily.DateKey(time.Now())).Msg("using daily target selection")
	} else {
		log.Info().Int64("seed", a.seed).Msg("seeded pseudo-random number generator")
	}

	db, err := store.OpenDB(o.dbDSN)
	if err != nil {
		return fmt.Errorf("open games db: %w", err)
	}
	defer db.Close()
	if err := store.Migrate(db, assets.Migrations()); err != nil {
		return fmt.Errorf("migrate games db: %w", err)
	}
	gameLog := store.NewGameLog(db)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cfg := server.Config{
		Addr:         net.JoinHostPort("", strconv.Itoa(a.port)),
		MaxSessions:  o.maxSessions,
		AcceptRate:   o.acceptRate,
		AcceptBurst:  o.acceptBurst,
		ReadTimeout:  o.readTimeout,
		DrainTimeout: o.drainTimeout,
		KeepServing:  o.keepServing,
	}
	srv := server.New(cfg, dict, stats.New(),
		server.WithIndexSource(src),
		server.WithGameRecorder(gameLog),
		server.WithMetrics(server.NewMetrics(reg)),
	)

	stopSignals := watchSignals(srv)
	defer stopSignals()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The status server lives exactly as long as the game server.
		defer cancel()
		return srv.Run(gctx)
	})
	if o.statusAddr != "" {
		status := httpserver.New(srv, gameLog, reg, dict.Len())
		g.Go(func() error { return status.Start(gctx, o.statusAddr) })
	}
	err = g.Wait()

	snap := srv.Stats()
	log.Info().
		Int("games", snap.Games).
		Int("wins", snap.TotalWins).
		Int("losses", snap.TotalLosses).
		Int("guesses", snap.TotalGuesses).
		Strs("words", snap.UsedWords).
		Msg("wordle server stopped")
	return err
}
