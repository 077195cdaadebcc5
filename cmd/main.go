package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/timoknapp/badminton-buddy/pkg/api"
	"github.com/timoknapp/badminton-buddy/pkg/apiclient"
	"github.com/timoknapp/badminton-buddy/pkg/cache"
	"github.com/timoknapp/badminton-buddy/pkg/config"
	"github.com/timoknapp/badminton-buddy/pkg/logger"
	"github.com/timoknapp/badminton-buddy/pkg/metrics"
	"github.com/timoknapp/badminton-buddy/pkg/session"
)

const usage = `usage: bbclient <command> [flags]

commands:
  login        sign in with email and password
  signup       create an account and sign in
  logout       end the session
  whoami       show the signed-in user
  partners     find partners free in a time window
  book         book a court (uses a partner picked with partners -pick)
  slots        list open slots in a time window
  join-slot    take the second seat of an open slot
  history      list your bookings and matches
  day          list every booking on a date
  tournaments  list, create, join and run tournaments
  leaderboard  show the global or a tournament leaderboard
  calendar     show or connect Google Calendar
  dashboard    show your played matches, win rate and rank
  watch        refresh tournaments, leaderboard and history on a schedule
  stats        show local state and request counters
`

// app is everything a command needs, built once per process.
type app struct {
	cfg      config.Config
	store    cache.Store
	api      *api.Client
	session  *session.Holder
	prefills *session.Prefills
	out      io.Writer
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Stdout, os.Args[1], os.Args[2:])
	stop()
	os.Exit(code)
}

func run(ctx context.Context, out io.Writer, name string, args []string) int {
	cmd, ok := commands[name]
	if !ok {
		if name != "help" && name != "-h" && name != "--help" {
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		}
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	cfg, err := config.Load(os.Getenv("BB_ENV_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	logger.SetLogLevelFromString(cfg.LogLevel)

	a, err := newApp(ctx, cfg, out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.store.Close()

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if err := cmd(ctx, a, fs, args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		// server messages are shown exactly as normalized
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg config.Config, out io.Writer) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jar, err := apiclient.NewPersistentJar(cfg.BaseURL, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to set up cookie jar: %w", err)
	}

	metrics.Init()
	client, err := apiclient.New(apiclient.Options{
		BaseURL:       cfg.BaseURL,
		TrailingSlash: cfg.TrailingSlash,
		Jar:           jar,
		Transport:     metrics.Instrument(nil),
		Timeout:       cfg.RequestTimeout,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	a := api.New(client)
	holder := session.Open(a, store)
	prefills := session.NewPrefills(store)
	holder.OnEnd(prefills.Discard)

	logger.Debug("Client ready (api=%s, backend=%s, state=%s)", cfg.BaseURL, cfg.SessionBackend, holder.State())
	return &app{
		cfg:      cfg,
		store:    store,
		api:      a,
		session:  holder,
		prefills: prefills,
		out:      out,
	}, nil
}

func openStore(ctx context.Context, cfg config.Config) (cache.Store, error) {
	if cfg.SessionBackend == config.BackendRedis {
		namespace := ""
		if u, err := url.Parse(cfg.BaseURL); err == nil {
			namespace = u.Host
		}
		s, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisDB, namespace)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := cache.NewBoltStore(cfg.StatePath)
	if err != nil {
		return nil, err
	}
	return s, nil
}
