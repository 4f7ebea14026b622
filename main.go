package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nstehr/vimy/prospector/agent"
	"github.com/nstehr/vimy/prospector/config"
	"github.com/nstehr/vimy/prospector/ipc"
	"github.com/nstehr/vimy/prospector/results"
	"github.com/nstehr/vimy/prospector/rules"
)

const banner = `
██████╗ ██████╗  ██████╗ ███████╗██████╗ ███████╗ ██████╗████████╗ ██████╗ ██████╗
██╔══██╗██╔══██╗██╔═══██╗██╔════╝██╔══██╗██╔════╝██╔════╝╚══██╔══╝██╔═══██╗██╔══██╗
██████╔╝██████╔╝██║   ██║███████╗██████╔╝█████╗  ██║        ██║   ██║   ██║██████╔╝
██╔═══╝ ██╔══██╗██║   ██║╚════██║██╔═══╝ ██╔══╝  ██║        ██║   ██║   ██║██╔══██╗
██║     ██║  ██║╚██████╔╝███████║██║     ███████╗╚██████╗   ██║   ╚██████╔╝██║  ██║
╚═╝     ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝     ╚══════╝ ╚═════╝   ╚═╝    ╚═════╝ ╚═╝  ╚═╝

Doctrine-Driven Halite Fleets`

// closeTimeout bounds the game-over bookkeeping of a dropped connection.
const closeTimeout = 5 * time.Second

func main() {
	socketPath := flag.String("socket", "/tmp/prospector.sock", "unix socket to listen on (empty disables)")
	wsAddr := flag.String("ws", "", "address for the websocket listener, e.g. :8765 (empty disables)")
	connectURL := flag.String("connect", "", "websocket URL of an engine adapter to dial and play one game")
	doctrineName := flag.String("doctrine", "", "doctrine to play when the game does not request one")
	doctrinesPath := flag.String("doctrines", "", "YAML doctrine file; reloaded on SIGHUP")
	journalDir := flag.String("journal", "", "directory for per-game decision journals (empty disables)")
	resultsPath := flag.String("results", "", "SQLite match-history database (empty disables)")
	seed := flag.Int64("seed", 0, "random seed for crowd avoidance (0 uses the clock)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	report := flag.Bool("report", false, "print the per-doctrine results summary and exit")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	var store *results.Store
	if *resultsPath != "" {
		s, err := results.Open(*resultsPath)
		if err != nil {
			slog.Error("failed to open results index", "path", *resultsPath, "error", err)
			os.Exit(1)
		}
		defer s.Close()
		store = s
	}

	if *report {
		if store == nil {
			fmt.Fprintln(os.Stderr, "-report needs -results")
			os.Exit(2)
		}
		if err := printReport(context.Background(), store); err != nil {
			slog.Error("failed to build report", "error", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(banner)
	slog.Info("starting prospector")

	doctrines, fileDefault, err := loadDoctrines(*doctrinesPath)
	if err != nil {
		slog.Error("failed to load doctrines", "path", *doctrinesPath, "error", err)
		os.Exit(1)
	}
	strategist := agent.NewStrategist(doctrines, fileDefault, *doctrineName)
	if _, err := strategist.Resolve(""); err != nil {
		slog.Error("no playable default doctrine", "error", err)
		os.Exit(1)
	}
	slog.Info("doctrines loaded", "doctrines", strategist.Names(), "default", fileDefault, "override", *doctrineName)

	opts := agent.Options{JournalDir: *journalDir, Seed: *seed}
	if store != nil {
		opts.Results = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	serve := func(t ipc.Transport) { serveSession(ctx, t, strategist, opts) }

	if *socketPath != "" {
		g.Go(func() error { return listenSocket(ctx, *socketPath, serve) })
	}
	if *wsAddr != "" {
		g.Go(func() error { return listenWebSocket(ctx, *wsAddr, serve) })
	}
	if *connectURL != "" {
		g.Go(func() error {
			t, err := ipc.DialWebSocket(ctx, *connectURL)
			if err != nil {
				return err
			}
			slog.Info("connected to engine adapter", "url", *connectURL)
			serve(t)
			// One game per dial; exit once it ends unless listeners keep us up.
			if *socketPath == "" && *wsAddr == "" {
				stop()
			}
			return nil
		})
	}
	g.Go(func() error { return watchReload(ctx, *doctrinesPath, strategist) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("prospector stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("shutting down")
}

// serveSession plays every game on one transport until it closes.
func serveSession(ctx context.Context, t ipc.Transport, s *agent.Strategist, opts agent.Options) {
	conn := ipc.NewConnection(t, nil)
	a := agent.New(conn, s, opts)
	a.Register()
	slog.Info("new connection accepted", "session", conn.ID)

	conn.ReadLoop(ctx)

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		slog.Error("failed to close session", "session", conn.ID, "error", err)
	}
}

func listenSocket(ctx context.Context, path string, serve func(ipc.Transport)) error {
	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("clean up socket %s: %w", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", path, err)
	}
	defer os.Remove(path)
	stopClose := context.AfterFunc(ctx, func() { listener.Close() })
	defer stopClose()

	slog.Info("listening on domain socket", "path", path)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("failed to accept connection", "error", err)
			continue
		}
		go serve(ipc.NewFrameTransport(conn))
	}
}

func listenWebSocket(ctx context.Context, addr string, serve func(ipc.Transport)) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           ipc.WebSocketHandler(serve),
		ReadHeaderTimeout: 10 * time.Second,
	}
	stopShutdown := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stopShutdown()

	slog.Info("listening for websocket connections", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket listener: %w", err)
	}
	return ctx.Err()
}

// watchReload re-reads the doctrine file on SIGHUP and swaps every live engine.
// A file that fails to load is logged and the current doctrines stay in force.
func watchReload(ctx context.Context, path string, s *agent.Strategist) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-hup:
			if path == "" {
				slog.Warn("SIGHUP ignored, no -doctrines file")
				continue
			}
			doctrines, fileDefault, err := loadDoctrines(path)
			if err != nil {
				slog.Error("doctrine reload failed, keeping current doctrines", "path", path, "error", err)
				continue
			}
			s.Reload(doctrines, fileDefault)
		}
	}
}

// loadDoctrines returns the built-ins when path is empty.
func loadDoctrines(path string) (map[string]rules.Doctrine, string, error) {
	if path == "" {
		return rules.BuiltinDoctrines(), "", nil
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	doctrines, err := f.Doctrines()
	if err != nil {
		return nil, "", err
	}
	return doctrines, f.Default, nil
}

func printReport(ctx context.Context, store *results.Store) error {
	summary, err := store.Summary(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCTRINE\tGAMES\tWINS\tAVG HALITE\tAVG SHIPS\tAVG TURNS")
	for _, d := range summary {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.0f\t%.1f\t%.0f\n",
			d.Doctrine, d.Games, d.Wins, d.AvgHalite, d.AvgShips, d.AvgTurns)
	}
	return w.Flush()
}
