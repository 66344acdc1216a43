package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tvanlaerhoven/cavy-cli/internal/console"
	"github.com/tvanlaerhoven/cavy-cli/internal/exitcodes"
	"github.com/tvanlaerhoven/cavy-cli/internal/metrics"
	"github.com/tvanlaerhoven/cavy-cli/internal/run"
	"github.com/tvanlaerhoven/cavy-cli/internal/screenshot"
	"github.com/tvanlaerhoven/cavy-cli/internal/ws"
)

var Version = "v0.1.0"

const shutdownTimeout = 5 * time.Second

func newApp() *cli.App {
	return &cli.App{
		Name:    "cavy-server",
		Version: Version,
		Usage:   "Coordinate a Cavy test run reported over a websocket",
		Flags:   serverFlags,
		Action:  serve,
		Commands: []*cli.Command{
			replayCommand,
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			var exitErr cli.ExitCoder
			if errors.As(err, &exitErr) {
				cli.HandleExitCoder(exitErr)
			} else if err != nil {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.Fatal))
			}
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitcodes.Fatal)
	}
}

func newLogger(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "cavy",
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to load config: %v", err), exitcodes.Fatal)
	}

	logger := newLogger(cfg.LogLevel)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	coord := run.NewCoordinator(run.Options{
		Dev:           cfg.Run.Dev,
		XML:           cfg.Run.XML,
		XMLFile:       cfg.Run.XMLFile,
		PrintTable:    cfg.Run.PrintTable,
		PrintMarkdown: cfg.Run.PrintMarkdown,
	}, console.NewPrinter(os.Stdout), logger, m)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	capturer := screenshot.NewCapturer(cfg.Screenshots.Dir, logger)
	server := ws.NewServer(ctx, coord, capturer, m, logger)
	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to listen on %s: %v", cfg.Addr(), err), exitcodes.Fatal)
	}
	httpSrv := ws.NewHTTPServer(cfg.Addr(), mux)
	logger.Info("Server listening", "addr", ln.Addr().String(), "dev", cfg.Run.Dev, "xml", cfg.Run.XML)

	code, err := serveUntilDone(ctx, coord, httpSrv, ln, logger)
	capturer.Wait()
	if err != nil {
		return cli.Exit(err.Error(), exitcodes.Fatal)
	}
	if code != exitcodes.Success {
		return cli.Exit("", code)
	}
	return nil
}

// serveUntilDone runs the coordinator and the listener together. When the
// coordinator decides the exit code the listener is shut down; when the
// listener fails the coordinator is cancelled.
func serveUntilDone(ctx context.Context, coord *run.Coordinator, httpSrv *http.Server, ln net.Listener, logger *log.Logger) (int, error) {
	g, gctx := errgroup.WithContext(ctx)

	var code int
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Server shutdown", "err", err)
			}
		}()

		var err error
		code, err = coord.Run(gctx)
		if err != nil && ctx.Err() != nil {
			logger.Info("Shutting down...")
			return nil
		}
		return err
	})
	g.Go(func() error {
		if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	err := g.Wait()
	return code, err
}
