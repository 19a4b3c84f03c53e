package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/parodyparty/internal/config"
	"github.com/kiliankoe/parodyparty/internal/game"
	"github.com/kiliankoe/parodyparty/internal/httpapi"
	"github.com/kiliankoe/parodyparty/internal/prompts"
	"github.com/kiliankoe/parodyparty/internal/store"
	"github.com/kiliankoe/parodyparty/internal/store/memory"
	"github.com/kiliankoe/parodyparty/internal/store/sqlite"
	"github.com/kiliankoe/parodyparty/internal/ws"
	staticserver "github.com/kiliankoe/parodyparty/static"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cobra.CheckErr(newCmd(&Flags{}).ExecuteContext(ctx))
}

func serve(ctx context.Context, flags *Flags) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if flags.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	backend, err := openBackend(flags)
	if err != nil {
		return err
	}
	st := store.New(backend)
	defer func() {
		if err := st.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	opts := []game.Option{game.WithDefaultDifficulty(cfg.Difficulty)}
	if flags.exportFile != "" {
		opts = append(opts, game.WithRoundHook(game.NewExporter(flags.exportFile).Hook))
	}
	svc := game.NewService(st, prompts.Default(), cfg.Game, opts...)

	r := newRouter(svc, flags)
	sock := ws.New(svc)
	io := sock.Mount(r)
	defer io.Close()

	// Serve the landing page for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(flags.bind, strconv.Itoa(flags.port)),
		Handler:           r,
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ticker := game.NewTicker(svc, cfg.TickInterval, st.Watched)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("store", flags.store).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return ticker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openBackend(flags *Flags) (store.Backend, error) {
	if flags.store == storeSQLite {
		log.Info().Str("path", flags.dbPath).Msg("opening sqlite store")
		b, err := sqlite.Open(flags.dbPath)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return memory.New(), nil
}

func newRouter(svc *game.Service, flags *Flags) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		log.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	httpapi.New(svc, httpapi.Options{
		PublicURL: flags.publicURL,
		HostUser:  flags.hostUser,
		HostPass:  flags.hostPass,
	}).Register(r)
	return r
}
