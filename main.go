package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chetan-code/tasktracker/internal/config"
	"github.com/chetan-code/tasktracker/internal/handler"
	"github.com/chetan-code/tasktracker/internal/profile"
	"github.com/chetan-code/tasktracker/internal/repository"
	"github.com/chetan-code/tasktracker/internal/session"
	"github.com/chetan-code/tasktracker/internal/tasklist"
	"github.com/gorilla/sessions"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func initDB(dburl string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dburl)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	//check if connection is alive
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database_intialisation_success")
	return db, nil
}

// initPersister picks Postgres when DB_URL is set, otherwise YAML files
// under DATA_DIR. The returned func releases whatever was opened.
func initPersister(cfg *config.Config) (tasklist.Persister, func(), error) {
	if cfg.DBURL == "" {
		repo, err := repository.NewFileRepo(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("file_store_selected", "dir", cfg.DataDir)
		return repo, func() {}, nil
	}

	db, err := initDB(cfg.DBURL)
	if err != nil {
		return nil, nil, err
	}
	repo, err := repository.NewTodoRepo(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("repository creation failed: %w", err)
	}
	return repo, func() { db.Close() }, nil
}

func loggerMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		//logging completion of a request
		slog.Info("http_request",
			"method", r.Method,
			"path", r.URL.Path,
			"ip", r.RemoteAddr,
			//imp : how long does it take a req to complete
			"duration", time.Since(start).String(),
		)
	})
}

/*
gothic will create temp cookie using key it will store it for sometime
and when user complete login it will compare it to make sure login
process was completed from this app only
Protection from cross site request forgery
*/
func setupGothic(cfg *config.Config) {
	goth.UseProviders(
		google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, "email", "profile"),
	)

	maxAge := 86400 * 30 //30 days

	store := sessions.NewCookieStore([]byte(cfg.JWTSecret))
	store.MaxAge(maxAge)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.CookieSecure

	gothic.Store = store
}

func setupSlog(level slog.Level) {
	//Json handler that writes to standard out
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true, //adds file name and line number
	})

	//Intialise new logger and set it as default for the server
	slog.SetDefault(slog.New(handler))
}

func serve(ctx context.Context, cfg *config.Config) error {
	persist, closePersist, err := initPersister(cfg)
	if err != nil {
		return err
	}
	defer closePersist()

	store := session.New()
	tasks := tasklist.NewManager(store)

	if cfg.GoogleEnabled() {
		setupGothic(cfg)
	}

	h := handler.NewTodoHandler(handler.Options{
		Store:         store,
		Tasks:         tasks,
		Persister:     persist,
		Profiles:      profile.NewClient(cfg.ProfileURL, cfg.ProfileTimeout),
		AuthMode:      cfg.AuthMode,
		JWTSecret:     cfg.JWTSecret,
		CookieSecure:  cfg.CookieSecure,
		GoogleEnabled: cfg.GoogleEnabled(),
		LoadTimeout:   cfg.ProfileTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           loggerMW(h.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_start", "addr", cfg.Addr, "auth_mode", cfg.AuthMode, "google", cfg.GoogleEnabled())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server_start_failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	h.Wait()
	slog.Info("server_stopped")
	return nil
}

// bindFlags lets flags of the running command override env and defaults.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	if err := v.BindPFlag("addr", cmd.Flags().Lookup("addr")); err != nil {
		return fmt.Errorf("bind addr flag: %w", err)
	}
	return nil
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var envFile string

	cmd := &cobra.Command{
		Use:           "tasktracker",
		Short:         "Personal task tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(v, cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			//structure logging
			setupSlog(slog.LevelInfo)

			if err := config.LoadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			setupSlog(cfg.SlogLevel())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", ".env", "environment file to load")
	cmd.Flags().String("addr", ":8080", "listen address")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		RunE:  cmd.RunE,
	}
	serveCmd.Flags().AddFlagSet(cmd.Flags())
	cmd.AddCommand(serveCmd)

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("tasktracker_failed", "error", err)
		os.Exit(1)
	}
}
