package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budget-planner/internal/auth"
	"budget-planner/internal/config"
	"budget-planner/internal/handlers"
	"budget-planner/internal/storage"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// sessionSweepInterval controls how often expired sessions are purged.
const sessionSweepInterval = 10 * time.Minute

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; relying on existing environment")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	if err := seedAdminUser(db); err != nil {
		slog.Error("failed to seed admin user", "error", err)
		os.Exit(1)
	}

	h, err := handlers.NewHandlers(db, auth.NewBcryptHasher(0), cfg.SecureCookie, cfg.SessionTTL)
	if err != nil {
		slog.Error("failed to initialize handlers", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handlers.Logging(h.Recover(setupRouter(h))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("budget planner listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := db.CleanExpiredSessions(); err != nil {
					slog.Warn("expired session sweep failed", "error", err)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

// setupRouter wires every route onto a fresh mux. Unmatched paths fall
// through to the 404 page.
func setupRouter(h *handlers.Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)

	mux.Handle("GET /add", h.RequireAuth(http.HandlerFunc(h.AddExpenseForm)))
	mux.Handle("POST /add", h.RequireAuth(http.HandlerFunc(h.AddExpense)))
	mux.Handle("DELETE /delete/{id}", h.RequireAuth(http.HandlerFunc(h.DeleteExpense)))
	mux.Handle("GET /paychecks", h.RequireAuth(http.HandlerFunc(h.Paychecks)))
	mux.Handle("POST /paychecks", h.RequireAuth(http.HandlerFunc(h.AddPaycheck)))
	mux.Handle("GET /download/txt", h.RequireAuth(http.HandlerFunc(h.DownloadReport)))

	mux.HandleFunc("/", h.NotFound)

	return mux
}

// seedAdminUser creates a bootstrap account from ADMIN_USER/ADMIN_PASSWORD
// when the user table is empty. Useful for first runs and e2e environments.
func seedAdminUser(db *storage.DB) error {
	username := os.Getenv("ADMIN_USER")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return nil
	}

	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := db.CreateUser(username, hash); err != nil {
		return err
	}
	slog.Info("seeded admin user", "username", username)
	return nil
}
