package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/joho/godotenv"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/config"
	"github.com/mkowalski/budgetd/internal/event"
	"github.com/mkowalski/budgetd/internal/httpapi"
	"github.com/mkowalski/budgetd/internal/storage/memory"
	pgstore "github.com/mkowalski/budgetd/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is optional; real env vars win either way
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := buildLogger(cfg)
	slog.SetDefault(logger)

	opts := []httpapi.Option{httpapi.WithCurrency(cfg.Currency)}

	if cfg.AMQPURL != "" {
		pub, err := event.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("failed to connect to AMQP broker", "err", err)
			os.Exit(1)
		}
		defer pub.Close()
		opts = append(opts, httpapi.WithNotifier(pub))
		logger.Info("period-closed events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	var handler http.Handler
	var closeFn func()

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, cfg.DatabaseURL, cfg.Currency)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = pg.Close
		if cfg.DevSeed {
			user, cats, err := pg.SeedDev(ctx)
			if err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logDevSeed(logger, "postgres", user, cats)
				printDevSeedBanner(user, cats)
			}
		}
		handler = httpapi.New(pg, pg, logger, opts...).Handler()
		logger.Info("storage backend: postgres")
	} else {
		store := memory.New()
		if cfg.DevSeed {
			user, cats := seedMemory(store, cfg.Currency)
			logDevSeed(logger, "memory", user, cats)
			printDevSeedBanner(user, cats)
		}
		handler = httpapi.New(store, store, logger, opts...).Handler()
		logger.Info("storage backend: memory")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("budget service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// seedMemory creates a demo user with starter categories and a goal.
func seedMemory(store *memory.Store, currency string) (budget.User, []budget.Category) {
	amt := func(minor int64) money.Amount {
		a, _ := money.NewAmountFromMinorUnits(currency, minor)
		return a
	}
	user := budget.User{ID: uuid.New()}
	store.SeedUser(user)
	cats := []budget.Category{
		{ID: 1, UserID: user.ID, Name: "Groceries", Icon: "shopping_cart", Type: budget.CategoryVariable, DefaultBudget: amt(80000), Order: 1},
		{ID: 2, UserID: user.ID, Name: "Rent", Icon: "home", Type: budget.CategoryFixed, DefaultBudget: amt(250000), Order: 2},
		{ID: 3, UserID: user.ID, Name: "Eating Out", Icon: "coffee", Type: budget.CategoryVariable, DefaultBudget: amt(30000), Order: 3},
	}
	ctx := context.Background()
	for _, c := range cats {
		_, _ = store.CreateCategory(ctx, c)
	}
	goal := budget.Goal{ID: 1, UserID: user.ID, Name: "Emergency Fund", Target: amt(500000), Priority: budget.PriorityA, Status: budget.GoalActive}
	_, _ = store.CreateGoal(ctx, goal)
	return user, cats
}

// logDevSeed emits structured logs with useful IDs
func logDevSeed(l *slog.Logger, backend string, user budget.User, cats []budget.Category) {
	ids := map[string]int64{}
	for _, c := range cats {
		ids[c.Name] = c.ID
	}
	l.Info("DEV seed ("+backend+")", "user_id", user.ID.String(), "category_ids", ids)
}

// printDevSeedBanner prints a simple banner to stdout for easy copy/paste of IDs
func printDevSeedBanner(user budget.User, cats []budget.Category) {
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", user.ID.String())
	for _, c := range cats {
		fmt.Printf("category %q: id=%d\n", c.Name, c.ID)
	}
	fmt.Println("==================================================")
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(cfg *config.Config) *slog.Logger {
	level := parseLogLevel(cfg.LogLevel)
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
