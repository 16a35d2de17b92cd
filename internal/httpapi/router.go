// Package httpapi wires the HTTP surface of the budget service.
// It keeps handlers thin, delegating business rules to the service layer.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mkowalski/budgetd/internal/service/insight"
	"github.com/mkowalski/budgetd/internal/service/ledger"
)

// Repository is the read surface the API needs. It is the ledger read
// set; the insight engine consumes a subset of the same methods.
type Repository interface {
	ledger.Repo
}

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	svc      ledger.Service
	insights insight.Service
	repo     Repository
	currency string
	now      func() time.Time
	log      *slog.Logger
	rt       *chi.Mux
}

type options struct {
	currency string
	notifier ledger.Notifier
	now      func() time.Time
}

// Option configures the server.
type Option func(*options)

// WithCurrency sets the currency code used to interpret minor-unit
// amounts in request bodies. Defaults to PLN.
func WithCurrency(code string) Option { return func(o *options) { o.currency = code } }

// WithNotifier attaches a period-closed event publisher to the ledger service.
func WithNotifier(n ledger.Notifier) Option { return func(o *options) { o.notifier = n } }

// WithClock overrides the time source, used in tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(repo Repository, writer ledger.Writer, logger *slog.Logger, opts ...Option) *Server {
	o := options{currency: "PLN"}
	for _, opt := range opts {
		opt(&o)
	}
	var ledgerOpts []ledger.Option
	var insightOpts []insight.Option
	if o.notifier != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithNotifier(o.notifier))
	}
	if o.now != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithClock(o.now))
		insightOpts = append(insightOpts, insight.WithClock(o.now))
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	now := o.now
	if now == nil {
		now = time.Now
	}
	s := &Server{
		svc:      ledger.New(repo, writer, ledgerOpts...),
		insights: insight.New(repo, insightOpts...),
		repo:     repo,
		currency: o.currency,
		now:      now,
		log:      logger,
		rt:       r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints.
func (s *Server) routes() {
	// Billing period (v1)
	s.rt.Get("/v1/period", s.getPeriod)
	s.rt.Put("/v1/period", s.putPeriod)
	s.rt.Post("/v1/period/close", s.closePeriod)
	s.rt.Get("/v1/period/closed", s.listClosedPeriods)
	// Categories (v1)
	s.rt.Get("/v1/categories", s.listCategories)
	s.rt.Post("/v1/categories", s.postCategory)
	s.rt.Patch("/v1/categories/{id}", s.patchCategory)
	s.rt.Post("/v1/categories/{id}/archive", s.archiveCategory)
	s.rt.Post("/v1/categories/{id}/reorder", s.reorderCategory)
	// Goals (v1)
	s.rt.Get("/v1/goals", s.listGoals)
	s.rt.Post("/v1/goals", s.postGoal)
	s.rt.Patch("/v1/goals/{id}", s.patchGoal)
	s.rt.Post("/v1/goals/{id}/archive", s.archiveGoal)
	s.rt.Delete("/v1/goals/{id}", s.deleteGoal)
	// Transactions (v1)
	s.rt.Get("/v1/transactions", s.listTransactions)
	s.rt.Post("/v1/transactions", s.postTransaction)
	s.rt.Patch("/v1/transactions/{id}", s.patchTransaction)
	s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
	s.rt.Post("/v1/transactions/undo", s.undoDelete)
	// Insights (v1)
	s.rt.Get("/v1/insights", s.getInsights)
	s.rt.Get("/v1/warnings", s.getWarnings)
	// Dictionary (v1)
	s.rt.Get("/v1/dictionary/templates", s.getTemplatesDictionary)
	s.rt.Get("/v1/dictionary/priorities", s.getPrioritiesDictionary)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
