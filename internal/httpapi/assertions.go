package httpapi

import (
	"github.com/mkowalski/budgetd/internal/event"
	"github.com/mkowalski/budgetd/internal/service/insight"
	"github.com/mkowalski/budgetd/internal/service/ledger"
	"github.com/mkowalski/budgetd/internal/storage/memory"
	"github.com/mkowalski/budgetd/internal/storage/postgres"
)

// Compile-time interface assertions for both stores against the service interfaces.
var (
	_ ledger.Repo     = (*memory.Store)(nil)
	_ ledger.Writer   = (*memory.Store)(nil)
	_ insight.Repo    = (*memory.Store)(nil)
	_ ledger.Repo     = (*postgres.Store)(nil)
	_ ledger.Writer   = (*postgres.Store)(nil)
	_ insight.Repo    = (*postgres.Store)(nil)
	_ ledger.Notifier = (*event.Publisher)(nil)
)
