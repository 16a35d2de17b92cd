package postgres

// Package postgres provides a pgx-backed storage implementation that
// satisfies the repository and writer interfaces used by the services.
//
// It is intentionally small and explicit: it maps between the domain
// entities and SQL rows and runs the necessary statements/transactions.
// The expected schema lives under db/migrations.

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkowalski/budgetd/internal/budget"
	"github.com/mkowalski/budgetd/internal/errs"
	"github.com/mkowalski/budgetd/internal/meta"
)

// Store holds a pgx connection pool and implements the read/write
// interfaces used across the service layer. All methods are safe for
// concurrent use. Amounts are stored as minor units alongside their
// currency code.
type Store struct {
	pool     *pgxpool.Pool
	currency string
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn, currency string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, currency: currency}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) amount(minor int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(s.currency, minor)
	return a
}

// SeedDev inserts a demo user with starter categories and a goal for
// quick local testing. Fresh UUIDs keep repeated runs independent.
func (s *Store) SeedDev(ctx context.Context) (budget.User, []budget.Category, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return budget.User{}, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	user := budget.User{ID: uuid.New()}
	if _, err := tx.Exec(ctx, `insert into users (id, email) values ($1, null)`, user.ID); err != nil {
		return budget.User{}, nil, err
	}
	cats := []budget.Category{
		{ID: 1, UserID: user.ID, Name: "Groceries", Icon: "shopping_cart", Type: budget.CategoryVariable, DefaultBudget: s.amount(80000), Order: 1},
		{ID: 2, UserID: user.ID, Name: "Rent", Icon: "home", Type: budget.CategoryFixed, DefaultBudget: s.amount(250000), Order: 2},
		{ID: 3, UserID: user.ID, Name: "Eating Out", Icon: "coffee", Type: budget.CategoryVariable, DefaultBudget: s.amount(30000), Order: 3},
	}
	for _, c := range cats {
		mb, err := marshalMonthlyBudgets(c.MonthlyBudgets)
		if err != nil {
			return budget.User{}, nil, err
		}
		defaultMinor, _ := c.DefaultBudget.MinorUnits()
		if _, err := tx.Exec(ctx, `
			insert into categories (id, user_id, name, icon, type, default_budget_minor, currency, monthly_budgets, ord, archived)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, c.ID, c.UserID, c.Name, c.Icon, c.Type, defaultMinor, s.currency, mb, c.Order, c.Archived); err != nil {
			return budget.User{}, nil, err
		}
	}
	if _, err := tx.Exec(ctx, `
		insert into goals (id, user_id, name, target_minor, currency, priority, status, metadata)
		values (1, $1, 'Emergency Fund', 500000, $2, 'A', 'active', '{}')
	`, user.ID, s.currency); err != nil {
		return budget.User{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return budget.User{}, nil, err
	}
	return user, cats, nil
}

// --- Billing period ---

func (s *Store) BillingPeriod(ctx context.Context, userID uuid.UUID) (budget.BillingPeriod, error) {
	var p budget.BillingPeriod
	err := s.pool.QueryRow(ctx, `
		select user_id, start_date, end_date, status
		from billing_periods
		where user_id = $1
	`, userID).Scan(&p.UserID, &p.StartDate, &p.EndDate, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return budget.BillingPeriod{}, errs.ErrNotFound
	}
	if err != nil {
		return budget.BillingPeriod{}, err
	}
	p.StartDate = p.StartDate.UTC()
	p.EndDate = p.EndDate.UTC()
	return p, nil
}

func (s *Store) SaveBillingPeriod(ctx context.Context, p budget.BillingPeriod) error {
	_, err := s.pool.Exec(ctx, `
		insert into billing_periods (user_id, start_date, end_date, status)
		values ($1,$2,$3,$4)
		on conflict (user_id) do update set start_date=$2, end_date=$3, status=$4
	`, p.UserID, p.StartDate, p.EndDate, p.Status)
	return err
}

// --- Categories ---

func marshalMonthlyBudgets(m map[int]money.Amount) ([]byte, error) {
	out := make(map[string]int64, len(m))
	for month, a := range m {
		minor, _ := a.MinorUnits()
		out[strconv.Itoa(month)] = minor
	}
	return json.Marshal(out)
}

func (s *Store) unmarshalMonthlyBudgets(b []byte) (map[int]money.Amount, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var raw map[string]int64
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[int]money.Amount, len(raw))
	for k, minor := range raw {
		month, err := strconv.Atoi(k)
		if err != nil {
			return nil, err
		}
		out[month] = s.amount(minor)
	}
	return out, nil
}

func (s *Store) scanCategory(row pgx.Row) (budget.Category, error) {
	var c budget.Category
	var defaultMinor int64
	var currency string
	var mb []byte
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Icon, &c.Type, &defaultMinor, &currency, &mb, &c.Order, &c.Archived); err != nil {
		return budget.Category{}, err
	}
	a, _ := money.NewAmountFromMinorUnits(currency, defaultMinor)
	c.DefaultBudget = a
	m, err := s.unmarshalMonthlyBudgets(mb)
	if err != nil {
		return budget.Category{}, err
	}
	c.MonthlyBudgets = m
	return c, nil
}

func (s *Store) Categories(ctx context.Context, userID uuid.UUID) ([]budget.Category, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, name, icon, type, default_budget_minor, currency, monthly_budgets, ord, archived
		from categories
		where user_id = $1
		order by ord asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]budget.Category, 0)
	for rows.Next() {
		c, err := s.scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, c budget.Category) (budget.Category, error) {
	mb, err := marshalMonthlyBudgets(c.MonthlyBudgets)
	if err != nil {
		return budget.Category{}, err
	}
	defaultMinor, _ := c.DefaultBudget.MinorUnits()
	_, err = s.pool.Exec(ctx, `
		insert into categories (id, user_id, name, icon, type, default_budget_minor, currency, monthly_budgets, ord, archived)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, c.ID, c.UserID, c.Name, c.Icon, c.Type, defaultMinor, s.currency, mb, c.Order, c.Archived)
	if err != nil {
		return budget.Category{}, err
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c budget.Category) (budget.Category, error) {
	mb, err := marshalMonthlyBudgets(c.MonthlyBudgets)
	if err != nil {
		return budget.Category{}, err
	}
	defaultMinor, _ := c.DefaultBudget.MinorUnits()
	ct, err := s.pool.Exec(ctx, `
		update categories
		set name=$1, icon=$2, type=$3, default_budget_minor=$4, monthly_budgets=$5, ord=$6, archived=$7
		where id=$8 and user_id=$9
	`, c.Name, c.Icon, c.Type, defaultMinor, mb, c.Order, c.Archived, c.ID, c.UserID)
	if err != nil {
		return budget.Category{}, err
	}
	if ct.RowsAffected() == 0 {
		return budget.Category{}, errs.ErrNotFound
	}
	return c, nil
}

// ReplaceCategories updates every row's order in one transaction.
func (s *Store) ReplaceCategories(ctx context.Context, userID uuid.UUID, cats []budget.Category) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, c := range cats {
		if _, err := tx.Exec(ctx, `
			update categories set ord=$1 where id=$2 and user_id=$3
		`, c.Order, c.ID, userID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// --- Goals ---

func (s *Store) Goals(ctx context.Context, userID uuid.UUID) ([]budget.Goal, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, name, target_minor, currency, priority, status, metadata
		from goals
		where user_id = $1
		order by id asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]budget.Goal, 0)
	for rows.Next() {
		var g budget.Goal
		var targetMinor int64
		var currency string
		var mdBytes []byte
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &targetMinor, &currency, &g.Priority, &g.Status, &mdBytes); err != nil {
			return nil, err
		}
		a, _ := money.NewAmountFromMinorUnits(currency, targetMinor)
		g.Target = a
		if len(mdBytes) > 0 {
			var m meta.Metadata
			if err := m.UnmarshalJSON(mdBytes); err == nil {
				g.Metadata = m
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) CreateGoal(ctx context.Context, g budget.Goal) (budget.Goal, error) {
	md, err := g.Metadata.MarshalStableJSON()
	if err != nil {
		return budget.Goal{}, err
	}
	targetMinor, _ := g.Target.MinorUnits()
	_, err = s.pool.Exec(ctx, `
		insert into goals (id, user_id, name, target_minor, currency, priority, status, metadata)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, g.ID, g.UserID, g.Name, targetMinor, s.currency, g.Priority, g.Status, md)
	if err != nil {
		return budget.Goal{}, err
	}
	return g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, g budget.Goal) (budget.Goal, error) {
	md, err := g.Metadata.MarshalStableJSON()
	if err != nil {
		return budget.Goal{}, err
	}
	targetMinor, _ := g.Target.MinorUnits()
	ct, err := s.pool.Exec(ctx, `
		update goals
		set name=$1, target_minor=$2, priority=$3, status=$4, metadata=$5
		where id=$6 and user_id=$7
	`, g.Name, targetMinor, g.Priority, g.Status, md, g.ID, g.UserID)
	if err != nil {
		return budget.Goal{}, err
	}
	if ct.RowsAffected() == 0 {
		return budget.Goal{}, errs.ErrNotFound
	}
	return g, nil
}

func (s *Store) DeleteGoal(ctx context.Context, userID uuid.UUID, goalID int64) error {
	ct, err := s.pool.Exec(ctx, `delete from goals where id=$1 and user_id=$2`, goalID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Transactions ---

func (s *Store) scanTransaction(row pgx.Row) (budget.Transaction, error) {
	var t budget.Transaction
	var minor int64
	var currency string
	var mdBytes []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Date, &t.Kind, &t.CategoryID, &t.GoalID, &t.Source, &t.Description, &minor, &currency, &mdBytes); err != nil {
		return budget.Transaction{}, err
	}
	a, _ := money.NewAmountFromMinorUnits(currency, minor)
	t.Amount = a
	t.Date = t.Date.UTC()
	if len(mdBytes) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(mdBytes); err == nil {
			t.Metadata = m
		}
	}
	return t, nil
}

func (s *Store) Transactions(ctx context.Context, userID uuid.UUID) ([]budget.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, date, kind, category_id, goal_id, source, description, amount_minor, currency, metadata
		from transactions
		where user_id = $1
		order by date asc, id asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]budget.Transaction, 0)
	for rows.Next() {
		t, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTransaction(ctx context.Context, t budget.Transaction) (budget.Transaction, error) {
	md, err := t.Metadata.MarshalStableJSON()
	if err != nil {
		return budget.Transaction{}, err
	}
	_, err = s.pool.Exec(ctx, `
		insert into transactions (id, user_id, date, kind, category_id, goal_id, source, description, amount_minor, currency, metadata)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, t.ID, t.UserID, t.Date, t.Kind, t.CategoryID, t.GoalID, t.Source, t.Description, t.AmountMinor(), s.currency, md)
	if err != nil {
		return budget.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t budget.Transaction) (budget.Transaction, error) {
	md, err := t.Metadata.MarshalStableJSON()
	if err != nil {
		return budget.Transaction{}, err
	}
	ct, err := s.pool.Exec(ctx, `
		update transactions
		set date=$1, kind=$2, category_id=$3, goal_id=$4, source=$5, description=$6, amount_minor=$7, metadata=$8
		where id=$9 and user_id=$10
	`, t.Date, t.Kind, t.CategoryID, t.GoalID, t.Source, t.Description, t.AmountMinor(), md, t.ID, t.UserID)
	if err != nil {
		return budget.Transaction{}, err
	}
	if ct.RowsAffected() == 0 {
		return budget.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID uuid.UUID, txID int64) error {
	ct, err := s.pool.Exec(ctx, `delete from transactions where id=$1 and user_id=$2`, txID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteTransactionsForGoal removes every transaction referencing the
// goal and returns the removed set.
func (s *Store) DeleteTransactionsForGoal(ctx context.Context, userID uuid.UUID, goalID int64) ([]budget.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, date, kind, category_id, goal_id, source, description, amount_minor, currency, metadata
		from transactions
		where user_id = $1 and goal_id = $2 and kind in ('goal_deposit','goal_withdrawal')
		order by date asc, id asc
	`, userID, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	removed := make([]budget.Transaction, 0)
	for rows.Next() {
		t, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		removed = append(removed, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, err := s.pool.Exec(ctx, `
		delete from transactions
		where user_id = $1 and goal_id = $2 and kind in ('goal_deposit','goal_withdrawal')
	`, userID, goalID); err != nil {
		return nil, err
	}
	return removed, nil
}

// --- Closed periods ---

func (s *Store) ClosedPeriods(ctx context.Context, userID uuid.UUID) ([]budget.ClosedPeriodSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		select id, user_id, start_date, end_date, closed_at, balance_minor, total_expenses_minor, total_income_minor, category_totals, transaction_count
		from closed_periods
		where user_id = $1
		order by id asc
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]budget.ClosedPeriodSnapshot, 0)
	for rows.Next() {
		var snap budget.ClosedPeriodSnapshot
		var totals []byte
		if err := rows.Scan(&snap.ID, &snap.UserID, &snap.StartDate, &snap.EndDate, &snap.ClosedAt, &snap.BalanceMinor, &snap.TotalExpensesMinor, &snap.TotalIncomeMinor, &totals, &snap.TransactionCount); err != nil {
			return nil, err
		}
		snap.StartDate = snap.StartDate.UTC()
		snap.EndDate = snap.EndDate.UTC()
		if len(totals) > 0 {
			if err := json.Unmarshal(totals, &snap.CategoryTotals); err != nil {
				return nil, err
			}
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// AppendClosedPeriod writes a snapshot row. Snapshots are insert-only;
// there is no update statement for closed_periods anywhere.
func (s *Store) AppendClosedPeriod(ctx context.Context, snap budget.ClosedPeriodSnapshot) error {
	totals, err := json.Marshal(snap.CategoryTotals)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		insert into closed_periods (id, user_id, start_date, end_date, closed_at, balance_minor, total_expenses_minor, total_income_minor, category_totals, transaction_count)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, snap.ID, snap.UserID, snap.StartDate, snap.EndDate, snap.ClosedAt, snap.BalanceMinor, snap.TotalExpensesMinor, snap.TotalIncomeMinor, totals, snap.TransactionCount)
	return err
}

// --- Undo buffer ---

// deletedRow is the serializable form of a DeletedItem; amounts are
// flattened to minor units so no money type crosses the JSON boundary.
type deletedRow struct {
	Transaction      *txRow   `json:"transaction,omitempty"`
	Goal             *goalRow `json:"goal,omitempty"`
	GoalTransactions []txRow  `json:"goal_transactions,omitempty"`
}

type txRow struct {
	ID          int64         `json:"id"`
	Date        time.Time     `json:"date"`
	Kind        string        `json:"kind"`
	CategoryID  int64         `json:"category_id"`
	GoalID      int64         `json:"goal_id"`
	Source      string        `json:"source"`
	Description string        `json:"description"`
	AmountMinor int64         `json:"amount_minor"`
	Metadata    meta.Metadata `json:"metadata,omitempty"`
}

type goalRow struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	TargetMinor int64         `json:"target_minor"`
	Priority    string        `json:"priority"`
	Status      string        `json:"status"`
	Metadata    meta.Metadata `json:"metadata,omitempty"`
}

func toTxRow(t budget.Transaction) txRow {
	return txRow{
		ID:          t.ID,
		Date:        t.Date,
		Kind:        string(t.Kind),
		CategoryID:  t.CategoryID,
		GoalID:      t.GoalID,
		Source:      t.Source,
		Description: t.Description,
		AmountMinor: t.AmountMinor(),
		Metadata:    t.Metadata,
	}
}

func (s *Store) fromTxRow(userID uuid.UUID, r txRow) budget.Transaction {
	return budget.Transaction{
		ID:          r.ID,
		UserID:      userID,
		Date:        r.Date.UTC(),
		Kind:        budget.Kind(r.Kind),
		CategoryID:  r.CategoryID,
		GoalID:      r.GoalID,
		Source:      r.Source,
		Description: r.Description,
		Amount:      s.amount(r.AmountMinor),
		Metadata:    r.Metadata,
	}
}

// StashDeleted overwrites the user's undo slot.
func (s *Store) StashDeleted(ctx context.Context, userID uuid.UUID, item budget.DeletedItem) error {
	var row deletedRow
	if item.Transaction != nil {
		r := toTxRow(*item.Transaction)
		row.Transaction = &r
	}
	if item.Goal != nil {
		targetMinor, _ := item.Goal.Target.MinorUnits()
		row.Goal = &goalRow{
			ID:          item.Goal.ID,
			Name:        item.Goal.Name,
			TargetMinor: targetMinor,
			Priority:    string(item.Goal.Priority),
			Status:      string(item.Goal.Status),
			Metadata:    item.Goal.Metadata,
		}
	}
	for _, t := range item.GoalTransactions {
		row.GoalTransactions = append(row.GoalTransactions, toTxRow(t))
	}
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		insert into last_deleted (user_id, payload)
		values ($1, $2)
		on conflict (user_id) do update set payload=$2
	`, userID, payload)
	return err
}

// TakeDeleted returns the buffered item and clears the slot.
func (s *Store) TakeDeleted(ctx context.Context, userID uuid.UUID) (budget.DeletedItem, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `
		delete from last_deleted where user_id = $1 returning payload
	`, userID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return budget.DeletedItem{}, false, nil
	}
	if err != nil {
		return budget.DeletedItem{}, false, err
	}
	var row deletedRow
	if err := json.Unmarshal(payload, &row); err != nil {
		return budget.DeletedItem{}, false, err
	}
	var item budget.DeletedItem
	if row.Transaction != nil {
		t := s.fromTxRow(userID, *row.Transaction)
		item.Transaction = &t
	}
	if row.Goal != nil {
		item.Goal = &budget.Goal{
			ID:       row.Goal.ID,
			UserID:   userID,
			Name:     row.Goal.Name,
			Target:   s.amount(row.Goal.TargetMinor),
			Priority: budget.GoalPriority(row.Goal.Priority),
			Status:   budget.GoalStatus(row.Goal.Status),
			Metadata: row.Goal.Metadata,
		}
	}
	for _, r := range row.GoalTransactions {
		item.GoalTransactions = append(item.GoalTransactions, s.fromTxRow(userID, r))
	}
	return item, true, nil
}
