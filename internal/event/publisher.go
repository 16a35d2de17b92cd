// Package event publishes period-closed notifications to an AMQP
// broker so external consumers (sync workers, reporting) can react to
// a close without polling the API. Publishing is optional: a nil
// publisher is never constructed, the caller simply skips wiring one.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mkowalski/budgetd/internal/budget"
)

// PeriodClosedMessage is the wire payload for a period close.
type PeriodClosedMessage struct {
	UserID             string    `json:"user_id"`
	SnapshotID         int64     `json:"snapshot_id"`
	StartDate          string    `json:"start_date"`
	EndDate            string    `json:"end_date"`
	ClosedAt           time.Time `json:"closed_at"`
	BalanceMinor       int64     `json:"balance_minor"`
	TotalExpensesMinor int64     `json:"total_expenses_minor"`
	TotalIncomeMinor   int64     `json:"total_income_minor"`
	TransactionCount   int       `json:"transaction_count"`
}

// Publisher holds an AMQP connection with a declared direct exchange
// and a bound durable queue.
type Publisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	queue    string
}

// NewPublisher dials the broker and declares the exchange and queue.
func NewPublisher(url, exchange, queue string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p := &Publisher{conn: conn, channel: channel, exchange: exchange, queue: queue}
	if err := p.setup(); err != nil {
		p.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return p, nil
}

func (p *Publisher) setup() error {
	if err := p.channel.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := p.channel.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := p.channel.QueueBind(p.queue, p.queue, p.exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PeriodClosed publishes the snapshot as a persistent JSON message.
// It satisfies the ledger service's Notifier interface.
func (p *Publisher) PeriodClosed(ctx context.Context, snap budget.ClosedPeriodSnapshot) error {
	msg := PeriodClosedMessage{
		UserID:             snap.UserID.String(),
		SnapshotID:         snap.ID,
		StartDate:          snap.StartDate.Format("2006-01-02"),
		EndDate:            snap.EndDate.Format("2006-01-02"),
		ClosedAt:           snap.ClosedAt,
		BalanceMinor:       snap.BalanceMinor,
		TotalExpensesMinor: snap.TotalExpensesMinor,
		TotalIncomeMinor:   snap.TotalIncomeMinor,
		TransactionCount:   snap.TransactionCount,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx, p.exchange, p.queue, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
