package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.TicketMessage) error
	GetByID(ctx context.Context, id int64) (*domain.TicketMessage, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error)
	UpdateBody(ctx context.Context, id int64, body string) (*domain.TicketMessage, error)
	Publish(ctx context.Context, id int64) (*domain.TicketMessage, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

const messageColumns = `id, ticket_id, user_type, status, message, created_at, updated_at`

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (ticket_id, user_type, status, message)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		msg.TicketID,
		msg.UserType,
		msg.Status,
		msg.Message,
	).Scan(&msg.ID, &msg.CreatedAt, &msg.UpdatedAt)
}

func (r *ticketMessageRepository) GetByID(ctx context.Context, id int64) (*domain.TicketMessage, error) {
	const query = `SELECT ` + messageColumns + ` FROM ticket_messages WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketMessage, error) {
	const query = `SELECT ` + messageColumns + ` FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := scanMessage(rows.Scan, &msg); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *ticketMessageRepository) UpdateBody(ctx context.Context, id int64, body string) (*domain.TicketMessage, error) {
	const query = `
        UPDATE ticket_messages SET message=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING ` + messageColumns
	return r.fetchSingle(ctx, query, body, id)
}

func (r *ticketMessageRepository) Publish(ctx context.Context, id int64) (*domain.TicketMessage, error) {
	const query = `
        UPDATE ticket_messages SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING ` + messageColumns
	return r.fetchSingle(ctx, query, domain.MessageStatusPublished, id)
}

func (r *ticketMessageRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.TicketMessage, error) {
	var msg domain.TicketMessage
	if err := scanMessage(r.pool.QueryRow(ctx, query, args...).Scan, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func scanMessage(scan func(...any) error, msg *domain.TicketMessage) error {
	return scan(
		&msg.ID,
		&msg.TicketID,
		&msg.UserType,
		&msg.Status,
		&msg.Message,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
}
