package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-triage/internal/domain"
)

// TicketPage captures list pagination parameters.
type TicketPage struct {
	Limit  int
	Offset int
}

// ClassificationUpdate carries the fields merged into a ticket after a
// successful classification.
type ClassificationUpdate struct {
	Category       domain.TicketCategory
	UrgencyLevel   domain.TicketUrgency
	SentimentScore int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, page TicketPage) ([]domain.Ticket, error)
	Count(ctx context.Context) (int64, error)
	UpdateClassification(ctx context.Context, id int64, update ClassificationUpdate) error
	Resolve(ctx context.Context, id int64) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, subject, customer_name, customer_email, status, category,
               urgency_level, sentiment_score, description, created_at, updated_at, completed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, customer_name, customer_email, description, status)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, status, urgency_level, sentiment_score, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.CustomerName,
		ticket.CustomerEmail,
		ticket.Description,
		domain.TicketStatusOpen,
	).Scan(
		&ticket.ID,
		&ticket.Status,
		&ticket.UrgencyLevel,
		&ticket.SentimentScore,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.CustomerName,
		&ticket.CustomerEmail,
		&ticket.Status,
		&ticket.Category,
		&ticket.UrgencyLevel,
		&ticket.SentimentScore,
		&ticket.Description,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, page TicketPage) ([]domain.Ticket, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	const query = `SELECT ` + ticketColumns + ` FROM tickets ORDER BY created_at ASC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) UpdateClassification(ctx context.Context, id int64, update ClassificationUpdate) error {
	const query = `
        UPDATE tickets SET category=$1, urgency_level=$2, sentiment_score=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		update.Category,
		update.UrgencyLevel,
		update.SentimentScore,
		id,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Resolve(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET status=$1, completed_at=NOW(), updated_at=NOW()
        WHERE id=$2
        RETURNING ` + ticketColumns
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, domain.TicketStatusClosed, id).Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.CustomerName,
		&ticket.CustomerEmail,
		&ticket.Status,
		&ticket.Category,
		&ticket.UrgencyLevel,
		&ticket.SentimentScore,
		&ticket.Description,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Subject,
			&ticket.CustomerName,
			&ticket.CustomerEmail,
			&ticket.Status,
			&ticket.Category,
			&ticket.UrgencyLevel,
			&ticket.SentimentScore,
			&ticket.Description,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.CompletedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
