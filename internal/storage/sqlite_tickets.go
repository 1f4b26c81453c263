package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/nulltasker/nulltasker/internal/models"
)

type sqliteTicketRepo struct {
	db *sql.DB
}

const ticketColumns = `id, project, title, description, assignee, category, priority, status,
	progress, start_date, due_date, estimated_hours, actual_hours, tags, parent_task,
	created_at, updated_at`

func scanTicket(row interface{ Scan(...any) error }) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	var startDate, dueDate, parentTask sql.NullString
	var tags string
	err := row.Scan(
		&ticket.ID, &ticket.Project, &ticket.Title, &ticket.Description,
		&ticket.Assignee, &ticket.Category, &ticket.Priority, &ticket.Status,
		&ticket.Progress, &startDate, &dueDate,
		&ticket.EstimatedHours, &ticket.ActualHours, &tags, &parentTask,
		&ticket.CreatedAt, &ticket.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if startDate.Valid && startDate.String != "" {
		ticket.StartDate = &startDate.String
	}
	if dueDate.Valid && dueDate.String != "" {
		ticket.DueDate = &dueDate.String
	}
	if parentTask.Valid && parentTask.String != "" {
		ticket.ParentTask = &parentTask.String
	}
	if ticket.Tags, err = decodeStringSlice(tags); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *sqliteTicketRepo) Create(ctx context.Context, ticket *models.Ticket) error {
	tags, err := encodeJSON(ticket.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tickets (id, project, title, description, assignee, category, priority, status,
			progress, start_date, due_date, estimated_hours, actual_hours, tags, parent_task,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		ticket.ID, ticket.Project, ticket.Title, ticket.Description,
		ticket.Assignee, ticket.Category, ticket.Priority, ticket.Status,
		ticket.Progress, ticket.StartDate, ticket.DueDate,
		ticket.EstimatedHours, ticket.ActualHours, tags, ticket.ParentTask,
		ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

func (r *sqliteTicketRepo) GetByID(ctx context.Context, id string) (*models.Ticket, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id)
	ticket, err := scanTicket(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket by id: %w", err)
	}
	return ticket, nil
}

func (r *sqliteTicketRepo) GetByProjectTitle(ctx context.Context, projectID, title string) (*models.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE project = ? AND title = ?",
		projectID, title,
	)
	ticket, err := scanTicket(row)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket by project and title: %w", err)
	}
	return ticket, nil
}

func (r *sqliteTicketRepo) Update(ctx context.Context, ticket *models.Ticket) error {
	tags, err := encodeJSON(ticket.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE tickets SET project = ?, title = ?, description = ?, assignee = ?, category = ?,
			priority = ?, status = ?, progress = ?, start_date = ?, due_date = ?,
			estimated_hours = ?, actual_hours = ?, tags = ?, parent_task = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		ticket.Project, ticket.Title, ticket.Description, ticket.Assignee, ticket.Category,
		ticket.Priority, ticket.Status, ticket.Progress, ticket.StartDate, ticket.DueDate,
		ticket.EstimatedHours, ticket.ActualHours, tags, ticket.ParentTask, ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("ticket %s: %w", ticket.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a ticket. The parent_task foreign key nulls references
// on any children; children themselves survive.
func (r *sqliteTicketRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *sqliteTicketRepo) List(ctx context.Context) ([]*models.Ticket, error) {
	return r.query(ctx, "SELECT "+ticketColumns+" FROM tickets ORDER BY created_at DESC")
}

func (r *sqliteTicketRepo) ListByProject(ctx context.Context, projectID string) ([]*models.Ticket, error) {
	return r.query(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE project = ? ORDER BY created_at DESC",
		projectID,
	)
}

func (r *sqliteTicketRepo) ListByProjects(ctx context.Context, projectIDs []string) ([]*models.Ticket, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(projectIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(projectIDs))
	for i, id := range projectIDs {
		args[i] = id
	}
	return r.query(ctx,
		"SELECT "+ticketColumns+" FROM tickets WHERE project IN ("+placeholders+") ORDER BY created_at DESC",
		args...,
	)
}

func (r *sqliteTicketRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return count, nil
}

func (r *sqliteTicketRepo) query(ctx context.Context, query string, args ...any) ([]*models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*models.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
