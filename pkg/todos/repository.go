package todos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulsecrm/backend/pkg/database"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/listquery"
	"github.com/pulsecrm/backend/pkg/models"
)

// Repository persists todos
type Repository struct {
	db *sql.DB
}

// NewRepository creates a todo repository
func NewRepository(client *database.Client) *Repository {
	return &Repository{db: client.DB}
}

const todoColumns = "id, user_id, title, due_date, status, priority, created_at"

// Filters narrows a todo listing. Zero-valued fields are ignored.
type Filters struct {
	UserID  string
	Status  string
	DueFrom *time.Time
	DueTo   *time.Time
}

// List returns todos matching the filters ordered by due date. Never nil.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.Todo, error) {
	query := "SELECT " + todoColumns + " FROM todos WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	appendCond := func(cond string, val interface{}) {
		query += fmt.Sprintf(" AND "+cond, argIndex)
		args = append(args, val)
		argIndex++
	}

	if f.UserID != "" {
		appendCond("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		appendCond("status = $%d", f.Status)
	}
	if f.DueFrom != nil {
		appendCond("due_date >= $%d", *f.DueFrom)
	}
	if f.DueTo != nil {
		appendCond("due_date < $%d", listquery.NextDay(*f.DueTo))
	}

	query += " ORDER BY due_date ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list todos", err)
	}
	defer rows.Close()

	todos := []models.Todo{}
	for rows.Next() {
		var td models.Todo
		if err := rows.Scan(&td.ID, &td.UserID, &td.Title, &td.DueDate, &td.Status, &td.Priority, &td.CreatedAt); err != nil {
			return nil, domain.NewInternalError("failed to scan todo", err)
		}
		todos = append(todos, td)
	}
	return todos, rows.Err()
}

// Get returns one todo by id
func (r *Repository) Get(ctx context.Context, id string) (*models.Todo, error) {
	var td models.Todo
	err := r.db.QueryRowContext(ctx, "SELECT "+todoColumns+" FROM todos WHERE id = $1", id).
		Scan(&td.ID, &td.UserID, &td.Title, &td.DueDate, &td.Status, &td.Priority, &td.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("todo")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to get todo", err)
	}
	return &td, nil
}

// CreateInput holds the fields for a new todo
type CreateInput struct {
	UserID   string
	Title    string
	DueDate  time.Time
	Priority string
}

// Create inserts a todo in status Pending
func (r *Repository) Create(ctx context.Context, in CreateInput) (*models.Todo, error) {
	if in.Priority == "" {
		in.Priority = "medium"
	}

	td := models.Todo{
		ID:        uuid.NewString(),
		UserID:    in.UserID,
		Title:     in.Title,
		DueDate:   in.DueDate,
		Status:    models.StatusPending,
		Priority:  in.Priority,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (id, user_id, title, due_date, status, priority, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		td.ID, td.UserID, td.Title, td.DueDate, td.Status, td.Priority, td.CreatedAt)
	if err != nil {
		return nil, domain.NewInternalError("failed to create todo", err)
	}
	return &td, nil
}

// UpdateInput holds optional fields for a todo update
type UpdateInput struct {
	Title    *string
	DueDate  *time.Time
	Status   *string
	Priority *string
}

// Update applies the present fields and returns the persisted record
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*models.Todo, error) {
	sets := ""
	args := []interface{}{}
	argIndex := 1

	appendSet := func(col string, val interface{}) {
		if sets != "" {
			sets += ", "
		}
		sets += fmt.Sprintf("%s = $%d", col, argIndex)
		args = append(args, val)
		argIndex++
	}

	if in.Title != nil {
		appendSet("title", *in.Title)
	}
	if in.DueDate != nil {
		appendSet("due_date", *in.DueDate)
	}
	if in.Status != nil {
		appendSet("status", *in.Status)
	}
	if in.Priority != nil {
		appendSet("priority", *in.Priority)
	}

	if sets == "" {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("UPDATE todos SET %s WHERE id = $%d", sets, argIndex), args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to update todo", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("todo")
	}

	return r.Get(ctx, id)
}

// Delete removes a todo by primary key
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = $1", id)
	if err != nil {
		return domain.NewInternalError("failed to delete todo", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("todo")
	}
	return nil
}
