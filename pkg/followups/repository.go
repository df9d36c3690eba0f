package followups

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

// Repository persists follow-ups
type Repository struct {
	db *sql.DB
}

// NewRepository creates a follow-up repository
func NewRepository(client *database.Client) *Repository {
	return &Repository{db: client.DB}
}

const followUpColumns = "id, lead_id, agent_id, due_date, status, notes, created_at"

// Filters narrows a follow-up listing. Zero-valued fields are ignored.
type Filters struct {
	LeadID  string
	AgentID string
	Status  string
	DueFrom *time.Time
	DueTo   *time.Time
}

// List returns follow-ups matching the filters ordered by due date.
// Never returns nil.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.FollowUp, error) {
	query := "SELECT " + followUpColumns + " FROM follow_ups WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	appendCond := func(cond string, val interface{}) {
		query += fmt.Sprintf(" AND "+cond, argIndex)
		args = append(args, val)
		argIndex++
	}

	if f.LeadID != "" {
		appendCond("lead_id = $%d", f.LeadID)
	}
	if f.AgentID != "" {
		appendCond("agent_id = $%d", f.AgentID)
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
		return nil, domain.NewInternalError("failed to list follow-ups", err)
	}
	defer rows.Close()

	followUps := []models.FollowUp{}
	for rows.Next() {
		var fu models.FollowUp
		if err := rows.Scan(&fu.ID, &fu.LeadID, &fu.AgentID, &fu.DueDate, &fu.Status, &fu.Notes, &fu.CreatedAt); err != nil {
			return nil, domain.NewInternalError("failed to scan follow-up", err)
		}
		followUps = append(followUps, fu)
	}
	return followUps, rows.Err()
}

// Get returns one follow-up by id
func (r *Repository) Get(ctx context.Context, id string) (*models.FollowUp, error) {
	var fu models.FollowUp
	err := r.db.QueryRowContext(ctx, "SELECT "+followUpColumns+" FROM follow_ups WHERE id = $1", id).
		Scan(&fu.ID, &fu.LeadID, &fu.AgentID, &fu.DueDate, &fu.Status, &fu.Notes, &fu.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("follow-up")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to get follow-up", err)
	}
	return &fu, nil
}

// CreateInput holds the fields for a new follow-up
type CreateInput struct {
	LeadID  string
	AgentID string
	DueDate time.Time
	Notes   string
}

// Create inserts a follow-up in status Pending
func (r *Repository) Create(ctx context.Context, in CreateInput) (*models.FollowUp, error) {
	fu := models.FollowUp{
		ID:        uuid.NewString(),
		LeadID:    in.LeadID,
		AgentID:   in.AgentID,
		DueDate:   in.DueDate,
		Status:    models.StatusPending,
		Notes:     in.Notes,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO follow_ups (id, lead_id, agent_id, due_date, status, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		fu.ID, fu.LeadID, fu.AgentID, fu.DueDate, fu.Status, fu.Notes, fu.CreatedAt)
	if err != nil {
		return nil, domain.NewInternalError("failed to create follow-up", err)
	}
	return &fu, nil
}

// UpdateInput holds optional fields for a follow-up update
type UpdateInput struct {
	DueDate *time.Time
	Status  *string
	Notes   *string
}

// Update applies the present fields and returns the persisted record
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*models.FollowUp, error) {
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

	if in.DueDate != nil {
		appendSet("due_date", *in.DueDate)
	}
	if in.Status != nil {
		appendSet("status", *in.Status)
	}
	if in.Notes != nil {
		appendSet("notes", *in.Notes)
	}

	if sets == "" {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("UPDATE follow_ups SET %s WHERE id = $%d", sets, argIndex), args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to update follow-up", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("follow-up")
	}

	return r.Get(ctx, id)
}

// Delete removes a follow-up by primary key
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM follow_ups WHERE id = $1", id)
	if err != nil {
		return domain.NewInternalError("failed to delete follow-up", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("follow-up")
	}
	return nil
}
