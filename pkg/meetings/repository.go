package meetings

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

// Repository persists meetings
type Repository struct {
	db *sql.DB
}

// NewRepository creates a meeting repository
func NewRepository(client *database.Client) *Repository {
	return &Repository{db: client.DB}
}

const meetingColumns = "id, title, lead_id, agent_id, start_time, end_time, location, notes, status, created_at"

// Filters narrows a meeting listing. Zero-valued fields are ignored.
type Filters struct {
	LeadID    string
	AgentID   string
	Status    string
	StartFrom *time.Time
	StartTo   *time.Time
}

// List returns meetings matching the filters ordered by start time.
// Never returns nil.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.Meeting, error) {
	query := "SELECT " + meetingColumns + " FROM meetings WHERE 1=1"
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
	if f.StartFrom != nil {
		appendCond("start_time >= $%d", *f.StartFrom)
	}
	if f.StartTo != nil {
		appendCond("start_time < $%d", listquery.NextDay(*f.StartTo))
	}

	query += " ORDER BY start_time ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list meetings", err)
	}
	defer rows.Close()

	meetings := []models.Meeting{}
	for rows.Next() {
		var m models.Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.LeadID, &m.AgentID, &m.StartTime, &m.EndTime, &m.Location, &m.Notes, &m.Status, &m.CreatedAt); err != nil {
			return nil, domain.NewInternalError("failed to scan meeting", err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// Get returns one meeting by id
func (r *Repository) Get(ctx context.Context, id string) (*models.Meeting, error) {
	var m models.Meeting
	err := r.db.QueryRowContext(ctx, "SELECT "+meetingColumns+" FROM meetings WHERE id = $1", id).
		Scan(&m.ID, &m.Title, &m.LeadID, &m.AgentID, &m.StartTime, &m.EndTime, &m.Location, &m.Notes, &m.Status, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("meeting")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to get meeting", err)
	}
	return &m, nil
}

// CreateInput holds the fields for a new meeting
type CreateInput struct {
	Title     string
	LeadID    string
	AgentID   string
	StartTime time.Time
	EndTime   time.Time
	Location  string
	Notes     string
}

// Create inserts a meeting in status Scheduled
func (r *Repository) Create(ctx context.Context, in CreateInput) (*models.Meeting, error) {
	m := models.Meeting{
		ID:        uuid.NewString(),
		Title:     in.Title,
		LeadID:    in.LeadID,
		AgentID:   in.AgentID,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Location:  in.Location,
		Notes:     in.Notes,
		Status:    models.StatusScheduled,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO meetings (id, title, lead_id, agent_id, start_time, end_time, location, notes, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.Title, m.LeadID, m.AgentID, m.StartTime, m.EndTime, m.Location, m.Notes, m.Status, m.CreatedAt)
	if err != nil {
		return nil, domain.NewInternalError("failed to create meeting", err)
	}
	return &m, nil
}

// UpdateInput holds optional fields for a meeting update
type UpdateInput struct {
	Title     *string
	StartTime *time.Time
	EndTime   *time.Time
	Location  *string
	Notes     *string
	Status    *string
}

// Update applies the present fields and returns the persisted record
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*models.Meeting, error) {
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
	if in.StartTime != nil {
		appendSet("start_time", *in.StartTime)
	}
	if in.EndTime != nil {
		appendSet("end_time", *in.EndTime)
	}
	if in.Location != nil {
		appendSet("location", *in.Location)
	}
	if in.Notes != nil {
		appendSet("notes", *in.Notes)
	}
	if in.Status != nil {
		appendSet("status", *in.Status)
	}

	if sets == "" {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("UPDATE meetings SET %s WHERE id = $%d", sets, argIndex), args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to update meeting", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("meeting")
	}

	return r.Get(ctx, id)
}

// Delete removes a meeting by primary key
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM meetings WHERE id = $1", id)
	if err != nil {
		return domain.NewInternalError("failed to delete meeting", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("meeting")
	}
	return nil
}
