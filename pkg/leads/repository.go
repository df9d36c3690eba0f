package leads

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

// Repository persists leads
type Repository struct {
	db *sql.DB
}

// NewRepository creates a lead repository
func NewRepository(client *database.Client) *Repository {
	return &Repository{db: client.DB}
}

const leadColumns = "id, client_name, client_email, client_phone, agent_id, status_bucket, lead_source, deal_value, created_at"

// Filters narrows a lead listing. Zero-valued fields are ignored.
type Filters struct {
	AgentID      string
	StatusBucket string
	LeadSource   string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// List returns leads matching the filters, newest first. Never returns nil.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.Lead, error) {
	query := "SELECT " + leadColumns + " FROM leads WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	appendCond := func(cond string, val interface{}) {
		query += fmt.Sprintf(" AND "+cond, argIndex)
		args = append(args, val)
		argIndex++
	}

	if f.AgentID != "" {
		appendCond("agent_id = $%d", f.AgentID)
	}
	if f.StatusBucket != "" {
		appendCond("status_bucket = $%d", f.StatusBucket)
	}
	if f.LeadSource != "" {
		appendCond("lead_source = $%d", f.LeadSource)
	}
	if f.CreatedFrom != nil {
		appendCond("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		// Inclusive of the entire end day
		appendCond("created_at < $%d", listquery.NextDay(*f.CreatedTo))
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list leads", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, domain.NewInternalError("failed to scan lead", err)
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Get returns one lead by id
func (r *Repository) Get(ctx context.Context, id string) (*models.Lead, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+leadColumns+" FROM leads WHERE id = $1", id)
	l, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("lead")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to get lead", err)
	}
	return &l, nil
}

// CreateInput holds the fields for a new lead
type CreateInput struct {
	ClientName   string
	ClientEmail  string
	ClientPhone  string
	AgentID      *string
	StatusBucket string
	LeadSource   string
	DealValue    float64
}

// Create inserts a lead and returns the persisted record
func (r *Repository) Create(ctx context.Context, in CreateInput) (*models.Lead, error) {
	if in.StatusBucket == "" {
		in.StatusBucket = models.TierP3
	}

	l := models.Lead{
		ID:           uuid.NewString(),
		ClientName:   in.ClientName,
		ClientEmail:  in.ClientEmail,
		ClientPhone:  in.ClientPhone,
		AgentID:      in.AgentID,
		StatusBucket: in.StatusBucket,
		LeadSource:   in.LeadSource,
		DealValue:    in.DealValue,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO leads (id, client_name, client_email, client_phone, agent_id, status_bucket, lead_source, deal_value, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.ClientName, l.ClientEmail, l.ClientPhone, l.AgentID, l.StatusBucket, l.LeadSource, l.DealValue, l.CreatedAt)
	if err != nil {
		return nil, domain.NewInternalError("failed to create lead", err)
	}
	return &l, nil
}

// UpdateInput holds optional fields for a lead update. Nil fields are never
// written. Leads are never hard-deleted; status transitions and reassignment
// are the only mutations.
type UpdateInput struct {
	ClientName   *string
	ClientEmail  *string
	ClientPhone  *string
	AgentID      *string
	StatusBucket *string
	LeadSource   *string
	DealValue    *float64
}

// Update applies the present fields and returns the persisted record
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*models.Lead, error) {
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

	if in.ClientName != nil {
		appendSet("client_name", *in.ClientName)
	}
	if in.ClientEmail != nil {
		appendSet("client_email", *in.ClientEmail)
	}
	if in.ClientPhone != nil {
		appendSet("client_phone", *in.ClientPhone)
	}
	if in.AgentID != nil {
		appendSet("agent_id", *in.AgentID)
	}
	if in.StatusBucket != nil {
		appendSet("status_bucket", *in.StatusBucket)
	}
	if in.LeadSource != nil {
		appendSet("lead_source", *in.LeadSource)
	}
	if in.DealValue != nil {
		appendSet("deal_value", *in.DealValue)
	}

	if sets == "" {
		return r.Get(ctx, id)
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("UPDATE leads SET %s WHERE id = $%d", sets, argIndex), args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to update lead", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("lead")
	}

	return r.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLead(row rowScanner) (models.Lead, error) {
	var l models.Lead
	var agentID sql.NullString
	err := row.Scan(&l.ID, &l.ClientName, &l.ClientEmail, &l.ClientPhone, &agentID, &l.StatusBucket, &l.LeadSource, &l.DealValue, &l.CreatedAt)
	if err != nil {
		return l, err
	}
	if agentID.Valid {
		l.AgentID = &agentID.String
	}
	return l, nil
}
