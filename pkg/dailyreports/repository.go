package dailyreports

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

// Repository persists daily reports
type Repository struct {
	db *sql.DB
}

// NewRepository creates a daily report repository
func NewRepository(client *database.Client) *Repository {
	return &Repository{db: client.DB}
}

const reportColumns = "id, agent_id, report_date, team_type, outreach_count, responses_count, " +
	"connections_sent, messages_sent, replies_received, emails_sent, emails_opened, bounces, created_at"

// Filters narrows a daily report listing. Zero-valued fields are ignored.
type Filters struct {
	AgentID  string
	TeamType string
	DateFrom *time.Time
	DateTo   *time.Time
}

// List returns daily reports matching the filters, newest report date first.
// Never returns nil.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.DailyReport, error) {
	query := "SELECT " + reportColumns + " FROM daily_reports WHERE 1=1"
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
	if f.TeamType != "" {
		appendCond("team_type = $%d", f.TeamType)
	}
	if f.DateFrom != nil {
		appendCond("report_date >= $%d", *f.DateFrom)
	}
	if f.DateTo != nil {
		appendCond("report_date < $%d", listquery.NextDay(*f.DateTo))
	}

	query += " ORDER BY report_date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list daily reports", err)
	}
	defer rows.Close()

	reports := []models.DailyReport{}
	for rows.Next() {
		dr, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *dr)
	}
	return reports, rows.Err()
}

// Get returns one daily report by id
func (r *Repository) Get(ctx context.Context, id string) (*models.DailyReport, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+reportColumns+" FROM daily_reports WHERE id = $1", id)
	dr, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("daily report")
	}
	if err != nil {
		return nil, err
	}
	return dr, nil
}

// Exists reports whether a report already exists for the agent, date and team
func (r *Repository) Exists(ctx context.Context, agentID string, date time.Time, teamType string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_reports WHERE agent_id = $1 AND report_date = $2 AND team_type = $3",
		agentID, date, teamType).Scan(&n)
	if err != nil {
		return false, domain.NewInternalError("failed to check daily report", err)
	}
	return n > 0, nil
}

// Create inserts a daily report. The unique index on (agent_id, report_date,
// team_type) backs up the service-level duplicate check.
func (r *Repository) Create(ctx context.Context, dr models.DailyReport) (*models.DailyReport, error) {
	dr.ID = uuid.NewString()
	dr.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO daily_reports (`+reportColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		dr.ID, dr.AgentID, dr.ReportDate, dr.TeamType,
		dr.OutreachCount, dr.ResponsesCount,
		dr.ConnectionsSent, dr.MessagesSent, dr.RepliesReceived,
		dr.EmailsSent, dr.EmailsOpened, dr.Bounces, dr.CreatedAt)
	if err != nil {
		return nil, domain.NewInternalError("failed to create daily report", err)
	}
	return &dr, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReport(row rowScanner) (*models.DailyReport, error) {
	var dr models.DailyReport
	err := row.Scan(&dr.ID, &dr.AgentID, &dr.ReportDate, &dr.TeamType,
		&dr.OutreachCount, &dr.ResponsesCount,
		&dr.ConnectionsSent, &dr.MessagesSent, &dr.RepliesReceived,
		&dr.EmailsSent, &dr.EmailsOpened, &dr.Bounces, &dr.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to scan daily report", err)
	}
	return &dr, nil
}
