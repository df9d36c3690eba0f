package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulsecrm/backend/pkg/database"
	"github.com/pulsecrm/backend/pkg/domain"
	"github.com/pulsecrm/backend/pkg/models"
)

// Repository persists attendance records
type Repository struct {
	db *sql.DB
}

// NewRepository creates an attendance repository
func NewRepository(client *database.Client) *Repository {
	return &Repository{db: client.DB}
}

const attendanceColumns = "id, user_id, date, status, check_in_time, check_out_time, notes"

// Filters narrows an attendance listing. Zero-valued fields are ignored.
type Filters struct {
	UserID   string
	Status   string
	DateFrom *time.Time
	DateTo   *time.Time
}

// List returns attendance records matching the filters, newest date first.
// Never returns nil.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.Attendance, error) {
	query := "SELECT " + attendanceColumns + " FROM attendance WHERE 1=1"
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
	if f.DateFrom != nil {
		appendCond("date >= $%d", f.DateFrom.Format("2006-01-02"))
	}
	if f.DateTo != nil {
		appendCond("date <= $%d", f.DateTo.Format("2006-01-02"))
	}

	query += " ORDER BY date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list attendance", err)
	}
	defer rows.Close()

	records := []models.Attendance{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, domain.NewInternalError("failed to scan attendance", err)
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// GetForDate returns the single record for (user, calendar date), or nil when
// none exists. At most one record per (user_id, date) can exist.
func (r *Repository) GetForDate(ctx context.Context, userID string, date time.Time) (*models.Attendance, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE user_id = $1 AND date = $2",
		userID, date.Format("2006-01-02"))

	a, err := scanAttendance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to get attendance", err)
	}
	return &a, nil
}

// Create inserts an attendance record
func (r *Repository) Create(ctx context.Context, a models.Attendance) (*models.Attendance, error) {
	a.ID = uuid.NewString()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance (id, user_id, date, status, check_in_time, check_out_time, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.Date.Format("2006-01-02"), a.Status, a.CheckInTime, a.CheckOutTime, a.Notes)
	if err != nil {
		return nil, domain.NewInternalError("failed to create attendance", err)
	}
	return &a, nil
}

// UpdateInput holds optional fields for an attendance update
type UpdateInput struct {
	Status       *string
	CheckOutTime *time.Time
	Notes        *string
}

// Update applies the present fields to one record
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*models.Attendance, error) {
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

	if in.Status != nil {
		appendSet("status", *in.Status)
	}
	if in.CheckOutTime != nil {
		appendSet("check_out_time", *in.CheckOutTime)
	}
	if in.Notes != nil {
		appendSet("notes", *in.Notes)
	}

	if sets == "" {
		return nil, domain.NewValidationError("no fields to update")
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, fmt.Sprintf("UPDATE attendance SET %s WHERE id = $%d", sets, argIndex), args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to update attendance", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("attendance record")
	}

	row := r.db.QueryRowContext(ctx, "SELECT "+attendanceColumns+" FROM attendance WHERE id = $1", id)
	a, err := scanAttendance(row)
	if err != nil {
		return nil, domain.NewInternalError("failed to reload attendance", err)
	}
	return &a, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAttendance(row rowScanner) (models.Attendance, error) {
	var a models.Attendance
	var checkIn, checkOut sql.NullTime
	err := row.Scan(&a.ID, &a.UserID, &a.Date, &a.Status, &checkIn, &checkOut, &a.Notes)
	if err != nil {
		return a, err
	}
	if checkIn.Valid {
		a.CheckInTime = &checkIn.Time
	}
	if checkOut.Valid {
		a.CheckOutTime = &checkOut.Time
	}
	return a, nil
}
