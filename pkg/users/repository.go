package users

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

// Repository persists user profiles
type Repository struct {
	db *sql.DB
}

// NewRepository creates a user repository
func NewRepository(client *database.Client) *Repository {
	return &Repository{db: client.DB}
}

const userColumns = "id, full_name, email, password_hash, role, manager_id, created_at"

// Filters narrows a user listing. Zero-valued fields are ignored.
type Filters struct {
	Role      string
	ManagerID string
}

// List returns users matching the filters, newest first. Never returns nil.
func (r *Repository) List(ctx context.Context, f Filters) ([]models.UserProfile, error) {
	query := "SELECT " + userColumns + " FROM users WHERE 1=1"
	args := []interface{}{}
	argIndex := 1

	if f.Role != "" {
		query += fmt.Sprintf(" AND role = $%d", argIndex)
		args = append(args, f.Role)
		argIndex++
	}
	if f.ManagerID != "" {
		query += fmt.Sprintf(" AND manager_id = $%d", argIndex)
		args = append(args, f.ManagerID)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to list users", err)
	}
	defer rows.Close()

	users := []models.UserProfile{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.NewInternalError("failed to scan user", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Get returns one user by id
func (r *Repository) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("user")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to get user", err)
	}
	return &u, nil
}

// GetByEmail returns one user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = $1", email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("user")
	}
	if err != nil {
		return nil, domain.NewInternalError("failed to get user", err)
	}
	return &u, nil
}

// CreateInput holds the fields for a new user
type CreateInput struct {
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	ManagerID    *string
}

// Create inserts a user and returns the persisted record
func (r *Repository) Create(ctx context.Context, in CreateInput) (*models.UserProfile, error) {
	u := models.UserProfile{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		ManagerID:    in.ManagerID,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, role, manager_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.FullName, u.Email, u.PasswordHash, u.Role, u.ManagerID, u.CreatedAt)
	if err != nil {
		return nil, domain.NewInternalError("failed to create user", err)
	}
	return &u, nil
}

// UpdateInput holds optional fields for a user update. Nil fields are never
// written, so an absent field cannot overwrite a stored value with null.
type UpdateInput struct {
	FullName  *string
	Role      *string
	ManagerID *string
}

// Update applies the present fields and returns the persisted record
func (r *Repository) Update(ctx context.Context, id string, in UpdateInput) (*models.UserProfile, error) {
	sets := []string{}
	args := []interface{}{}
	argIndex := 1

	appendSet := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIndex))
		args = append(args, val)
		argIndex++
	}

	if in.FullName != nil {
		appendSet("full_name", *in.FullName)
	}
	if in.Role != nil {
		appendSet("role", *in.Role)
	}
	if in.ManagerID != nil {
		appendSet("manager_id", *in.ManagerID)
	}

	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	query := "UPDATE users SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += fmt.Sprintf(" WHERE id = $%d", argIndex)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewInternalError("failed to update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.NewNotFoundError("user")
	}

	return r.Get(ctx, id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (models.UserProfile, error) {
	var u models.UserProfile
	var managerID sql.NullString
	err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &managerID, &u.CreatedAt)
	if err != nil {
		return u, err
	}
	if managerID.Valid {
		u.ManagerID = &managerID.String
	}
	return u, nil
}
