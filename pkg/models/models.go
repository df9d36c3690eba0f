package models

import "time"

// Role constants for user profiles
const (
	RoleAgent      = "agent"
	RoleManager    = "manager"
	RoleSuperAdmin = "super_admin"
)

// Lead priority tiers
const (
	TierP1 = "P1"
	TierP2 = "P2"
	TierP3 = "P3"
)

// Follow-up / meeting / todo statuses
const (
	StatusPending     = "Pending"
	StatusCompleted   = "Completed"
	StatusRescheduled = "Rescheduled"
	StatusCancelled   = "Cancelled"
	StatusScheduled   = "Scheduled"
)

// Attendance statuses
const (
	AttendanceCheckedIn  = "CheckedIn"
	AttendanceCheckedOut = "CheckedOut"
	AttendanceOnLeave    = "OnLeave"
)

// Daily report team types
const (
	TeamTelesales = "telesales"
	TeamLinkedin  = "linkedin"
	TeamColdEmail = "cold_email"
)

// UserProfile is an application user. ManagerID, when set, must reference a
// user with role manager.
type UserProfile struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	ManagerID    *string   `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Lead is a sales prospect. AgentID, when set, must reference a user with
// role agent. Leads are never hard-deleted, only transitioned.
type Lead struct {
	ID           string    `json:"id"`
	ClientName   string    `json:"client_name"`
	ClientEmail  string    `json:"client_email"`
	ClientPhone  string    `json:"client_phone"`
	AgentID      *string   `json:"agent_id,omitempty"`
	StatusBucket string    `json:"status_bucket"`
	LeadSource   string    `json:"lead_source"`
	DealValue    float64   `json:"deal_value"`
	CreatedAt    time.Time `json:"created_at"`
}

// FollowUp is a scheduled contact task for a lead
type FollowUp struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	AgentID   string    `json:"agent_id"`
	DueDate   time.Time `json:"due_date"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Meeting is a scheduled engagement tied to a lead and an agent
type Meeting struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	LeadID    string    `json:"lead_id"`
	AgentID   string    `json:"agent_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Location  string    `json:"location"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Attendance is one record per user per calendar date
type Attendance struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Date         time.Time  `json:"date"`
	Status       string     `json:"status"`
	CheckInTime  *time.Time `json:"check_in_time,omitempty"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
	Notes        string     `json:"notes"`
}

// DailyReport is a per-agent, per-day, per-team-type metrics submission.
// Exactly one shape of numeric fields is populated, matching TeamType.
// Reports are immutable once created.
type DailyReport struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	ReportDate time.Time `json:"report_date"`
	TeamType   string    `json:"team_type"`

	// telesales
	OutreachCount  *int `json:"outreach_count,omitempty"`
	ResponsesCount *int `json:"responses_count,omitempty"`

	// linkedin
	ConnectionsSent *int `json:"connections_sent,omitempty"`
	MessagesSent    *int `json:"messages_sent,omitempty"`
	RepliesReceived *int `json:"replies_received,omitempty"`

	// cold_email
	EmailsSent   *int `json:"emails_sent,omitempty"`
	EmailsOpened *int `json:"emails_opened,omitempty"`
	Bounces      *int `json:"bounces,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Todo is a personal task
type Todo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	DueDate   time.Time `json:"due_date"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is owned by the support backend; this is a pass-through view model
type Ticket struct {
	ID               string                 `json:"id"`
	Subject          string                 `json:"subject"`
	Description      string                 `json:"description"`
	Status           string                 `json:"status"`
	Priority         string                 `json:"priority"`
	Category         string                 `json:"category"`
	Channel          string                 `json:"channel"`
	CustomerName     string                 `json:"customer_name"`
	CustomerEmail    string                 `json:"customer_email"`
	AIClassification map[string]interface{} `json:"ai_classification,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// ErrorResponse is the standard error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// PaginationInfo describes one page of a list response
type PaginationInfo struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
