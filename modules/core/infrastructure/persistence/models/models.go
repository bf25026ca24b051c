package models

import (
	"database/sql"
	"time"
)

type Tenant struct {
	ID          string       `db:"id"`
	Name        string       `db:"name"`
	Slug        string       `db:"slug"`
	Country     string       `db:"country"`
	Currency    string       `db:"currency"`
	Language    string       `db:"language"`
	IsActive    bool         `db:"is_active"`
	OnboardedAt sql.NullTime `db:"onboarded_at"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

type Branch struct {
	ID        string         `db:"id"`
	TenantID  string         `db:"tenant_id"`
	Name      string         `db:"name"`
	Code      string         `db:"code"`
	Address   string         `db:"address"`
	Phone     string         `db:"phone"`
	ManagerID sql.NullString `db:"manager_id"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

type User struct {
	ID           string         `db:"id"`
	TenantID     string         `db:"tenant_id"`
	BranchID     sql.NullString `db:"branch_id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	PasswordHash string         `db:"password_hash"`
	Role         string         `db:"role"`
	Status       string         `db:"status"`
	FederatedID  sql.NullString `db:"federated_id"`
	LastLogin    sql.NullTime   `db:"last_login"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// Secret is a token digest slot on the users table.
type Secret struct {
	Digest    sql.NullString `db:"digest"`
	ExpiresAt sql.NullTime   `db:"expires_at"`
}
