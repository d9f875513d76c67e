// Package models defines server-side data models persisted by the edge
// service.
package models

import "time"

// User is an account created by trial signup. Email is stored normalized.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  time.Time
}

// PasswordResetRequest is recorded only for existing accounts. Nothing in
// this service consumes Token yet.
type PasswordResetRequest struct {
	Email     string
	Token     string
	CreatedAt time.Time
}

// TimestampLayout is the ISO-8601 form used for TEXT timestamp columns.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
