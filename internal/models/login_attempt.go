package models

import "time"

// LoginAttempt is an append-only log entry recorded once per login request.
// Username is the attempted identity as submitted by the client, which need
// not correspond to an existing account.
type LoginAttempt struct {
	ID          int64     `json:"id" db:"id"`
	Username    string    `json:"username" db:"username"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	Success     bool      `json:"success" db:"success"`
	AttemptTime time.Time `json:"attempt_time" db:"attempt_time"`
}

// SecurityStats aggregates login attempt counts for the security reporting
// endpoint. Windows are anchored at query time.
type SecurityStats struct {
	TotalAttemptsLastHour  int64 `json:"total_attempts_last_hour"`
	FailedAttemptsLastHour int64 `json:"failed_attempts_last_hour"`
	TotalAttemptsLastDay   int64 `json:"total_attempts_last_day"`
	FailedAttemptsLastDay  int64 `json:"failed_attempts_last_day"`
	UniqueIPsLastDay       int64 `json:"unique_ips_last_day"`
}
