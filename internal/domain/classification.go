package domain

import "time"

// Risk level bounds. Level 1 is the highest risk, 6 the lowest.
const (
	RiskLevelHighest = 1
	RiskLevelLowest  = 6
)

// System classification codes, seeded at fixed risk levels.
const (
	ClassSuper      = "super"
	ClassDBA        = "dba"
	ClassPrivileged = "privileged"
	ClassWrite      = "write"
	ClassReadOnly   = "readonly"
	ClassPublic     = "public"
)

// AccountClassification is a named risk bucket accounts can be assigned to.
// The code is an immutable lowercase identifier; display text may change.
type AccountClassification struct {
	ID          string
	Code        string
	DisplayName string
	RiskLevel   int
	IsSystem    bool
	CreatedAt   time.Time
}

// ClassificationAssignment links an account to a classification via the
// concrete rule version that matched, enabling exact replay of why the
// account was classified.
type ClassificationAssignment struct {
	ID               string
	AccountID        string
	ClassificationID string
	RuleID           string
	AssignedAt       time.Time
}

// DailyMatchStats is the per (date, rule, db_type, instance) count of
// matched accounts, written once per day per key.
type DailyMatchStats struct {
	StatDate         string // YYYY-MM-DD
	RuleID           string
	ClassificationID string
	DBType           string
	InstanceID       string
	MatchedCount     int64
}
