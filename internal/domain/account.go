package domain

import "time"

// Instance is a monitored database server in the fleet inventory. Only the
// fields needed to key snapshots, assignments, and stats live here.
type Instance struct {
	ID        string
	Name      string
	DBType    string
	Host      string
	Port      int
	CreatedAt time.Time
}

// Account is one database account on one instance.
type Account struct {
	ID         string
	InstanceID string
	Username   string
	Host       string // host mask for engines that scope accounts by host
	CreatedAt  time.Time
}

// AuditEntry records an administrative action on the rule store.
type AuditEntry struct {
	ID        string
	Actor     string
	Action    string
	Entity    string
	Detail    string
	CreatedAt time.Time
}
