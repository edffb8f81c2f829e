package app

import (
	"context"
	"fmt"

	"dbfleet/internal/domain"
)

// systemClassifications is the fixed risk taxonomy every deployment gets.
// Risk 1 is the highest.
var systemClassifications = []domain.AccountClassification{
	{Code: domain.ClassSuper, DisplayName: "Superuser", RiskLevel: 1},
	{Code: domain.ClassDBA, DisplayName: "Database Administrator", RiskLevel: 2},
	{Code: domain.ClassPrivileged, DisplayName: "Privileged", RiskLevel: 3},
	{Code: domain.ClassWrite, DisplayName: "Read-Write", RiskLevel: 4},
	{Code: domain.ClassReadOnly, DisplayName: "Read-Only", RiskLevel: 5},
	{Code: domain.ClassPublic, DisplayName: "Public", RiskLevel: 6},
}

// seedClassifications asserts the system classifications. Idempotent:
// codes are unique anchors, so re-seeding refreshes display text without
// touching user-added classifications or existing assignments.
func seedClassifications(ctx context.Context, repo domain.ClassificationRepository) error {
	for _, c := range systemClassifications {
		c.IsSystem = true
		if _, err := repo.Upsert(ctx, &c); err != nil {
			return fmt.Errorf("seed classification %s: %w", c.Code, err)
		}
	}
	return nil
}
