package repository

import (
	"context"
	"database/sql"

	"dbfleet/internal/domain"
)

var _ domain.StatsRepository = (*StatsRepo)(nil)

// StatsRepo stores daily match aggregates in SQLite.
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo creates a new StatsRepo.
func NewStatsRepo(db *sql.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// Upsert writes the matched count for a (date, rule, db_type, instance)
// key, overwriting any prior count for the same key and day so repeated
// passes never accumulate duplicate rows.
func (r *StatsRepo) Upsert(ctx context.Context, s *domain.DailyMatchStats) error {
	if s == nil || s.StatDate == "" || s.RuleID == "" {
		return domain.ErrValidation("stat_date and rule_id are required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO daily_match_stats
			(id, stat_date, rule_id, classification_id, db_type, instance_id, matched_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stat_date, rule_id, db_type, instance_id)
		DO UPDATE SET matched_count = excluded.matched_count,
		              classification_id = excluded.classification_id
	`, domain.NewID(), s.StatDate, s.RuleID, s.ClassificationID, s.DBType, s.InstanceID, s.MatchedCount)
	return mapDBError(err)
}

// ListByDateRange returns stats for one engine type between two dates
// (inclusive, YYYY-MM-DD).
func (r *StatsRepo) ListByDateRange(ctx context.Context, dbType, from, to string) ([]domain.DailyMatchStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT stat_date, rule_id, classification_id, db_type, instance_id, matched_count
		FROM daily_match_stats
		WHERE db_type = ? AND stat_date >= ? AND stat_date <= ?
		ORDER BY stat_date, rule_id, instance_id
	`, dbType, from, to)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var out []domain.DailyMatchStats
	for rows.Next() {
		var s domain.DailyMatchStats
		if err := rows.Scan(&s.StatDate, &s.RuleID, &s.ClassificationID,
			&s.DBType, &s.InstanceID, &s.MatchedCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
