// Package app provides application-level wiring and dependency injection
// for the dbfleet classification subsystem.
package app

import (
	"context"
	"database/sql"
	"log/slog"

	"dbfleet/internal/cache"
	"dbfleet/internal/config"
	"dbfleet/internal/db/repository"
	"dbfleet/internal/service/classify"
	"dbfleet/internal/service/collect"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
}

// Repos groups the repositories CLI commands use directly. Stats and Runs
// are backed by the read pool; the classify service writes them through
// its own write-pool handles.
type Repos struct {
	Instances       *repository.InstanceRepo
	Accounts        *repository.AccountRepo
	Snapshots       *repository.SnapshotRepo
	Classifications *repository.ClassificationRepo
	Rules           *repository.RuleRepo
	Assignments     *repository.AssignmentRepo
	Stats           *repository.StatsRepo
	Runs            *repository.RunRepo
	Audit           *repository.AuditRepo
}

// App holds the fully-wired application.
type App struct {
	Collect   *collect.Service
	Classify  *classify.Service
	Scheduler *classify.Scheduler
	Cache     *cache.Store
	Repos     Repos
}

// New wires all repositories and services from the provided deps and seeds
// the system classifications.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Cfg

	// Single-writer repositories: every insert and update goes through the
	// one-connection write pool.
	instances := repository.NewInstanceRepo(deps.WriteDB)
	classifications := repository.NewClassificationRepo(deps.WriteDB)
	rules := repository.NewRuleRepo(deps.WriteDB)
	assignments := repository.NewAssignmentRepo(deps.WriteDB)
	stats := repository.NewStatsRepo(deps.WriteDB)
	runs := repository.NewRunRepo(deps.WriteDB)
	audit := repository.NewAuditRepo(deps.WriteDB)

	// Read-pool repositories: pass fanout and reporting queries fan out
	// across the read pool instead of queueing behind the writer.
	readInstances := repository.NewInstanceRepo(deps.ReadDB)
	readAccounts := repository.NewAccountRepo(deps.ReadDB)
	readSnapshots := repository.NewSnapshotRepo(deps.ReadDB)
	readStats := repository.NewStatsRepo(deps.ReadDB)
	readRuns := repository.NewRunRepo(deps.ReadDB)

	repos := Repos{
		Instances:       instances,
		Accounts:        repository.NewAccountRepo(deps.WriteDB),
		Snapshots:       repository.NewSnapshotRepo(deps.WriteDB),
		Classifications: classifications,
		Rules:           rules,
		Assignments:     assignments,
		Stats:           readStats,
		Runs:            readRuns,
		Audit:           audit,
	}

	if err := seedClassifications(ctx, repos.Classifications); err != nil {
		return nil, err
	}

	store := cache.New()

	collectSvc := collect.NewService(
		readInstances, repos.Accounts, repos.Snapshots, store, deps.Logger,
	)
	classifySvc := classify.NewService(
		rules, classifications, readInstances, readAccounts, readSnapshots,
		assignments, stats, runs, audit,
		store,
		classify.Options{
			DSLV4:       cfg.FeatureDSLV4,
			Concurrency: cfg.ClassifyConcurrency,
			EvalRPS:     cfg.ClassifyEvalRPS,
		},
		deps.Logger,
	)

	return &App{
		Collect:   collectSvc,
		Classify:  classifySvc,
		Scheduler: classify.NewScheduler(classifySvc, deps.Logger),
		Cache:     store,
		Repos:     repos,
	}, nil
}
