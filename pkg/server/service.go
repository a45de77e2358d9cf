package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mikeboe/deep-researcher/pkg/archive"
	"github.com/mikeboe/deep-researcher/pkg/clients"
	"github.com/mikeboe/deep-researcher/pkg/config"
	"github.com/mikeboe/deep-researcher/pkg/database"
	"github.com/mikeboe/deep-researcher/pkg/researcher"
	"github.com/mikeboe/deep-researcher/pkg/search"
)

// Service runs research requests as Postgres-backed background jobs.
type Service struct {
	DB      *database.PostgresDB
	Cfg     *config.Config
	Archive *archive.Archive
}

func NewService(db *database.PostgresDB, cfg *config.Config, arch *archive.Archive) *Service {
	return &Service{
		DB:      db,
		Cfg:     cfg,
		Archive: arch,
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Topic     string          `json:"topic"`
	Status    string          `json:"status"`
	Report    *string         `json:"report,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
}

type CreateJobRequest struct {
	Topic    string `json:"topic"`
	MaxLoops int    `json:"max_loops,omitempty"`
}

// CreateJob inserts a pending job and starts the research loop in a
// background worker.
func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	maxLoops := req.MaxLoops
	if maxLoops <= 0 {
		maxLoops = s.Cfg.MaxResearchLoops
	}

	configJSON, _ := json.Marshal(map[string]interface{}{
		"max_loops":    maxLoops,
		"model":        s.Cfg.Model,
		"route_policy": s.Cfg.RoutePolicy,
	})

	jobID := uuid.New()
	query := `
		INSERT INTO research_jobs (id, topic, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, topic, status, created_at, updated_at
	`

	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, jobID, req.Topic, configJSON).Scan(
		&job.ID, &job.Topic, &job.Status, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	go s.runWorker(job.ID, req.Topic, maxLoops)

	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	query := `
		SELECT id, topic, status, report, created_at, updated_at, config
		FROM research_jobs
		WHERE id = $1
	`
	job := &Job{}
	err := s.DB.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.Topic, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	query := `
		SELECT id, topic, status, report, created_at, updated_at, config
		FROM research_jobs
		ORDER BY created_at DESC
		LIMIT 50
	`
	rows, err := s.DB.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.Topic, &job.Status, &job.Report, &job.CreatedAt, &job.UpdatedAt, &job.Config); err != nil {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM research_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// newEngine builds a research engine from the service configuration,
// logging to the given job's log table.
func (s *Service) newEngine(jobID uuid.UUID) (*researcher.Engine, error) {
	llm, err := clients.DeepSeek(clients.ModelType(s.Cfg.Model), s.Cfg.DeepSeekAPIKey)
	if err != nil {
		return nil, err
	}

	policy := researcher.RequeryPolicy
	if s.Cfg.RoutePolicy == "research" {
		policy = researcher.ResearchPolicy
	}

	var searcher search.Client = search.NewTavily(s.Cfg.TavilyAPIKey, s.Cfg.SearchDepth)
	if s.Cfg.SearchProvider == "arxiv" {
		searcher = search.NewArxiv()
	}

	engine := researcher.NewEngine(researcher.Config{
		MaxLoops:           s.Cfg.MaxResearchLoops,
		MaxResults:         s.Cfg.SearchMaxResults,
		MaxTokensPerSource: s.Cfg.MaxTokensPerSource,
		Policy:             policy,
	}, llm, searcher)

	engine.Logger = slog.New(NewDBLogHandler(s.DB, jobID))
	if s.Archive != nil {
		engine.Archive = s.Archive
	}
	return engine, nil
}

func (s *Service) runWorker(jobID uuid.UUID, topic string, maxLoops int) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	engine, err := s.newEngine(jobID)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to init engine: %v", err))
		return
	}

	// Persist a state snapshot after every step.
	engine.OnStateUpdate = func(state researcher.ResearchState) {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			engine.Logger.Error("Failed to marshal state", "error", err)
			return
		}

		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE research_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
			jobID, stateJSON)
		if err != nil {
			engine.Logger.Error("Failed to save state to DB", "error", err)
		}
	}

	out, err := engine.Run(ctx, researcher.Input{Topic: topic, MaxLoops: maxLoops})
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Research failed: %v", err))
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE research_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		jobID, out.Summary)
	if err != nil {
		engine.Logger.Error("Failed to save final report to DB", "error", err)
	}
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID))
	dbLogger.Error(reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE research_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
