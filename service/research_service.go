package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"counselbrief-backend/models"
	"counselbrief-backend/repository"

	"github.com/google/uuid"
)

// ResearchService runs the full research pipeline for a matter as a
// background job: normalize, guardrail, retrieve, re-rank, synthesize.
type ResearchService struct {
	matterRepo *repository.MatterRepository
	jobRepo    *repository.ResearchJobRepository
	retrieval  *RetrievalService
	queries    *QueryService
	answers    *AnswerService
}

// ResearchServiceOption is a functional option for ResearchService
type ResearchServiceOption func(*ResearchService)

// ResearchWithMatterRepository sets the matter repository
func ResearchWithMatterRepository(repo *repository.MatterRepository) ResearchServiceOption {
	return func(s *ResearchService) {
		s.matterRepo = repo
	}
}

// ResearchWithJobRepository sets the research job repository
func ResearchWithJobRepository(repo *repository.ResearchJobRepository) ResearchServiceOption {
	return func(s *ResearchService) {
		s.jobRepo = repo
	}
}

// ResearchWithRetrievalService sets the retrieval service
func ResearchWithRetrievalService(retrieval *RetrievalService) ResearchServiceOption {
	return func(s *ResearchService) {
		s.retrieval = retrieval
	}
}

// ResearchWithQueryService sets the query normalization service
func ResearchWithQueryService(queries *QueryService) ResearchServiceOption {
	return func(s *ResearchService) {
		s.queries = queries
	}
}

// ResearchWithAnswerService sets the answer service
func ResearchWithAnswerService(answers *AnswerService) ResearchServiceOption {
	return func(s *ResearchService) {
		s.answers = answers
	}
}

// NewResearchService creates a new research service
func NewResearchService(opts ...ResearchServiceOption) *ResearchService {
	s := &ResearchService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	// ErrMatterNotFound indicates the matter does not exist
	ErrMatterNotFound = errors.New("matter not found")
	// ErrMissingQuestion indicates the research request had no question
	ErrMissingQuestion = errors.New("research question is required")
	// ErrJobNotFound indicates the research job does not exist
	ErrJobNotFound = errors.New("research job not found")
)

const (
	stepNormalize  = "Normalizing Question"
	stepRetrieve   = "Retrieving Authorities"
	stepRank       = "Ranking Authorities"
	stepSynthesize = "Synthesizing Answer"
)

// StartResearchRequest represents a request to start a research run
type StartResearchRequest struct {
	MatterID uuid.UUID
	Question string
}

// StartResearchResult represents the result of creating a research job
type StartResearchResult struct {
	JobID uuid.UUID
}

// StartResearch validates the matter, creates the job and returns
// immediately; ProcessResearch does the slow work in the background.
func (s *ResearchService) StartResearch(ctx context.Context, req StartResearchRequest) (*StartResearchResult, error) {
	if s.matterRepo == nil {
		return nil, errors.New("matter repository not set")
	}
	if s.jobRepo == nil {
		return nil, errors.New("research job repository not set")
	}

	if strings.TrimSpace(req.Question) == "" {
		return nil, ErrMissingQuestion
	}

	matter, err := s.matterRepo.GetByID(ctx, req.MatterID)
	if err != nil {
		return nil, ErrMatterNotFound
	}

	job := &models.ResearchJob{
		MatterID: req.MatterID,
		Question: req.Question,
		Status:   models.JobStatusPending,
		Steps: models.ResearchSteps{
			{Name: stepNormalize, Status: "pending"},
			{Name: stepRetrieve, Status: "pending"},
			{Name: stepRank, Status: "pending"},
			{Name: stepSynthesize, Status: "pending"},
		},
	}

	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create research job: %w", err)
	}

	matter.Status = models.MatterStatusResearch
	matter.LatestQuestion = &req.Question
	if err := s.matterRepo.Update(ctx, matter); err != nil {
		return nil, fmt.Errorf("failed to update matter: %w", err)
	}

	return &StartResearchResult{JobID: job.ID}, nil
}

// GetJobStatusRequest represents a request to get job status
type GetJobStatusRequest struct {
	JobID uuid.UUID
}

// GetJobStatusResult represents the result of getting job status
type GetJobStatusResult struct {
	Job *models.ResearchJob
}

// GetJobStatus retrieves the status of a research job
func (s *ResearchService) GetJobStatus(ctx context.Context, req GetJobStatusRequest) (*GetJobStatusResult, error) {
	if s.jobRepo == nil {
		return nil, errors.New("research job repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, ErrJobNotFound
	}

	return &GetJobStatusResult{Job: job}, nil
}

// ProcessResearch performs the research pipeline in the background. It runs
// in a goroutine and can take tens of seconds; progress is tracked per step
// on the job row for polling clients.
func (s *ResearchService) ProcessResearch(ctx context.Context, jobID uuid.UUID) error {
	if s.jobRepo == nil || s.matterRepo == nil {
		return errors.New("repositories not set")
	}
	if s.retrieval == nil || s.queries == nil || s.answers == nil {
		return errors.New("pipeline services not set")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load research job: %w", err)
	}

	matter, err := s.matterRepo.GetByID(ctx, job.MatterID)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to load matter: "+err.Error())
		return err
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	// 1. Normalize the question, then run the guardrail before spending any
	// retrieval or synthesis calls.
	if err := s.updateStepStatus(ctx, jobID, stepNormalize, "in_progress"); err != nil {
		return err
	}

	norm, err := s.queries.Normalize(ctx, job.Question)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to normalize question: "+err.Error())
		return err
	}

	if mismatch := CheckForum(*norm, matter.TargetForum); mismatch != nil {
		s.markJobFailed(ctx, jobID, mismatch.Error())
		return mismatch
	}

	if err := s.updateStepStatus(ctx, jobID, stepNormalize, "completed"); err != nil {
		return err
	}

	// 2+3. Hybrid retrieval and re-ranking.
	if err := s.updateStepStatus(ctx, jobID, stepRetrieve, "in_progress"); err != nil {
		return err
	}

	retrieved, err := s.retrieval.Retrieve(ctx, RetrieveRequest{
		UserQuery:   job.Question,
		Norm:        *norm,
		TargetForum: matter.TargetForum,
		TopK:        RerankTopK,
	})
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to retrieve authorities: "+err.Error())
		return err
	}

	if err := s.updateStepStatus(ctx, jobID, stepRetrieve, "completed"); err != nil {
		return err
	}
	if err := s.updateStepStatus(ctx, jobID, stepRank, "completed"); err != nil {
		return err
	}

	// 4. Synthesize the structured answer.
	if err := s.updateStepStatus(ctx, jobID, stepSynthesize, "in_progress"); err != nil {
		return err
	}

	answer, err := s.answers.Synthesize(ctx, SynthesizeRequest{
		UserQuery:   job.Question,
		Norm:        *norm,
		TargetForum: matter.TargetForum,
		Context:     retrieved.Candidates,
	})
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to synthesize answer: "+err.Error())
		return err
	}

	if err := s.updateStepStatus(ctx, jobID, stepSynthesize, "completed"); err != nil {
		return err
	}

	if err := s.jobRepo.Complete(ctx, jobID, answer); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	matter.Status = models.MatterStatusAdvised
	if err := s.matterRepo.Update(ctx, matter); err != nil {
		return fmt.Errorf("failed to update matter: %w", err)
	}

	return nil
}

// updateStepStatus updates the status of a specific step in the research job
func (s *ResearchService) updateStepStatus(ctx context.Context, jobID uuid.UUID, stepName, status string) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return err
	}

	steps := job.Steps
	var currentStep string
	if job.CurrentStep != nil {
		currentStep = *job.CurrentStep
	}

	for i := range steps {
		if steps[i].Name == stepName {
			steps[i].Status = status
			if status == "in_progress" {
				currentStep = stepName
			}
			break
		}
	}

	return s.jobRepo.UpdateProgress(ctx, jobID, currentStep, steps)
}

// markJobFailed marks a job as failed with an error message
func (s *ResearchService) markJobFailed(ctx context.Context, jobID uuid.UUID, errorMessage string) {
	if err := s.jobRepo.Fail(ctx, jobID, errorMessage); err != nil {
		// Already in error handling; nothing else to do with this one
		_ = err
	}
}
