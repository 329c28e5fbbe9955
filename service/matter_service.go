package service

import (
	"context"
	"errors"

	"counselbrief-backend/models"
	"counselbrief-backend/repository"

	"github.com/google/uuid"
)

// MatterService handles business logic for matters
type MatterService struct {
	matterRepo *repository.MatterRepository
}

// MatterServiceOption is a functional option for MatterService
type MatterServiceOption func(*MatterService)

// WithMatterRepository sets the matter repository
func WithMatterRepository(repo *repository.MatterRepository) MatterServiceOption {
	return func(s *MatterService) {
		s.matterRepo = repo
	}
}

// NewMatterService creates a new matter service
func NewMatterService(opts ...MatterServiceOption) *MatterService {
	s := &MatterService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMatterRequest represents a request to create a matter
type CreateMatterRequest struct {
	ClientName    string
	OpposingParty string
	Jurisdiction  string
	TargetForum   string
	Facts         models.MatterFacts
}

// CreateMatterResult represents the result of creating a matter
type CreateMatterResult struct {
	Matter *models.Matter
}

// CreateMatter creates a new matter with default values
func (s *MatterService) CreateMatter(ctx context.Context, req CreateMatterRequest) (*CreateMatterResult, error) {
	if s.matterRepo == nil {
		return nil, errors.New("matter repository not set")
	}

	matter := &models.Matter{
		Status:        models.MatterStatusOpen,
		ClientName:    req.ClientName,
		OpposingParty: req.OpposingParty,
		Jurisdiction:  req.Jurisdiction,
		TargetForum:   req.TargetForum,
		Facts:         req.Facts,
	}

	if matter.Facts == nil {
		matter.Facts = make(models.MatterFacts)
	}

	err := s.matterRepo.Create(ctx, matter)
	if err != nil {
		return nil, err
	}

	return &CreateMatterResult{Matter: matter}, nil
}

// GetMatterRequest represents a request to get a matter
type GetMatterRequest struct {
	ID uuid.UUID
}

// GetMatterResult represents the result of getting a matter
type GetMatterResult struct {
	Matter *models.Matter
}

// GetMatter retrieves a matter by ID
func (s *MatterService) GetMatter(ctx context.Context, req GetMatterRequest) (*GetMatterResult, error) {
	if s.matterRepo == nil {
		return nil, errors.New("matter repository not set")
	}

	matter, err := s.matterRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	return &GetMatterResult{Matter: matter}, nil
}

// UpdateMatterRequest represents a request to update a matter
type UpdateMatterRequest struct {
	Matter *models.Matter
}

// UpdateMatterResult represents the result of updating a matter
type UpdateMatterResult struct {
	Matter *models.Matter
}

// UpdateMatter updates a matter
func (s *MatterService) UpdateMatter(ctx context.Context, req UpdateMatterRequest) (*UpdateMatterResult, error) {
	if s.matterRepo == nil {
		return nil, errors.New("matter repository not set")
	}

	err := s.matterRepo.Update(ctx, req.Matter)
	if err != nil {
		return nil, err
	}

	return &UpdateMatterResult{Matter: req.Matter}, nil
}

// ListMattersRequest represents a request to list matters
type ListMattersRequest struct {
	Status *models.MatterStatus
	Limit  int
	Offset int
}

// ListMattersResult represents the result of listing matters
type ListMattersResult struct {
	Matters []*models.Matter
}

// ListMatters lists matters
func (s *MatterService) ListMatters(ctx context.Context, req ListMattersRequest) (*ListMattersResult, error) {
	if s.matterRepo == nil {
		return nil, errors.New("matter repository not set")
	}

	matters, err := s.matterRepo.List(ctx, req.Status, req.Limit, req.Offset)
	if err != nil {
		return nil, err
	}

	return &ListMattersResult{Matters: matters}, nil
}
