package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"github.com/dmitrijs2005/melvin/internal/client/client"
	"github.com/dmitrijs2005/melvin/internal/client/models"
)

// ProfileService reads and produces the player-type profile.
type ProfileService interface {
	// Summary returns (nil, nil) when no assessment has been taken yet.
	Summary(ctx context.Context) (*models.ProfileSummary, error)
	Questionnaire(ctx context.Context) (*models.Questionnaire, error)
	// Assess submits answers; every question of q must be answered.
	Assess(ctx context.Context, q *models.Questionnaire, answers []models.Answer) (*models.ProfileSummary, error)
}

type profileService struct {
	client client.Client
}

func NewProfileService(c client.Client) ProfileService {
	return &profileService{client: c}
}

func (s *profileService) Summary(ctx context.Context) (*models.ProfileSummary, error) {
	var sum models.ProfileSummary
	err := s.client.Do(ctx, client.Call{
		Method:        http.MethodGet,
		Path:          "/profiles/me/summary",
		AllowNotFound: true,
		Fallback:      "Failed to load profile summary",
	}, &sum)
	if errors.Is(err, client.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile summary: %w", err)
	}
	return &sum, nil
}

func (s *profileService) Questionnaire(ctx context.Context) (*models.Questionnaire, error) {
	var q models.Questionnaire
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodGet,
		Path:     "/profiles/questionnaire",
		Fallback: "Failed to load assessment questions.",
	}, &q)
	if err != nil {
		return nil, fmt.Errorf("load questionnaire: %w", err)
	}
	return &q, nil
}

func (s *profileService) Assess(ctx context.Context, q *models.Questionnaire, answers []models.Answer) (*models.ProfileSummary, error) {
	if q == nil || len(q.Questions) == 0 {
		return nil, ErrIncompleteAssessment
	}
	answered := lo.SliceToMap(answers, func(a models.Answer) (int64, int64) { return a.QuestionID, a.OptionID })
	for _, question := range q.Questions {
		opt, ok := answered[question.ID]
		if !ok || !lo.ContainsBy(question.Options, func(o models.QuestionOption) bool { return o.ID == opt }) {
			return nil, fmt.Errorf("%w: question %d", ErrIncompleteAssessment, question.ID)
		}
	}

	var sum models.ProfileSummary
	err := s.client.Do(ctx, client.Call{
		Method:   http.MethodPost,
		Path:     "/profiles/assess",
		Body:     models.AssessmentSubmission{Answers: answers},
		Fallback: "Failed to submit assessment.",
	}, &sum)
	if err != nil {
		return nil, fmt.Errorf("submit assessment: %w", err)
	}
	return &sum, nil
}
