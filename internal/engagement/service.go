package engagement

import (
	"context"
	"fmt"
	"time"

	"github.com/learnhub/engagement/internal/models"
)

// Service wires the engine components together and exposes the operations
// calling collaborators (quiz, course, login, certificate subsystems) use.
// It holds no long-lived goroutines; every operation runs on the caller's
// request.
type Service struct {
	store   Store
	catalog *Catalog
	loc     *time.Location
	now     func() time.Time
}

func NewService(store Store, catalog *Catalog, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: store, catalog: catalog, loc: loc, now: time.Now}
}

// ── Composite Learning Events ───────────────────────────

// CompleteQuiz records a finished quiz: statistics counters move by atomic
// increment, the configured event points are awarded, and one achievement
// pass runs.
func (s *Service) CompleteQuiz(ctx context.Context, userID int64, perfect bool) (*models.LearningEventResult, error) {
	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.IncrementStat(ctx, userID, StatQuizzesCompleted, 1); err != nil {
		return nil, err
	}
	event := EventQuizCompleted
	if perfect {
		if err := s.store.IncrementStat(ctx, userID, StatPerfectScores, 1); err != nil {
			return nil, err
		}
		event = EventQuizPerfect
	}
	return s.learningAward(ctx, userID, event)
}

// CompleteCourse records a finished course.
func (s *Service) CompleteCourse(ctx context.Context, userID int64) (*models.LearningEventResult, error) {
	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.IncrementStat(ctx, userID, StatCoursesCompleted, 1); err != nil {
		return nil, err
	}
	return s.learningAward(ctx, userID, EventCourseCompleted)
}

// RecordStudyTime adds a study session's minutes to the profile.
func (s *Service) RecordStudyTime(ctx context.Context, userID int64, minutes int) (*models.LearningEventResult, error) {
	if minutes <= 0 {
		return nil, fmt.Errorf("%w: study minutes must be positive", ErrInvalidAmount)
	}
	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.IncrementStat(ctx, userID, StatStudyTimeMinutes, minutes); err != nil {
		return nil, err
	}
	return s.learningAward(ctx, userID, EventStudySession)
}

// EarnCertificate records an issued certificate.
func (s *Service) EarnCertificate(ctx context.Context, userID int64) (*models.LearningEventResult, error) {
	if _, err := s.store.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.store.IncrementStat(ctx, userID, StatCertificatesEarned, 1); err != nil {
		return nil, err
	}
	return s.learningAward(ctx, userID, EventCertificate)
}

func (s *Service) learningAward(ctx context.Context, userID int64, eventType string) (*models.LearningEventResult, error) {
	points, _ := s.catalog.PointsFor(eventType)
	res, err := s.applyAward(ctx, userID, points, eventType, "", true)
	if err != nil {
		return nil, err
	}
	return &models.LearningEventResult{
		PointsAwarded: res.PointsAwarded,
		NewTotalXP:    res.NewTotalXP,
		LeveledUp:     res.LeveledUp,
		NewLevel:      res.NewLevel,
		Unlocked:      res.Unlocked,
	}, nil
}

// ── User Stats ──────────────────────────────────────────

// UserStatsResponse aggregates the profile with its derived level info,
// earned achievement/badge ids and current rank.
type UserStatsResponse struct {
	Profile      models.EngagementProfile `json:"profile"`
	LevelInfo    LevelInfo                `json:"level_info"`
	Achievements []string                 `json:"achievements"`
	Badges       []string                 `json:"badges"`
	Rank         models.RankResult        `json:"rank"`
}

func (s *Service) UserStats(ctx context.Context, userID int64) (*UserStatsResponse, error) {
	p, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	achievements, err := s.store.Achievements(ctx, userID)
	if err != nil {
		achievements = []string{}
	}
	badges, err := s.store.Badges(ctx, userID)
	if err != nil {
		badges = []string{}
	}

	rank, err := s.UserRank(ctx, userID, string(MetricPoints))
	if err != nil {
		rank = &models.RankResult{}
	}

	return &UserStatsResponse{
		Profile:      *p,
		LevelInfo:    s.catalog.LevelFor(p.TotalXP),
		Achievements: achievements,
		Badges:       badges,
		Rank:         *rank,
	}, nil
}
