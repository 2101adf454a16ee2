package engagement

import (
	"context"
	"fmt"
	"log"

	"github.com/learnhub/engagement/internal/models"
)

// CheckAchievements evaluates every not-yet-held achievement against a single
// snapshot of the profile and unlocks the newly satisfied ones. Safe to call
// opportunistically after any statistic mutation: repeated invocation with
// unchanged statistics returns an empty list.
//
// The unlock write is conditional (insert-if-absent), so two concurrent
// checkers cannot both unlock the same id — the loser simply skips the bonus.
// Unlock bonuses are granted with the follow-up pass suppressed; an
// achievement whose bonus pushes another condition over its threshold unlocks
// on the next invocation, never recursively.
func (s *Service) CheckAchievements(ctx context.Context, userID int64) ([]AchievementDef, error) {
	p, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	held, err := s.store.Achievements(ctx, userID)
	if err != nil {
		return nil, err
	}
	heldSet := make(map[string]bool, len(held))
	for _, id := range held {
		heldSet[id] = true
	}

	newly := []AchievementDef{}
	for _, def := range s.catalog.Achievements {
		if heldSet[def.ID] || !s.conditionMet(def.Condition, p) {
			continue
		}
		fresh, err := s.store.UnlockAchievement(ctx, userID, def.ID)
		if err != nil {
			return newly, fmt.Errorf("unlock %s: %w", def.ID, err)
		}
		if !fresh {
			continue
		}
		if def.Bonus > 0 {
			if _, err := s.applyAward(ctx, userID, def.Bonus, EventAchievement, "", false); err != nil {
				log.Printf("[engagement] failed to award bonus for %s to user %d: %v", def.ID, userID, err)
			}
		}
		newly = append(newly, def)
	}

	for _, def := range s.catalog.Badges {
		if !s.conditionMet(def.Condition, p) {
			continue
		}
		if _, err := s.store.AwardBadge(ctx, userID, def.ID); err != nil {
			log.Printf("[engagement] failed to award badge %s to user %d: %v", def.ID, userID, err)
		}
	}

	return newly, nil
}

func (s *Service) conditionMet(cond UnlockCondition, p *models.EngagementProfile) bool {
	switch cond.Kind {
	case CondStatAtLeast:
		return int64(statValue(p, cond.Stat)) >= cond.Threshold
	case CondStreakAtLeast:
		return int64(p.CurrentStreak) >= cond.Threshold
	case CondLevelAtLeast:
		return int64(p.Level) >= cond.Threshold
	case CondPointsAtLeast:
		return p.TotalPoints >= cond.Threshold
	}
	return false
}

func statValue(p *models.EngagementProfile, stat StatField) int {
	switch stat {
	case StatQuizzesCompleted:
		return p.Statistics.QuizzesCompleted
	case StatCoursesCompleted:
		return p.Statistics.CoursesCompleted
	case StatPerfectScores:
		return p.Statistics.PerfectScores
	case StatStudyTimeMinutes:
		return p.Statistics.StudyTimeMinutes
	case StatCertificatesEarned:
		return p.Statistics.CertificatesEarned
	}
	return 0
}

// AchievementDefs exposes the static catalog for read-only display surfaces.
func (s *Service) AchievementDefs() []AchievementDef {
	return s.catalog.Achievements
}
