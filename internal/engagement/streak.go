package engagement

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/engagement/internal/models"
)

// UpdateStreak evaluates one login event against the calendar-day streak
// state machine in the configured reference timezone. The day comparison, the
// counter updates and the bonus award all commit in one transaction — two
// near-simultaneous logins (two open tabs) must not both observe "yesterday"
// and double-increment.
func (s *Service) UpdateStreak(ctx context.Context, userID int64) (*models.StreakResult, error) {
	today := dateOnly(s.now().In(s.loc))

	res := &models.StreakResult{Unlocked: []string{}}
	p, err := s.store.Transact(ctx, userID, func(p *models.EngagementProfile) error {
		// The store retries this closure after a lost conflict, so every
		// output must be recomputed from the fresh read, never accumulated
		// across attempts.
		res.StreakUpdated = false
		res.IsFirstLogin = false
		res.StreakBonus = 0

		if p.LastLoginDate != nil && sameDay(*p.LastLoginDate, today) {
			// Already counted today — idempotent no-op.
			res.NewStreak = p.CurrentStreak
			return nil
		}

		bonus := 0
		switch {
		case p.LastLoginDate == nil:
			// First ever login.
			p.CurrentStreak = 1
			res.IsFirstLogin = true
			bonus += s.catalog.Points[EventFirstLogin]
		case sameDay(*p.LastLoginDate, today.AddDate(0, 0, -1)):
			p.CurrentStreak++
		default:
			// Gap of two or more days — streak broken.
			p.CurrentStreak = 1
		}

		bonus += s.catalog.Points[EventDailyLogin]
		// Milestones fire on the transition to exactly that length, so they
		// can re-trigger after a reset but never twice in one run.
		if m, ok := s.catalog.StreakMilestones[p.CurrentStreak]; ok {
			bonus += m
		}

		if p.CurrentStreak > p.LongestStreak {
			p.LongestStreak = p.CurrentStreak
		}
		p.LastLoginDate = &today

		p.TotalPoints += int64(bonus)
		p.TotalXP += int64(bonus)
		if newLevel := s.catalog.LevelFor(p.TotalXP).Level; newLevel > p.Level {
			p.Level = newLevel
		}

		res.StreakBonus = bonus
		res.StreakUpdated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.NewStreak = p.CurrentStreak
	if !res.StreakUpdated {
		return res, nil
	}

	eventType := EventDailyLogin
	if res.IsFirstLogin {
		eventType = EventFirstLogin
	}
	if _, err := s.store.RecordPointEvent(ctx, models.PointEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		EventType: eventType,
		Points:    res.StreakBonus,
	}); err != nil {
		log.Printf("[engagement] failed to record streak event for user %d: %v", userID, err)
	}

	unlocked, err := s.CheckAchievements(ctx, userID)
	if err != nil {
		log.Printf("[engagement] achievement check failed for user %d: %v", userID, err)
	}
	for _, def := range unlocked {
		res.Unlocked = append(res.Unlocked, def.ID)
	}

	return res, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// sameDay compares calendar days by their date components, ignoring location.
// Dates round-tripped through a DATE column come back at midnight UTC; what
// matters is the year/month/day triple, not the wall clock.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
