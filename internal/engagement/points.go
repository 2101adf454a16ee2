package engagement

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/learnhub/engagement/internal/models"
)

// Award applies a point/experience delta resolved from the request's event
// type, or from its explicit amount (mutually exclusive). A request carrying
// an EventID is idempotent: replays of the same id are no-ops.
func (s *Service) Award(ctx context.Context, userID int64, req models.AwardRequest) (*models.AwardResult, error) {
	delta, eventType, err := s.resolveAward(req)
	if err != nil {
		return nil, err
	}

	if req.EventID != "" {
		// Reserve the idempotency key before touching the profile. A retry
		// after the key is taken can never double-apply the award.
		fresh, err := s.store.RecordPointEvent(ctx, models.PointEvent{
			EventID:   req.EventID,
			UserID:    userID,
			EventType: eventType,
			Points:    delta,
		})
		if err != nil {
			return nil, err
		}
		if !fresh {
			p, err := s.store.GetOrCreate(ctx, userID)
			if err != nil {
				return nil, err
			}
			return &models.AwardResult{
				NewTotalXP: p.TotalXP,
				NewLevel:   p.Level,
				Unlocked:   []string{},
				Duplicate:  true,
			}, nil
		}
		res, err := s.applyAward(ctx, userID, delta, eventType, req.EventID, true)
		if err != nil {
			// Nothing committed; free the key so the caller's retry can
			// re-apply instead of being swallowed as a duplicate.
			if relErr := s.store.ReleasePointEvent(ctx, req.EventID); relErr != nil {
				log.Printf("[engagement] failed to release point event %s for user %d: %v", req.EventID, userID, relErr)
			}
			return nil, err
		}
		return res, nil
	}

	return s.applyAward(ctx, userID, delta, eventType, "", true)
}

func (s *Service) resolveAward(req models.AwardRequest) (int, string, error) {
	if req.Amount != nil {
		if req.EventType != "" {
			return 0, "", fmt.Errorf("%w: amount and event_type are mutually exclusive", ErrInvalidAmount)
		}
		if *req.Amount < 0 {
			return 0, "", fmt.Errorf("%w: %d", ErrInvalidAmount, *req.Amount)
		}
		return *req.Amount, EventManualAward, nil
	}
	if req.EventType == "" {
		return 0, "", fmt.Errorf("%w: event_type or amount is required", ErrInvalidEventType)
	}
	points, ok := s.catalog.PointsFor(req.EventType)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q", ErrInvalidEventType, req.EventType)
	}
	return points, req.EventType, nil
}

// applyAward commits the delta in a single transaction: points and XP are
// added and the level is recomputed from the new XP inside the same isolated
// read-modify-write. Level is a derived field — a blind increment here would
// leave it permanently stale under concurrent writers.
//
// When runCheck is set, a single achievement pass runs after the commit.
// Achievement unlock bonuses come back through here with runCheck false,
// which caps bonus chains at one pass per invocation.
func (s *Service) applyAward(ctx context.Context, userID int64, delta int, eventType, eventID string, runCheck bool) (*models.AwardResult, error) {
	var leveledUp bool
	p, err := s.store.Transact(ctx, userID, func(p *models.EngagementProfile) error {
		// Recomputed from the fresh read on every retried attempt.
		leveledUp = false
		p.TotalPoints += int64(delta)
		p.TotalXP += int64(delta)
		if newLevel := s.catalog.LevelFor(p.TotalXP).Level; newLevel > p.Level {
			p.Level = newLevel
			leveledUp = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if eventID == "" {
		// Audit log only; failures must not fail the committed award.
		if _, err := s.store.RecordPointEvent(ctx, models.PointEvent{
			EventID:   uuid.NewString(),
			UserID:    userID,
			EventType: eventType,
			Points:    delta,
		}); err != nil {
			log.Printf("[engagement] failed to record point event for user %d: %v", userID, err)
		}
	}

	res := &models.AwardResult{
		PointsAwarded: delta,
		NewTotalXP:    p.TotalXP,
		LeveledUp:     leveledUp,
		NewLevel:      p.Level,
		Unlocked:      []string{},
	}

	if runCheck {
		unlocked, err := s.CheckAchievements(ctx, userID)
		if err != nil {
			log.Printf("[engagement] achievement check failed for user %d: %v", userID, err)
		}
		for _, def := range unlocked {
			res.Unlocked = append(res.Unlocked, def.ID)
		}
	}

	return res, nil
}
