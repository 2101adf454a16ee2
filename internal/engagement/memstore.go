package engagement

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/learnhub/engagement/internal/models"
)

// MemStore is an in-memory Store used by the test suite and for local
// development without Postgres. Transact serializes writers per user the same
// way the SQL store's row lock does, so the concurrency semantics match.
type MemStore struct {
	mu           sync.Mutex
	profiles     map[int64]*models.EngagementProfile
	names        map[int64]string
	achievements map[int64][]string
	badges       map[int64][]string
	events       map[string]models.PointEvent
	userLocks    map[int64]*sync.Mutex

	// Now supplies server-assigned timestamps; overridable in tests.
	Now func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		profiles:     make(map[int64]*models.EngagementProfile),
		names:        make(map[int64]string),
		achievements: make(map[int64][]string),
		badges:       make(map[int64][]string),
		events:       make(map[string]models.PointEvent),
		userLocks:    make(map[int64]*sync.Mutex),
		Now:          time.Now,
	}
}

// SetName registers a display name for leaderboard projections.
func (s *MemStore) SetName(userID int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[userID] = name
}

func (s *MemStore) lockFor(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

func (s *MemStore) getOrCreateLocked(userID int64) *models.EngagementProfile {
	p, ok := s.profiles[userID]
	if !ok {
		now := s.Now()
		p = &models.EngagementProfile{UserID: userID, Level: 1, CreatedAt: now, UpdatedAt: now}
		s.profiles[userID] = p
	}
	return p
}

func copyProfile(p *models.EngagementProfile) *models.EngagementProfile {
	cp := *p
	if p.LastLoginDate != nil {
		d := *p.LastLoginDate
		cp.LastLoginDate = &d
	}
	return &cp
}

func (s *MemStore) GetOrCreate(ctx context.Context, userID int64) (*models.EngagementProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyProfile(s.getOrCreateLocked(userID)), nil
}

func (s *MemStore) IncrementStat(ctx context.Context, userID int64, stat StatField, delta int) error {
	// Like the SQL store's row lock, an increment waits out any open
	// transaction on the same user instead of landing inside its window.
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.getOrCreateLocked(userID)
	switch stat {
	case StatQuizzesCompleted:
		p.Statistics.QuizzesCompleted += delta
	case StatCoursesCompleted:
		p.Statistics.CoursesCompleted += delta
	case StatPerfectScores:
		p.Statistics.PerfectScores += delta
	case StatStudyTimeMinutes:
		p.Statistics.StudyTimeMinutes += delta
	case StatCertificatesEarned:
		p.Statistics.CertificatesEarned += delta
	}
	p.UpdatedAt = s.Now()
	return nil
}

func (s *MemStore) Transact(ctx context.Context, userID int64, fn func(p *models.EngagementProfile) error) (*models.EngagementProfile, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	cp := copyProfile(s.getOrCreateLocked(userID))
	s.mu.Unlock()

	if err := fn(cp); err != nil {
		return nil, err
	}

	s.mu.Lock()
	cp.UpdatedAt = s.Now()
	s.profiles[userID] = copyProfile(cp)
	s.mu.Unlock()
	return cp, nil
}

func (s *MemStore) Achievements(ctx context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.achievements[userID]...), nil
}

func (s *MemStore) UnlockAchievement(ctx context.Context, userID int64, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, held := range s.achievements[userID] {
		if held == id {
			return false, nil
		}
	}
	s.achievements[userID] = append(s.achievements[userID], id)
	return true, nil
}

func (s *MemStore) Badges(ctx context.Context, userID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.badges[userID]...), nil
}

func (s *MemStore) AwardBadge(ctx context.Context, userID int64, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, held := range s.badges[userID] {
		if held == id {
			return false, nil
		}
	}
	s.badges[userID] = append(s.badges[userID], id)
	return true, nil
}

func (s *MemStore) RecordPointEvent(ctx context.Context, ev models.PointEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.events[ev.EventID]; dup {
		return false, nil
	}
	ev.CreatedAt = s.Now()
	s.events[ev.EventID] = ev
	return true, nil
}

func (s *MemStore) ReleasePointEvent(ctx context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, eventID)
	return nil
}

func (s *MemStore) Leaderboard(ctx context.Context, metric Metric, limit int) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	var entries []models.LeaderboardEntry
	for id, p := range s.profiles {
		name := s.names[id]
		entries = append(entries, models.LeaderboardEntry{
			UserID:            id,
			DisplayName:       displayName(name),
			MetricValue:       metricValue(p, metric),
			Level:             p.Level,
			AchievementsCount: len(s.achievements[id]),
		})
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].MetricValue != entries[j].MetricValue {
			return entries[i].MetricValue > entries[j].MetricValue
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func metricValue(p *models.EngagementProfile, metric Metric) int64 {
	switch metric {
	case MetricXP:
		return p.TotalXP
	case MetricLevel:
		return int64(p.Level)
	case MetricStreak:
		return int64(p.CurrentStreak)
	case MetricQuizzes:
		return int64(p.Statistics.QuizzesCompleted)
	default:
		return p.TotalPoints
	}
}

func (s *MemStore) CountProfiles(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles), nil
}

func (s *MemStore) StreaksAtRisk(ctx context.Context, today time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	yesterday := today.AddDate(0, 0, -1)
	n := 0
	for _, p := range s.profiles {
		if p.CurrentStreak > 0 && p.LastLoginDate != nil && sameDay(*p.LastLoginDate, yesterday) {
			n++
		}
	}
	return n, nil
}
