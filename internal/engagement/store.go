package engagement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/learnhub/engagement/internal/models"
)

// Metric selects the profile field a leaderboard is ordered by.
type Metric string

const (
	MetricPoints  Metric = "points"
	MetricXP      Metric = "xp"
	MetricLevel   Metric = "level"
	MetricStreak  Metric = "streak"
	MetricQuizzes Metric = "quizzesCompleted"
)

// ParseMetric validates a caller-supplied metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricPoints, MetricXP, MetricLevel, MetricStreak, MetricQuizzes:
		return Metric(s), nil
	case "":
		return MetricPoints, nil
	}
	return "", fmt.Errorf("unknown leaderboard metric %q", s)
}

// Store is the persistence surface all profile mutations go through.
//
// Contract: GetOrCreate lazily initializes a default profile. IncrementStat
// is atomic per call and is only legal for the additive statistics counters.
// Transact runs fn against an isolated read of the profile and commits every
// change fn made or none of them; concurrent Transact calls on the same user
// must not both succeed with stale reads. UnlockAchievement and AwardBadge
// are set-union writes: they report whether the id was newly inserted, making
// double-unlock structurally impossible.
type Store interface {
	GetOrCreate(ctx context.Context, userID int64) (*models.EngagementProfile, error)
	IncrementStat(ctx context.Context, userID int64, stat StatField, delta int) error
	Transact(ctx context.Context, userID int64, fn func(p *models.EngagementProfile) error) (*models.EngagementProfile, error)

	Achievements(ctx context.Context, userID int64) ([]string, error)
	UnlockAchievement(ctx context.Context, userID int64, id string) (bool, error)
	Badges(ctx context.Context, userID int64) ([]string, error)
	AwardBadge(ctx context.Context, userID int64, id string) (bool, error)

	// RecordPointEvent appends to the award audit log. It reports false when
	// the event id was already recorded (idempotent replay).
	RecordPointEvent(ctx context.Context, ev models.PointEvent) (bool, error)

	// ReleasePointEvent removes a reserved event id whose award never
	// committed, so a retry of the same id can apply.
	ReleasePointEvent(ctx context.Context, eventID string) error

	Leaderboard(ctx context.Context, metric Metric, limit int) ([]models.LeaderboardEntry, error)
	CountProfiles(ctx context.Context) (int, error)

	// StreaksAtRisk counts profiles whose streak lapses unless they log in on
	// the given day. Read-only; feeds the nightly report.
	StreaksAtRisk(ctx context.Context, today time.Time) (int, error)
}

// ── Postgres Implementation ─────────────────────────────

const transactRetries = 3

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const profileColumns = `user_id, total_points, total_xp, level,
	current_streak, longest_streak, last_login_date,
	quizzes_completed, courses_completed, perfect_scores,
	study_time_minutes, certificates_earned,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.EngagementProfile, error) {
	var p models.EngagementProfile
	err := row.Scan(&p.UserID, &p.TotalPoints, &p.TotalXP, &p.Level,
		&p.CurrentStreak, &p.LongestStreak, &p.LastLoginDate,
		&p.Statistics.QuizzesCompleted, &p.Statistics.CoursesCompleted, &p.Statistics.PerfectScores,
		&p.Statistics.StudyTimeMinutes, &p.Statistics.CertificatesEarned,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLStore) GetOrCreate(ctx context.Context, userID int64) (*models.EngagementProfile, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO engagement_profiles (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return nil, storageErr("upsert profile", err)
	}

	p, err := scanProfile(s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM engagement_profiles WHERE user_id = $1`,
		userID,
	))
	if err != nil {
		return nil, storageErr("get profile", err)
	}
	return p, nil
}

// statColumn whitelists the additive counters eligible for blind increments.
var statColumn = map[StatField]string{
	StatQuizzesCompleted:   "quizzes_completed",
	StatCoursesCompleted:   "courses_completed",
	StatPerfectScores:      "perfect_scores",
	StatStudyTimeMinutes:   "study_time_minutes",
	StatCertificatesEarned: "certificates_earned",
}

func (s *SQLStore) IncrementStat(ctx context.Context, userID int64, stat StatField, delta int) error {
	col, ok := statColumn[stat]
	if !ok {
		return fmt.Errorf("stat %q is not an additive counter", stat)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE engagement_profiles SET `+col+` = `+col+` + $2, updated_at = NOW()
		 WHERE user_id = $1`,
		userID, delta,
	)
	if err != nil {
		return storageErr("increment "+col, err)
	}
	return nil
}

// Transact runs fn inside a row-locked read-modify-write on the profile.
// Derived fields (level, streaks) must only ever be written through here.
// Lost races are retried up to transactRetries times before surfacing as
// ErrStorageUnavailable.
func (s *SQLStore) Transact(ctx context.Context, userID int64, fn func(p *models.EngagementProfile) error) (*models.EngagementProfile, error) {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < transactRetries; attempt++ {
		p, err := s.transactOnce(ctx, userID, fn)
		if err == nil {
			return p, nil
		}
		if !retryableConflict(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: transaction retries exhausted: %v", ErrStorageUnavailable, lastErr)
}

func (s *SQLStore) transactOnce(ctx context.Context, userID int64, fn func(p *models.EngagementProfile) error) (*models.EngagementProfile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin", err)
	}
	defer tx.Rollback()

	p, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM engagement_profiles WHERE user_id = $1 FOR UPDATE`,
		userID,
	))
	if err != nil {
		return nil, storageErr("lock profile", err)
	}

	if err := fn(p); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE engagement_profiles SET
		    total_points = $2, total_xp = $3, level = $4,
		    current_streak = $5, longest_streak = $6, last_login_date = $7,
		    quizzes_completed = $8, courses_completed = $9, perfect_scores = $10,
		    study_time_minutes = $11, certificates_earned = $12,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		userID, p.TotalPoints, p.TotalXP, p.Level,
		p.CurrentStreak, p.LongestStreak, p.LastLoginDate,
		p.Statistics.QuizzesCompleted, p.Statistics.CoursesCompleted, p.Statistics.PerfectScores,
		p.Statistics.StudyTimeMinutes, p.Statistics.CertificatesEarned,
	)
	if err != nil {
		return nil, storageErr("write profile", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit", err)
	}
	return p, nil
}

// retryableConflict reports whether err is a serialization failure or deadlock
// worth retrying.
func retryableConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}

// ── Achievements & Badges ───────────────────────────────

func (s *SQLStore) Achievements(ctx context.Context, userID int64) ([]string, error) {
	return s.scanIDs(ctx,
		`SELECT achievement FROM achievements WHERE user_id = $1 ORDER BY earned_at, id`,
		userID)
}

func (s *SQLStore) UnlockAchievement(ctx context.Context, userID int64, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (user_id, achievement) VALUES ($1, $2)
		 ON CONFLICT (user_id, achievement) DO NOTHING`,
		userID, id,
	)
	if err != nil {
		return false, storageErr("unlock achievement", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) Badges(ctx context.Context, userID int64) ([]string, error) {
	return s.scanIDs(ctx,
		`SELECT badge FROM badges WHERE user_id = $1 ORDER BY earned_at, id`,
		userID)
}

func (s *SQLStore) AwardBadge(ctx context.Context, userID int64, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO badges (user_id, badge) VALUES ($1, $2)
		 ON CONFLICT (user_id, badge) DO NOTHING`,
		userID, id,
	)
	if err != nil {
		return false, storageErr("award badge", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) scanIDs(ctx context.Context, query string, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storageErr("list ids", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storageErr("scan id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ── Point Events ────────────────────────────────────────

func (s *SQLStore) RecordPointEvent(ctx context.Context, ev models.PointEvent) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO point_events (event_id, user_id, event_type, points)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (event_id) DO NOTHING`,
		ev.EventID, ev.UserID, ev.EventType, ev.Points,
	)
	if err != nil {
		return false, storageErr("record point event", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLStore) ReleasePointEvent(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM point_events WHERE event_id = $1`,
		eventID,
	)
	if err != nil {
		return storageErr("release point event", err)
	}
	return nil
}

// ── Leaderboard ─────────────────────────────────────────

// metricColumn whitelists the orderable profile columns.
var metricColumn = map[Metric]string{
	MetricPoints:  "total_points",
	MetricXP:      "total_xp",
	MetricLevel:   "level",
	MetricStreak:  "current_streak",
	MetricQuizzes: "quizzes_completed",
}

func (s *SQLStore) Leaderboard(ctx context.Context, metric Metric, limit int) ([]models.LeaderboardEntry, error) {
	col, ok := metricColumn[metric]
	if !ok {
		return nil, fmt.Errorf("unknown leaderboard metric %q", metric)
	}

	// user_id ASC as the tie-break keeps repeated reads of unchanged data in
	// an identical order.
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.user_id, u.name, p.`+col+`, p.level,
		        (SELECT COUNT(*) FROM achievements a WHERE a.user_id = p.user_id)
		 FROM engagement_profiles p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY p.`+col+` DESC, p.user_id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, storageErr("leaderboard", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		var fullName string
		if err := rows.Scan(&e.UserID, &fullName, &e.MetricValue, &e.Level, &e.AchievementsCount); err != nil {
			return nil, storageErr("scan leaderboard entry", err)
		}
		e.DisplayName = displayName(fullName)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) CountProfiles(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM engagement_profiles`).Scan(&n)
	if err != nil {
		return 0, storageErr("count profiles", err)
	}
	return n, nil
}

func (s *SQLStore) StreaksAtRisk(ctx context.Context, today time.Time) (int, error) {
	yesterday := today.AddDate(0, 0, -1)
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM engagement_profiles
		 WHERE current_streak > 0 AND last_login_date = $1`,
		yesterday.Format("2006-01-02"),
	).Scan(&n)
	if err != nil {
		return 0, storageErr("streaks at risk", err)
	}
	return n, nil
}
