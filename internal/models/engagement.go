package models

import "time"

// ── Core Engagement Structs ───────────────────────────────

// EngagementProfile is the durable per-user progression record. All counters
// are monotonically non-decreasing; Level is derived from TotalXP and must
// never be stored inconsistently with it.
type EngagementProfile struct {
	UserID        int64      `json:"user_id"`
	TotalPoints   int64      `json:"total_points"`
	TotalXP       int64      `json:"total_xp"`
	Level         int        `json:"level"`
	CurrentStreak int        `json:"current_streak"`
	LongestStreak int        `json:"longest_streak"`
	LastLoginDate *time.Time `json:"last_login_date"`
	Statistics    Statistics `json:"statistics"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Statistics holds the additive activity counters. These are the only profile
// fields eligible for fire-and-forget atomic increments.
type Statistics struct {
	QuizzesCompleted   int `json:"quizzes_completed"`
	CoursesCompleted   int `json:"courses_completed"`
	PerfectScores      int `json:"perfect_scores"`
	StudyTimeMinutes   int `json:"total_study_time_minutes"`
	CertificatesEarned int `json:"certificates_earned"`
}

// PointEvent is an append-only audit record of a single award. EventID doubles
// as an idempotency key: re-submitting the same id is a no-op.
type PointEvent struct {
	EventID   string    `json:"event_id"`
	UserID    int64     `json:"user_id"`
	EventType string    `json:"event_type"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// ── Request Types ─────────────────────────────────────────

type AwardRequest struct {
	EventType string `json:"event_type,omitempty"`
	Amount    *int   `json:"amount,omitempty"`
	EventID   string `json:"event_id,omitempty"`
}

type QuizEventRequest struct {
	Perfect bool `json:"perfect"`
}

type StudyEventRequest struct {
	Minutes int `json:"minutes"`
}

// ── Response Types ────────────────────────────────────────

type AwardResult struct {
	PointsAwarded int      `json:"points_awarded"`
	NewTotalXP    int64    `json:"new_total_xp"`
	LeveledUp     bool     `json:"leveled_up"`
	NewLevel      int      `json:"new_level"`
	Unlocked      []string `json:"achievements_unlocked"`
	Duplicate     bool     `json:"duplicate,omitempty"`
}

type StreakResult struct {
	StreakUpdated bool     `json:"streak_updated"`
	NewStreak     int      `json:"new_streak"`
	StreakBonus   int      `json:"streak_bonus"`
	IsFirstLogin  bool     `json:"is_first_login"`
	Unlocked      []string `json:"achievements_unlocked"`
}

type LearningEventResult struct {
	PointsAwarded int      `json:"points_awarded"`
	NewTotalXP    int64    `json:"new_total_xp"`
	LeveledUp     bool     `json:"leveled_up"`
	NewLevel      int      `json:"new_level"`
	Unlocked      []string `json:"achievements_unlocked"`
}

// LeaderboardEntry is a read projection over EngagementProfile; it has no
// independent lifecycle.
type LeaderboardEntry struct {
	Rank              int    `json:"rank"`
	UserID            int64  `json:"user_id"`
	DisplayName       string `json:"display_name"`
	MetricValue       int64  `json:"metric_value"`
	Level             int    `json:"level"`
	AchievementsCount int    `json:"achievements_count"`
	IsCurrentUser     bool   `json:"is_current_user,omitempty"`
}

type LeaderboardResponse struct {
	Metric  string             `json:"metric"`
	Entries []LeaderboardEntry `json:"entries"`
}

// RankResult reports a user's position within the bounded leaderboard window.
// Rank is nil when the user falls outside the window.
type RankResult struct {
	Rank              *int `json:"rank"`
	TotalParticipants int  `json:"total_participants"`
}
