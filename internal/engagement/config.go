package engagement

import "fmt"

// ── Event Types ───────────────────────────────────────────

// Event types the point awarder resolves through the catalog.
const (
	EventQuizCompleted   = "QUIZ_COMPLETED"
	EventQuizPerfect     = "QUIZ_PERFECT_SCORE"
	EventLessonCompleted = "LESSON_COMPLETED"
	EventCourseCompleted = "COURSE_COMPLETED"
	EventStudySession    = "STUDY_SESSION"
	EventCertificate     = "CERTIFICATE_EARNED"
	EventDailyLogin      = "DAILY_LOGIN"
	EventFirstLogin      = "FIRST_LOGIN"
	EventStreakMilestone = "STREAK_MILESTONE"
	EventAchievement     = "ACHIEVEMENT_UNLOCKED"
	EventManualAward     = "MANUAL_AWARD"
)

// ── Catalog Types ─────────────────────────────────────────

// StatField names a statistics counter an unlock condition can reference.
type StatField string

const (
	StatQuizzesCompleted   StatField = "quizzesCompleted"
	StatCoursesCompleted   StatField = "coursesCompleted"
	StatPerfectScores      StatField = "perfectScores"
	StatStudyTimeMinutes   StatField = "totalStudyTimeMinutes"
	StatCertificatesEarned StatField = "certificatesEarned"
)

// ConditionKind is the closed set of unlock predicate kinds.
type ConditionKind string

const (
	CondStatAtLeast   ConditionKind = "statCounterAtLeast"
	CondStreakAtLeast ConditionKind = "streakAtLeast"
	CondLevelAtLeast  ConditionKind = "levelAtLeast"
	CondPointsAtLeast ConditionKind = "totalPointsAtLeast"
)

type UnlockCondition struct {
	Kind      ConditionKind
	Stat      StatField // statCounterAtLeast only
	Threshold int64
}

// AchievementDef defines a single one-time unlockable achievement.
type AchievementDef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Bonus       int    `json:"bonus"`
	Condition   UnlockCondition
}

// BadgeDef defines a badge. Badges follow the same union-only discipline as
// achievements but carry no point bonus.
type BadgeDef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Condition UnlockCondition
}

// LevelDef is one tier of the level table. MaxXP of -1 marks the open-ended
// final tier.
type LevelDef struct {
	Level int
	MinXP int64
	MaxXP int64
	Title string
}

// Catalog holds the static engine configuration: point values per event type,
// the level threshold table, streak milestone bonuses and the achievement and
// badge definitions. It is constructed once at process start, validated, and
// never mutated afterwards.
type Catalog struct {
	Points           map[string]int
	Levels           []LevelDef
	StreakMilestones map[int]int
	Achievements     []AchievementDef
	Badges           []BadgeDef
}

// PointsFor resolves an event type to its configured point value.
func (c *Catalog) PointsFor(eventType string) (int, bool) {
	v, ok := c.Points[eventType]
	return v, ok
}

// Validate checks the catalog for startup-time configuration errors. A catalog
// that fails validation must never be handed to the engine.
func (c *Catalog) Validate() error {
	for ev, pts := range c.Points {
		if pts < 0 {
			return fmt.Errorf("catalog: negative point value %d for event %s", pts, ev)
		}
	}

	if len(c.Levels) == 0 {
		return fmt.Errorf("catalog: level table is empty")
	}
	if c.Levels[0].MinXP != 0 {
		return fmt.Errorf("catalog: first level tier must start at 0 XP, got %d", c.Levels[0].MinXP)
	}
	for i, t := range c.Levels {
		if t.Level != i+1 {
			return fmt.Errorf("catalog: level tiers must be numbered contiguously from 1, tier %d has level %d", i, t.Level)
		}
		last := i == len(c.Levels)-1
		if last {
			if t.MaxXP != -1 {
				return fmt.Errorf("catalog: final level tier must be open-ended (maxXP -1), got %d", t.MaxXP)
			}
			continue
		}
		if t.MaxXP < t.MinXP {
			return fmt.Errorf("catalog: level %d has maxXP %d below minXP %d", t.Level, t.MaxXP, t.MinXP)
		}
		if c.Levels[i+1].MinXP != t.MaxXP+1 {
			return fmt.Errorf("catalog: gap between level %d (maxXP %d) and level %d (minXP %d)",
				t.Level, t.MaxXP, c.Levels[i+1].Level, c.Levels[i+1].MinXP)
		}
	}

	seen := make(map[string]bool)
	for _, a := range c.Achievements {
		if a.ID == "" {
			return fmt.Errorf("catalog: achievement with empty id")
		}
		if seen[a.ID] {
			return fmt.Errorf("catalog: duplicate achievement id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Bonus < 0 {
			return fmt.Errorf("catalog: achievement %q has negative bonus", a.ID)
		}
		if err := validateCondition(a.Condition); err != nil {
			return fmt.Errorf("catalog: achievement %q: %w", a.ID, err)
		}
	}
	for _, b := range c.Badges {
		if b.ID == "" {
			return fmt.Errorf("catalog: badge with empty id")
		}
		if err := validateCondition(b.Condition); err != nil {
			return fmt.Errorf("catalog: badge %q: %w", b.ID, err)
		}
	}

	for days, bonus := range c.StreakMilestones {
		if days < 2 || bonus < 0 {
			return fmt.Errorf("catalog: invalid streak milestone %d → %d", days, bonus)
		}
	}

	return nil
}

func validateCondition(cond UnlockCondition) error {
	switch cond.Kind {
	case CondStatAtLeast:
		switch cond.Stat {
		case StatQuizzesCompleted, StatCoursesCompleted, StatPerfectScores,
			StatStudyTimeMinutes, StatCertificatesEarned:
		default:
			return fmt.Errorf("unknown stat field %q", cond.Stat)
		}
	case CondStreakAtLeast, CondLevelAtLeast, CondPointsAtLeast:
	default:
		return fmt.Errorf("unknown condition kind %q", cond.Kind)
	}
	if cond.Threshold < 1 {
		return fmt.Errorf("threshold must be positive, got %d", cond.Threshold)
	}
	return nil
}

// ── Default Catalog ───────────────────────────────────────

// DefaultCatalog returns the production point table, level thresholds and
// achievement/badge definitions.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Points: map[string]int{
			EventQuizCompleted:   10,
			EventQuizPerfect:     25,
			EventLessonCompleted: 15,
			EventCourseCompleted: 50,
			EventStudySession:    5,
			EventCertificate:     100,
			EventDailyLogin:      5,
			EventFirstLogin:      20,
		},
		Levels: []LevelDef{
			{Level: 1, MinXP: 0, MaxXP: 100, Title: "Beginner"},
			{Level: 2, MinXP: 101, MaxXP: 250, Title: "Learner"},
			{Level: 3, MinXP: 251, MaxXP: 500, Title: "Student"},
			{Level: 4, MinXP: 501, MaxXP: 1000, Title: "Scholar"},
			{Level: 5, MinXP: 1001, MaxXP: 2000, Title: "Achiever"},
			{Level: 6, MinXP: 2001, MaxXP: 3500, Title: "Specialist"},
			{Level: 7, MinXP: 3501, MaxXP: 5500, Title: "Expert"},
			{Level: 8, MinXP: 5501, MaxXP: 8000, Title: "Mentor"},
			{Level: 9, MinXP: 8001, MaxXP: 11000, Title: "Master"},
			{Level: 10, MinXP: 11001, MaxXP: -1, Title: "Legend"},
		},
		StreakMilestones: map[int]int{
			3:  15,
			7:  50,
			30: 200,
		},
		Achievements: []AchievementDef{
			{ID: "first_steps", Name: "First Steps", Description: "Complete your first quiz", Bonus: 25,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatQuizzesCompleted, Threshold: 1}},
			{ID: "quiz_10", Name: "Quiz Regular", Description: "Complete 10 quizzes", Bonus: 50,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatQuizzesCompleted, Threshold: 10}},
			{ID: "quiz_50", Name: "Quiz Machine", Description: "Complete 50 quizzes", Bonus: 150,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatQuizzesCompleted, Threshold: 50}},
			{ID: "perfect_5", Name: "Perfectionist", Description: "Score 5 perfect quizzes", Bonus: 100,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatPerfectScores, Threshold: 5}},
			{ID: "course_1", Name: "Course Finisher", Description: "Complete your first course", Bonus: 75,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatCoursesCompleted, Threshold: 1}},
			{ID: "course_5", Name: "Curriculum Crusher", Description: "Complete 5 courses", Bonus: 200,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatCoursesCompleted, Threshold: 5}},
			{ID: "study_600", Name: "Deep Diver", Description: "Study for 10 hours total", Bonus: 100,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatStudyTimeMinutes, Threshold: 600}},
			{ID: "certified", Name: "Certified", Description: "Earn your first certificate", Bonus: 150,
				Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatCertificatesEarned, Threshold: 1}},
			{ID: "streak_3", Name: "Getting Started", Description: "3-day login streak", Bonus: 25,
				Condition: UnlockCondition{Kind: CondStreakAtLeast, Threshold: 3}},
			{ID: "streak_7", Name: "Week Warrior", Description: "7-day login streak", Bonus: 75,
				Condition: UnlockCondition{Kind: CondStreakAtLeast, Threshold: 7}},
			{ID: "streak_30", Name: "Monthly Master", Description: "30-day login streak", Bonus: 300,
				Condition: UnlockCondition{Kind: CondStreakAtLeast, Threshold: 30}},
			{ID: "level_5", Name: "Achiever", Description: "Reach level 5", Bonus: 100,
				Condition: UnlockCondition{Kind: CondLevelAtLeast, Threshold: 5}},
			{ID: "level_10", Name: "Legend", Description: "Reach level 10", Bonus: 500,
				Condition: UnlockCondition{Kind: CondLevelAtLeast, Threshold: 10}},
			{ID: "points_1000", Name: "Rising Star", Description: "Earn 1,000 total points", Bonus: 50,
				Condition: UnlockCondition{Kind: CondPointsAtLeast, Threshold: 1000}},
			{ID: "points_10000", Name: "Powerhouse", Description: "Earn 10,000 total points", Bonus: 250,
				Condition: UnlockCondition{Kind: CondPointsAtLeast, Threshold: 10000}},
		},
		Badges: []BadgeDef{
			{ID: "badge_scholar", Name: "Scholar", Condition: UnlockCondition{Kind: CondLevelAtLeast, Threshold: 4}},
			{ID: "badge_expert", Name: "Expert", Condition: UnlockCondition{Kind: CondLevelAtLeast, Threshold: 7}},
			{ID: "badge_dedicated", Name: "Dedicated", Condition: UnlockCondition{Kind: CondStreakAtLeast, Threshold: 14}},
			{ID: "badge_graduate", Name: "Graduate", Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: StatCertificatesEarned, Threshold: 3}},
		},
	}
}
