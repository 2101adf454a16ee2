package database

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

func Connect() (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "engagement_user")
	password := getEnv("DB_PASSWORD", "engagement_password")
	dbname := getEnv("DB_NAME", "engagement")
	sslmode := getEnv("DB_SSLMODE", "disable")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func Migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		username VARCHAR(50) UNIQUE,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS engagement_profiles (
		user_id            BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		total_points       BIGINT NOT NULL DEFAULT 0 CHECK (total_points >= 0),
		total_xp           BIGINT NOT NULL DEFAULT 0 CHECK (total_xp >= 0),
		level              INT NOT NULL DEFAULT 1 CHECK (level >= 1),
		current_streak     INT NOT NULL DEFAULT 0,
		longest_streak     INT NOT NULL DEFAULT 0,
		last_login_date    DATE,
		quizzes_completed  INT NOT NULL DEFAULT 0,
		courses_completed  INT NOT NULL DEFAULT 0,
		perfect_scores     INT NOT NULL DEFAULT 0,
		study_time_minutes INT NOT NULL DEFAULT 0,
		certificates_earned INT NOT NULL DEFAULT 0,
		created_at         TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at         TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS point_events (
		event_id    UUID PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		event_type  VARCHAR(50) NOT NULL,
		points      INT NOT NULL,
		metadata    JSONB,
		created_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS achievements (
		id          BIGSERIAL PRIMARY KEY,
		user_id     BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		achievement VARCHAR(100) NOT NULL,
		earned_at   TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, achievement)
	);

	CREATE TABLE IF NOT EXISTS badges (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		badge      VARCHAR(100) NOT NULL,
		earned_at  TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(user_id, badge)
	);
	`

	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_username ON users(username)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_points ON engagement_profiles(total_points DESC, user_id ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_xp ON engagement_profiles(total_xp DESC, user_id ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_streak ON engagement_profiles(current_streak DESC, user_id ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_last_login ON engagement_profiles(last_login_date)`,
		`CREATE INDEX IF NOT EXISTS idx_point_events_user ON point_events(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_achievements_user ON achievements(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_badges_user ON badges(user_id)`,
	}
	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index failed: %w", err)
		}
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// generateUsernameBase creates a lowercase alphanumeric base from a user's name.
func generateUsernameBase(name string) string {
	var result []byte
	for _, c := range strings.ToLower(name) {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			result = append(result, byte(c))
		}
	}
	if len(result) == 0 {
		return "user"
	}
	if len(result) > 12 {
		result = result[:12]
	}
	return string(result)
}

// rng is a seeded random source for username generation.
var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

// GenerateUsername creates a username from a name by appending random digits.
// Caller should retry on a unique-constraint violation.
func GenerateUsername(name string) string {
	return fmt.Sprintf("%s%04d", generateUsernameBase(name), rng.Intn(10000))
}
