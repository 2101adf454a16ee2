package engagement

import (
	"context"
	"testing"

	"github.com/learnhub/engagement/internal/models"
)

func seedPoints(t *testing.T, store *MemStore, userID int64, points int64) {
	t.Helper()
	_, err := store.Transact(context.Background(), userID, func(p *models.EngagementProfile) error {
		p.TotalPoints = points
		p.TotalXP = points
		return nil
	})
	if err != nil {
		t.Fatalf("seed user %d: %v", userID, err)
	}
}

func TestLeaderboardOrderAndRanks(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	seedPoints(t, store, 1, 50)
	seedPoints(t, store, 2, 200)
	seedPoints(t, store, 3, 120)

	res, err := svc.Leaderboard(ctx, "points", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(res.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(res.Entries))
	}

	wantOrder := []int64{2, 3, 1}
	for i, e := range res.Entries {
		if e.UserID != wantOrder[i] {
			t.Errorf("entry %d user = %d, want %d", i, e.UserID, wantOrder[i])
		}
		if e.Rank != i+1 {
			t.Errorf("entry %d rank = %d, want %d", i, e.Rank, i+1)
		}
	}
}

func TestLeaderboardDeterministicTieBreak(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	seedPoints(t, store, 7, 100)
	seedPoints(t, store, 3, 100)
	seedPoints(t, store, 5, 100)

	first, err := svc.Leaderboard(ctx, "points", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	second, err := svc.Leaderboard(ctx, "points", 10)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}

	wantOrder := []int64{3, 5, 7}
	for i := range wantOrder {
		if first.Entries[i].UserID != wantOrder[i] {
			t.Errorf("entry %d user = %d, want %d (ties break by user id)", i, first.Entries[i].UserID, wantOrder[i])
		}
		if second.Entries[i].UserID != first.Entries[i].UserID {
			t.Errorf("entry %d differs between identical reads: %d vs %d", i, first.Entries[i].UserID, second.Entries[i].UserID)
		}
	}
}

func TestLeaderboardMetrics(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	// User 1 leads on streak, user 2 on quizzes completed.
	if _, err := store.Transact(ctx, 1, func(p *models.EngagementProfile) error {
		p.CurrentStreak = 9
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetOrCreate(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := store.IncrementStat(ctx, 2, StatQuizzesCompleted, 4); err != nil {
		t.Fatal(err)
	}

	byStreak, err := svc.Leaderboard(ctx, "streak", 10)
	if err != nil {
		t.Fatalf("Leaderboard(streak): %v", err)
	}
	if byStreak.Entries[0].UserID != 1 || byStreak.Entries[0].MetricValue != 9 {
		t.Errorf("streak leader = %+v, want user 1 at 9", byStreak.Entries[0])
	}

	byQuizzes, err := svc.Leaderboard(ctx, "quizzesCompleted", 10)
	if err != nil {
		t.Fatalf("Leaderboard(quizzesCompleted): %v", err)
	}
	if byQuizzes.Entries[0].UserID != 2 || byQuizzes.Entries[0].MetricValue != 4 {
		t.Errorf("quiz leader = %+v, want user 2 at 4", byQuizzes.Entries[0])
	}

	if _, err := svc.Leaderboard(ctx, "gems", 10); err == nil {
		t.Error("Leaderboard(gems) passed, want error")
	}
}

func TestLeaderboardDefaultLimit(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	for i := int64(1); i <= 30; i++ {
		seedPoints(t, store, i, 1000-i)
	}

	res, err := svc.Leaderboard(ctx, "", 0)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(res.Entries) != defaultLeaderboardLimit {
		t.Errorf("got %d entries, want default %d", len(res.Entries), defaultLeaderboardLimit)
	}
	if res.Metric != "points" {
		t.Errorf("metric = %q, want points default", res.Metric)
	}
}

func TestUserRankInsideWindow(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	seedPoints(t, store, 1, 50)
	seedPoints(t, store, 2, 200)
	seedPoints(t, store, 3, 120)

	res, err := svc.UserRank(ctx, 3, "points")
	if err != nil {
		t.Fatalf("UserRank: %v", err)
	}
	if res.Rank == nil || *res.Rank != 2 {
		t.Errorf("rank = %v, want 2", res.Rank)
	}
	if res.TotalParticipants != 3 {
		t.Errorf("total participants = %d, want 3", res.TotalParticipants)
	}
}

func TestUserRankOutsideWindow(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	// 105 users; the five lowest scorers fall outside the 100-entry window.
	for i := int64(1); i <= 105; i++ {
		seedPoints(t, store, i, 1000-i)
	}

	res, err := svc.UserRank(ctx, 105, "points")
	if err != nil {
		t.Fatalf("UserRank: %v", err)
	}
	if res.Rank != nil {
		t.Errorf("rank = %d, want nil outside the window", *res.Rank)
	}
	if res.TotalParticipants != 105 {
		t.Errorf("total participants = %d, want 105", res.TotalParticipants)
	}

	inWindow, err := svc.UserRank(ctx, 100, "points")
	if err != nil {
		t.Fatalf("UserRank: %v", err)
	}
	if inWindow.Rank == nil || *inWindow.Rank != 100 {
		t.Errorf("rank = %v, want 100", inWindow.Rank)
	}
}

func TestDisplayNameProjection(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ada Lovelace", "Ada L."},
		{"Prince", "Prince"},
		{"Mary Jane Watson", "Mary W."},
		{"  Grace   Hopper  ", "Grace H."},
		{"", ""},
	}

	for _, tt := range tests {
		if got := displayName(tt.name); got != tt.want {
			t.Errorf("displayName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestUserRankUnknownUser(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	seedPoints(t, store, 1, 10)

	res, err := svc.UserRank(ctx, 99, "points")
	if err != nil {
		t.Fatalf("UserRank: %v", err)
	}
	if res.Rank != nil {
		t.Errorf("rank = %d for user with no profile, want nil", *res.Rank)
	}
}
