package engagement

import (
	"context"
	"strings"

	"github.com/learnhub/engagement/internal/models"
)

// rankWindow bounds the ordered set RankOf searches; users outside it get no
// rank rather than an approximation.
const rankWindow = 100

const defaultLeaderboardLimit = 20

// Leaderboard returns the top profiles ordered descending by the chosen
// metric, ties broken by ascending user id so repeated reads of unchanged
// data return identical order. Eventually consistent: entries may lag a
// just-committed award.
func (s *Service) Leaderboard(ctx context.Context, metric string, limit int) (*models.LeaderboardResponse, error) {
	m, err := ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > rankWindow {
		limit = rankWindow
	}

	entries, err := s.store.Leaderboard(ctx, m, limit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}

	return &models.LeaderboardResponse{Metric: string(m), Entries: entries}, nil
}

// UserRank locates the user inside the bounded top window. Rank is nil when
// the user falls outside it.
func (s *Service) UserRank(ctx context.Context, userID int64, metric string) (*models.RankResult, error) {
	m, err := ParseMetric(metric)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountProfiles(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.Leaderboard(ctx, m, rankWindow)
	if err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.UserID == userID {
			rank := i + 1
			return &models.RankResult{Rank: &rank, TotalParticipants: total}, nil
		}
	}
	return &models.RankResult{Rank: nil, TotalParticipants: total}, nil
}

// displayName projects a full name to "First L." so leaderboard entries never
// expose another user's full surname.
func displayName(full string) string {
	parts := strings.Fields(full)
	if len(parts) <= 1 {
		return full
	}
	last := []rune(parts[len(parts)-1])
	return parts[0] + " " + string(last[0]) + "."
}
