package engagement

import (
	"context"
	"testing"
	"time"

	"github.com/learnhub/engagement/internal/models"
)

func TestMemStoreIncrementWaitsForOpenTransaction(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()
	if _, err := store.GetOrCreate(ctx, 1); err != nil {
		t.Fatal(err)
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan struct{})
	go func() {
		defer close(txDone)
		_, err := store.Transact(ctx, 1, func(p *models.EngagementProfile) error {
			close(entered)
			<-release
			p.TotalPoints += 10
			return nil
		})
		if err != nil {
			t.Errorf("Transact: %v", err)
		}
	}()
	<-entered

	incDone := make(chan struct{})
	go func() {
		defer close(incDone)
		if err := store.IncrementStat(ctx, 1, StatQuizzesCompleted, 1); err != nil {
			t.Errorf("IncrementStat: %v", err)
		}
	}()

	// Give the increment a chance to land inside the transaction's window.
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-txDone
	<-incDone

	// Both writes survive: the increment waited like the SQL store's row
	// lock makes it, rather than being overwritten by the write-back.
	p, _ := store.GetOrCreate(ctx, 1)
	if p.TotalPoints != 10 {
		t.Errorf("points = %d, want 10", p.TotalPoints)
	}
	if p.Statistics.QuizzesCompleted != 1 {
		t.Errorf("quizzes = %d, want 1 (increment lost to transaction write-back)", p.Statistics.QuizzesCompleted)
	}
}
