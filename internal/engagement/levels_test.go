package engagement

import "testing"

func TestLevelForThresholds(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		xp        int64
		wantLevel int
		wantTitle string
	}{
		{0, 1, "Beginner"},
		{50, 1, "Beginner"},
		{100, 1, "Beginner"},
		{101, 2, "Learner"},
		{250, 2, "Learner"},
		{251, 3, "Student"},
		{1001, 5, "Achiever"},
		{11000, 9, "Master"},
		{11001, 10, "Legend"},
		{500000, 10, "Legend"},
	}

	for _, tt := range tests {
		got := c.LevelFor(tt.xp)
		if got.Level != tt.wantLevel {
			t.Errorf("LevelFor(%d).Level = %d, want %d", tt.xp, got.Level, tt.wantLevel)
		}
		if got.Title != tt.wantTitle {
			t.Errorf("LevelFor(%d).Title = %q, want %q", tt.xp, got.Title, tt.wantTitle)
		}
	}
}

func TestLevelForMonotonic(t *testing.T) {
	c := DefaultCatalog()

	prev := 0
	for xp := int64(0); xp <= 15000; xp += 7 {
		level := c.LevelFor(xp).Level
		if level < prev {
			t.Fatalf("LevelFor not monotonic: level dropped from %d to %d at xp=%d", prev, level, xp)
		}
		prev = level
	}
}

func TestLevelForProgress(t *testing.T) {
	c := DefaultCatalog()

	// Start of level 2: 0% through the tier, 150 XP to level 3.
	got := c.LevelFor(101)
	if got.ProgressPercent != 0 {
		t.Errorf("LevelFor(101).ProgressPercent = %f, want 0", got.ProgressPercent)
	}
	if got.XPToNext != 150 {
		t.Errorf("LevelFor(101).XPToNext = %d, want 150", got.XPToNext)
	}

	// End of level 1: one XP short of the boundary.
	got = c.LevelFor(100)
	if got.XPToNext != 1 {
		t.Errorf("LevelFor(100).XPToNext = %d, want 1", got.XPToNext)
	}

	// Open-ended final tier reports full progress.
	got = c.LevelFor(99999)
	if got.ProgressPercent != 100 || got.XPToNext != 0 {
		t.Errorf("LevelFor(99999) = %+v, want 100%% progress and 0 xp to next", got)
	}
}

func TestLevelForNegativeClamps(t *testing.T) {
	c := DefaultCatalog()
	if got := c.LevelFor(-5).Level; got != 1 {
		t.Errorf("LevelFor(-5).Level = %d, want 1", got)
	}
}
