package engagement

import "testing"

func TestDefaultCatalogValid(t *testing.T) {
	if err := DefaultCatalog().Validate(); err != nil {
		t.Fatalf("DefaultCatalog failed validation: %v", err)
	}
}

func TestCatalogValidateRejectsBadLevels(t *testing.T) {
	tests := []struct {
		name   string
		levels []LevelDef
	}{
		{"empty table", nil},
		{"first tier not at zero", []LevelDef{
			{Level: 1, MinXP: 10, MaxXP: -1, Title: "A"},
		}},
		{"gap between tiers", []LevelDef{
			{Level: 1, MinXP: 0, MaxXP: 100, Title: "A"},
			{Level: 2, MinXP: 150, MaxXP: -1, Title: "B"},
		}},
		{"non-contiguous numbering", []LevelDef{
			{Level: 1, MinXP: 0, MaxXP: 100, Title: "A"},
			{Level: 3, MinXP: 101, MaxXP: -1, Title: "B"},
		}},
		{"closed final tier", []LevelDef{
			{Level: 1, MinXP: 0, MaxXP: 100, Title: "A"},
			{Level: 2, MinXP: 101, MaxXP: 500, Title: "B"},
		}},
	}

	for _, tt := range tests {
		c := DefaultCatalog()
		c.Levels = tt.levels
		if err := c.Validate(); err == nil {
			t.Errorf("%s: Validate() passed, want error", tt.name)
		}
	}
}

func TestCatalogValidateRejectsBadAchievements(t *testing.T) {
	c := DefaultCatalog()
	c.Achievements = append(c.Achievements, AchievementDef{
		ID:        "broken",
		Condition: UnlockCondition{Kind: "unknownKind", Threshold: 1},
	})
	if err := c.Validate(); err == nil {
		t.Error("Validate() passed with unknown condition kind, want error")
	}

	c = DefaultCatalog()
	c.Achievements = append(c.Achievements, c.Achievements[0])
	if err := c.Validate(); err == nil {
		t.Error("Validate() passed with duplicate achievement id, want error")
	}

	c = DefaultCatalog()
	c.Achievements = append(c.Achievements, AchievementDef{
		ID:        "bad_stat",
		Condition: UnlockCondition{Kind: CondStatAtLeast, Stat: "nope", Threshold: 1},
	})
	if err := c.Validate(); err == nil {
		t.Error("Validate() passed with unknown stat field, want error")
	}
}

func TestCatalogValidateRejectsNegativePoints(t *testing.T) {
	c := DefaultCatalog()
	c.Points["BAD_EVENT"] = -5
	if err := c.Validate(); err == nil {
		t.Error("Validate() passed with negative point value, want error")
	}
}

func TestParseMetric(t *testing.T) {
	for _, valid := range []string{"points", "xp", "level", "streak", "quizzesCompleted"} {
		if _, err := ParseMetric(valid); err != nil {
			t.Errorf("ParseMetric(%q) = %v, want nil", valid, err)
		}
	}
	// Empty defaults to points.
	m, err := ParseMetric("")
	if err != nil || m != MetricPoints {
		t.Errorf("ParseMetric(\"\") = %v, %v, want points", m, err)
	}
	if _, err := ParseMetric("gems"); err == nil {
		t.Error("ParseMetric(\"gems\") passed, want error")
	}
}
