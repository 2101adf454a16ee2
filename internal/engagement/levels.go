package engagement

// LevelInfo describes the tier a total XP value falls in.
type LevelInfo struct {
	Level           int     `json:"level"`
	Title           string  `json:"title"`
	ProgressPercent float64 `json:"progress_percent"`
	XPToNext        int64   `json:"xp_to_next"`
}

// LevelFor maps accumulated XP to its tier. Total over all non-negative
// inputs: XP below the first threshold is level 1, XP at or beyond the last
// tier's minXP falls in the open-ended final tier. Monotonic in totalXP.
func (c *Catalog) LevelFor(totalXP int64) LevelInfo {
	if totalXP < 0 {
		totalXP = 0
	}

	tier := c.Levels[0]
	for _, t := range c.Levels {
		if totalXP < t.MinXP {
			break
		}
		tier = t
	}

	if tier.MaxXP < 0 {
		// Final tier has no ceiling.
		return LevelInfo{Level: tier.Level, Title: tier.Title, ProgressPercent: 100, XPToNext: 0}
	}

	span := tier.MaxXP - tier.MinXP + 1
	into := totalXP - tier.MinXP
	return LevelInfo{
		Level:           tier.Level,
		Title:           tier.Title,
		ProgressPercent: float64(into) / float64(span) * 100,
		XPToNext:        tier.MaxXP + 1 - totalXP,
	}
}
