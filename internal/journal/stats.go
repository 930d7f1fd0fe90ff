package journal

// MoodStats aggregates entry counts per mood.
type MoodStats struct {
	Total int          `json:"total"`
	Moods map[Mood]int `json:"moods"`
}

// CountMoods tallies the mood distribution of a collection. Every mood
// of the enumeration appears in the result, zero-valued when unused, so
// consumers can render a complete breakdown without special cases.
func CountMoods(entries []Entry) MoodStats {
	stats := MoodStats{
		Total: len(entries),
		Moods: map[Mood]int{
			MoodAmazing: 0,
			MoodHappy:   0,
			MoodNeutral: 0,
			MoodSad:     0,
			MoodAwful:   0,
		},
	}
	for _, entry := range entries {
		mood := entry.Mood
		if _, known := stats.Moods[mood]; !known {
			mood = MoodNeutral
		}
		stats.Moods[mood]++
	}
	return stats
}
