package journal

import (
	"errors"
	"fmt"
	"strings"
)

// Mood enumerates the sentiment tags a journal entry can carry.
type Mood string

const (
	// MoodAmazing marks an exceptionally good day.
	MoodAmazing Mood = "amazing"
	// MoodHappy marks a good day.
	MoodHappy Mood = "happy"
	// MoodNeutral is the default when no mood is supplied.
	MoodNeutral Mood = "neutral"
	// MoodSad marks a bad day.
	MoodSad Mood = "sad"
	// MoodAwful marks an exceptionally bad day.
	MoodAwful Mood = "awful"
)

const (
	// ThemeLight is the default presentation theme.
	ThemeLight = "light"
	// ThemeDark is the alternate presentation theme.
	ThemeDark = "dark"
)

var (
	// ErrInvalidMood indicates a mood value outside the fixed enumeration.
	ErrInvalidMood = errors.New("journal: invalid mood")
	// ErrInvalidTheme indicates a theme value outside the fixed enumeration.
	ErrInvalidTheme = errors.New("journal: invalid theme")
)

// ParseMood validates raw input against the fixed mood enumeration.
func ParseMood(rawInput string) (Mood, error) {
	switch Mood(strings.ToLower(strings.TrimSpace(rawInput))) {
	case MoodAmazing:
		return MoodAmazing, nil
	case MoodHappy:
		return MoodHappy, nil
	case MoodNeutral:
		return MoodNeutral, nil
	case MoodSad:
		return MoodSad, nil
	case MoodAwful:
		return MoodAwful, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMood, rawInput)
	}
}

// ParseTheme validates raw input against the fixed theme enumeration.
func ParseTheme(rawInput string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, rawInput)
	}
}

// Entry is one dated, mood-tagged journal record. ID and Date are
// assigned by the service at creation time and never change afterwards.
type Entry struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Mood    Mood   `json:"mood"`
}

// EntryPatch carries the caller-editable fields of an entry. A nil
// field means "keep the existing value"; ID and Date are not patchable.
type EntryPatch struct {
	Content *string `json:"content,omitempty"`
	Mood    *Mood   `json:"mood,omitempty"`
}

// Apply merges the patch over an existing entry. Present fields
// overwrite, absent fields keep the stored value.
func (p EntryPatch) Apply(existing Entry) Entry {
	merged := existing
	if p.Content != nil {
		merged.Content = *p.Content
	}
	if p.Mood != nil {
		merged.Mood = *p.Mood
	}
	return merged
}

// CustomTexts holds the user-overridable display text slots. An empty
// slot falls back to its hardcoded default during merge.
type CustomTexts struct {
	AppTitle        string `json:"appTitle"`
	AppSubtitle     string `json:"appSubtitle"`
	HeroTitle       string `json:"heroTitle"`
	HeroSubtitle    string `json:"heroSubtitle"`
	StartButtonText string `json:"startButtonText"`
}

// Settings is the single global configuration record. The boolean
// flags are pointers so a stored record can distinguish "explicitly
// false" from "absent, use the default".
type Settings struct {
	Theme              string      `json:"theme"`
	AutoSave           *bool       `json:"autoSave"`
	ShowMoodOnCalendar *bool       `json:"showMoodOnCalendar"`
	CustomTexts        CustomTexts `json:"customTexts"`
}

// BackupEnvelope is the transient export/import snapshot of the two
// persisted collections. On import a nil Entries or Settings field
// leaves the corresponding collection untouched; a present field
// replaces it wholesale. An explicitly empty Entries slice is a valid
// wipe and must stay distinguishable from nil, so neither field uses
// omitempty.
type BackupEnvelope struct {
	Entries    []Entry   `json:"entries"`
	Settings   *Settings `json:"settings"`
	ExportDate string    `json:"exportDate"`
}

const backupFilePrefix = "daily-life-backup-"

// BackupFileName derives the backup download filename from an export
// timestamp, keeping only the calendar date portion.
func BackupFileName(exportDate string) string {
	datePart := exportDate
	if len(datePart) > 10 {
		datePart = datePart[:10]
	}
	return backupFilePrefix + datePart + ".json"
}

// DefaultSettings returns the hardcoded first-run settings record.
func DefaultSettings() Settings {
	autoSave := true
	showMood := true
	return Settings{
		Theme:              ThemeLight,
		AutoSave:           &autoSave,
		ShowMoodOnCalendar: &showMood,
		CustomTexts: CustomTexts{
			AppTitle:        "Daily Life",
			AppSubtitle:     "Record your days, one entry at a time",
			HeroTitle:       "How was your day?",
			HeroSubtitle:    "Capture the moment before it fades",
			StartButtonText: "Start writing",
		},
	}
}

// MergeSettings fills every absent field of a stored settings record
// from the hardcoded defaults, including the nested custom text slots.
// The merge is field-by-field; a whole-object replacement would drop
// defaults for slots the stored record never mentions.
func MergeSettings(stored Settings) Settings {
	merged := DefaultSettings()
	if theme, err := ParseTheme(stored.Theme); err == nil {
		merged.Theme = theme
	}
	if stored.AutoSave != nil {
		value := *stored.AutoSave
		merged.AutoSave = &value
	}
	if stored.ShowMoodOnCalendar != nil {
		value := *stored.ShowMoodOnCalendar
		merged.ShowMoodOnCalendar = &value
	}
	merged.CustomTexts = mergeCustomTexts(stored.CustomTexts, merged.CustomTexts)
	return merged
}

func mergeCustomTexts(stored, defaults CustomTexts) CustomTexts {
	merged := defaults
	if stored.AppTitle != "" {
		merged.AppTitle = stored.AppTitle
	}
	if stored.AppSubtitle != "" {
		merged.AppSubtitle = stored.AppSubtitle
	}
	if stored.HeroTitle != "" {
		merged.HeroTitle = stored.HeroTitle
	}
	if stored.HeroSubtitle != "" {
		merged.HeroSubtitle = stored.HeroSubtitle
	}
	if stored.StartButtonText != "" {
		merged.StartButtonText = stored.StartButtonText
	}
	return merged
}
