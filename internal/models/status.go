package models

// TaskStatus is the closed set of states a TaskLog moves through within a day.
// pending -> snoozed may repeat; completed and missed are terminal.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusSnoozed   TaskStatus = "snoozed"
	StatusMissed    TaskStatus = "missed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusSnoozed, StatusMissed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed for the day.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusMissed
}

// Mood is the reflection check-in value.
type Mood string

const (
	MoodGreat Mood = "great"
	MoodOkay  Mood = "okay"
	MoodBad   Mood = "bad"
)

func (m Mood) Valid() bool {
	switch m {
	case MoodGreat, MoodOkay, MoodBad:
		return true
	}
	return false
}
