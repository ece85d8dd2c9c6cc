package notification

import (
	"encoding/json"
	"time"

	"github.com/roach88/coursenotify/internal/domain"
)

// Kind tags which variant a Notification is.
type Kind string

const (
	// KindSingle addresses exactly one recipient.
	KindSingle Kind = "single"

	// KindGroupScope is addressed to a tutorial group. Recipients are
	// resolved at delivery time and the record is stored once.
	KindGroupScope Kind = "group"
)

// Subject carries the titles email rendering needs without reloading
// the originating entities.
type Subject struct {
	CourseTitle   string `json:"course_title,omitempty"`
	ExerciseTitle string `json:"exercise_title,omitempty"`
}

// Notification is an immutable record of one event for one recipient (or
// one tutorial group). ID is empty until the store assigns one.
type Notification struct {
	ID           string
	Kind         Kind
	Type         Type
	Title        string
	Text         string
	Placeholders []string
	CreatedAt    time.Time
	Target       string
	CourseID     int64
	Subject      Subject

	// Single only.
	Recipient *domain.User
	Author    *domain.User

	// GroupScope only.
	TutorialGroupID int64
}

// Category returns the preference category of n's type.
func (n Notification) Category() Category {
	c, _ := CategoryOf(n.Type)
	return c
}

// RecipientID returns the recipient's user ID, or 0 for group-scope records.
func (n Notification) RecipientID() int64 {
	if n.Recipient == nil {
		return 0
	}
	return n.Recipient.ID
}

// target is the JSON reference a client follows to open the related entity.
type target struct {
	Entity       string `json:"entity"`
	ID           int64  `json:"id"`
	Course       int64  `json:"course,omitempty"`
	Conversation int64  `json:"conversation,omitempty"`
	Message      string `json:"message"`
}

func (t target) String() string {
	b, err := json.Marshal(t)
	if err != nil {
		// Only plain scalar fields; Marshal cannot fail here.
		panic(err)
	}
	return string(b)
}
