package notification

import "fmt"

// Category groups notification types for preference lookup. Users toggle
// settings per category, not per type.
type Category int

const (
	categoryUnknown Category = iota
	CategoryNewReplyForExercisePost
	CategoryNewReplyForLecturePost
	CategoryNewReplyForCoursePost
	CategoryFileSubmissionSuccessful
	CategoryExerciseSubmissionAssessed
	CategoryNewPlagiarismCase
	CategoryPlagiarismCaseVerdict
	CategoryTutorialGroupRegistration
	CategoryTutorialGroupDeleteUpdate
	CategoryTutorRegistration
	CategoryTutorAssignUnassign
	CategoryConversationMembership
	CategoryNewReplyInConversation
	categoryEnd
)

// Defaults is the pair of delivery switches applied when a user has no
// stored setting for a category.
type Defaults struct {
	WebApp bool
	Email  bool
}

type categoryInfo struct {
	key      string
	defaults Defaults
}

var categoryTable = [categoryEnd]categoryInfo{
	categoryUnknown: {key: ""},

	CategoryNewReplyForExercisePost:    {"notification.exercise-notification.new-reply-for-exercise-post", Defaults{WebApp: true}},
	CategoryNewReplyForLecturePost:     {"notification.lecture-notification.new-reply-for-lecture-post", Defaults{WebApp: true}},
	CategoryNewReplyForCoursePost:      {"notification.course-wide-discussion.new-reply-for-course-post", Defaults{WebApp: true}},
	CategoryFileSubmissionSuccessful:   {"notification.exercise-notification.file-submission-successful", Defaults{WebApp: true}},
	CategoryExerciseSubmissionAssessed: {"notification.exercise-notification.exercise-submission-assessed", Defaults{WebApp: true, Email: true}},
	CategoryNewPlagiarismCase:          {"notification.user-notification.new-plagiarism-case", Defaults{WebApp: true, Email: true}},
	CategoryPlagiarismCaseVerdict:      {"notification.user-notification.plagiarism-case-verdict", Defaults{WebApp: true, Email: true}},
	CategoryTutorialGroupRegistration:  {"notification.tutorial-group-notification.tutorial-group-registration", Defaults{WebApp: true}},
	CategoryTutorialGroupDeleteUpdate:  {"notification.tutorial-group-notification.tutorial-group-delete-update", Defaults{WebApp: true}},
	CategoryTutorRegistration:          {"notification.tutor-notification.tutorial-group-registration", Defaults{WebApp: true}},
	CategoryTutorAssignUnassign:        {"notification.tutor-notification.tutorial-group-assign-unassign", Defaults{WebApp: true}},
	CategoryConversationMembership:     {"notification.user-notification.conversation-membership", Defaults{WebApp: true}},
	CategoryNewReplyInConversation:     {"notification.user-notification.new-reply-in-conversation", Defaults{WebApp: true}},
}

var categoryByKey = func() map[string]Category {
	m := make(map[string]Category, categoryEnd)
	for c := Category(1); c < categoryEnd; c++ {
		m[categoryTable[c].key] = c
	}
	return m
}()

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, categoryEnd-1)
	for c := Category(1); c < categoryEnd; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory resolves a stable category key.
func ParseCategory(key string) (Category, error) {
	c, ok := categoryByKey[key]
	if !ok {
		return categoryUnknown, fmt.Errorf("unknown notification category %q", key)
	}
	return c, nil
}

// Valid reports whether c is a declared category.
func (c Category) Valid() bool {
	return c > categoryUnknown && c < categoryEnd
}

// Key returns the stable identifier stored alongside user settings.
func (c Category) Key() string {
	if !c.Valid() {
		return ""
	}
	return categoryTable[c].key
}

// Defaults returns the compiled-in delivery defaults of c.
func (c Category) Defaults() Defaults {
	if !c.Valid() {
		return Defaults{}
	}
	return categoryTable[c].defaults
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return c.Key()
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid notification category %d", int(c))
	}
	return []byte(c.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Setting is a user's stored delivery preference for one category.
type Setting struct {
	UserID   int64    `json:"user_id"`
	Category Category `json:"category"`
	WebApp   bool     `json:"webapp"`
	Email    bool     `json:"email"`
}
