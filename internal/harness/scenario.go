package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/coursenotify/internal/notification"
)

// Scenario is one replayable sequence of course events.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Policy is optional inline CUE overriding category defaults and the
	// sweep policy.
	Policy string `yaml:"policy,omitempty"`

	World    World     `yaml:"world"`
	Settings []Setting `yaml:"settings,omitempty"`

	// FailEmail and FailPush make delivery to the listed user IDs fail.
	FailEmail []int64 `yaml:"fail_email,omitempty"`
	FailPush  []int64 `yaml:"fail_push,omitempty"`

	Events     []Event     `yaml:"events"`
	Assertions []Assertion `yaml:"assertions"`
}

// World holds the entities events refer to by ID.
type World struct {
	Users           []User           `yaml:"users"`
	Courses         []Course         `yaml:"courses,omitempty"`
	Exercises       []Exercise       `yaml:"exercises,omitempty"`
	Lectures        []Lecture        `yaml:"lectures,omitempty"`
	Posts           []Post           `yaml:"posts,omitempty"`
	Answers         []Answer         `yaml:"answers,omitempty"`
	PlagiarismCases []PlagiarismCase `yaml:"plagiarism_cases,omitempty"`
	TutorialGroups  []TutorialGroup  `yaml:"tutorial_groups,omitempty"`
	Conversations   []Conversation   `yaml:"conversations,omitempty"`
}

type User struct {
	ID    int64  `yaml:"id"`
	Login string `yaml:"login"`
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

type Course struct {
	ID    int64  `yaml:"id"`
	Title string `yaml:"title"`
}

type Exercise struct {
	ID                int64           `yaml:"id"`
	Title             string          `yaml:"title"`
	Course            int64           `yaml:"course,omitempty"`
	AssessmentDueDate *time.Time      `yaml:"assessment_due_date,omitempty"`
	Participations    []Participation `yaml:"participations,omitempty"`
}

type Participation struct {
	Student     int64        `yaml:"student"`
	Submissions []Submission `yaml:"submissions,omitempty"`
}

type Submission struct {
	SubmittedAt *time.Time   `yaml:"submitted_at,omitempty"`
	Results     []ResultSpec `yaml:"results,omitempty"`
}

// ResultSpec is one assessment result of a scenario submission.
type ResultSpec struct {
	Score      float64 `yaml:"score"`
	Assessment string  `yaml:"assessment"`
}

type Lecture struct {
	ID     int64  `yaml:"id"`
	Title  string `yaml:"title"`
	Course int64  `yaml:"course,omitempty"`
}

// Post is placed in exactly one of exercise, lecture, course or conversation.
type Post struct {
	ID           int64  `yaml:"id"`
	Title        string `yaml:"title,omitempty"`
	Content      string `yaml:"content"`
	Author       int64  `yaml:"author"`
	Exercise     int64  `yaml:"exercise,omitempty"`
	Lecture      int64  `yaml:"lecture,omitempty"`
	Course       int64  `yaml:"course,omitempty"`
	Conversation int64  `yaml:"conversation,omitempty"`
}

type Answer struct {
	ID      int64  `yaml:"id"`
	Content string `yaml:"content"`
	Author  int64  `yaml:"author"`
	Post    int64  `yaml:"post"`
}

type PlagiarismCase struct {
	ID       int64  `yaml:"id"`
	Exercise int64  `yaml:"exercise"`
	Student  int64  `yaml:"student"`
	Verdict  string `yaml:"verdict,omitempty"`
}

type TutorialGroup struct {
	ID       int64   `yaml:"id"`
	Title    string  `yaml:"title"`
	Course   int64   `yaml:"course,omitempty"`
	Tutor    int64   `yaml:"tutor,omitempty"`
	Students []int64 `yaml:"students,omitempty"`
}

type Conversation struct {
	ID           int64   `yaml:"id"`
	Kind         string  `yaml:"kind"`
	Name         string  `yaml:"name,omitempty"`
	Course       int64   `yaml:"course,omitempty"`
	Creator      int64   `yaml:"creator,omitempty"`
	Participants []int64 `yaml:"participants,omitempty"`
}

// Setting is a stored preference, keyed by the category's stable key.
type Setting struct {
	User     int64  `yaml:"user"`
	Category string `yaml:"category"`
	WebApp   bool   `yaml:"webapp"`
	Email    bool   `yaml:"email"`
}

// Event is one producer call. Which fields matter depends on Event.
type Event struct {
	Event string `yaml:"event"`

	User         int64   `yaml:"user,omitempty"`
	Users        []int64 `yaml:"users,omitempty"`
	Recipients   []int64 `yaml:"recipients,omitempty"`
	Responsible  int64   `yaml:"responsible,omitempty"`
	Exercise     int64   `yaml:"exercise,omitempty"`
	Case         int64   `yaml:"case,omitempty"`
	Group        int64   `yaml:"group,omitempty"`
	Conversation int64   `yaml:"conversation,omitempty"`
	Post         int64   `yaml:"post,omitempty"`
	Answer       int64   `yaml:"answer,omitempty"`
	Type         string  `yaml:"type,omitempty"`
	Text         string  `yaml:"text,omitempty"`
	ContactTutor bool    `yaml:"contact_tutor,omitempty"`
	Score        float64 `yaml:"score,omitempty"`
	Assessment   string  `yaml:"assessment,omitempty"`

	// ExpectError is the error code the event must fail with.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Event names.
const (
	EventNewReply              = "new_reply"
	EventFileSubmission        = "file_submission"
	EventAssessmentCheck       = "assessment_check"
	EventAssessed              = "assessed"
	EventAssessedSweep         = "assessed_sweep"
	EventNewPlagiarismCase     = "new_plagiarism_case"
	EventPlagiarismVerdict     = "plagiarism_verdict"
	EventConversation          = "conversation"
	EventConversationMembers   = "conversation_members"
	EventMessageReply          = "message_reply"
	EventStudentRegistration   = "tutorial_group_student_registration"
	EventStudentDeregistration = "tutorial_group_student_deregistration"
	EventTutorRegistration     = "tutorial_group_tutor_registration"
	EventTutorDeregistration   = "tutorial_group_tutor_deregistration"
	EventMultipleRegistration  = "tutorial_group_multiple_registration"
	EventTutorAssigned         = "tutorial_group_assigned"
	EventTutorUnassigned       = "tutorial_group_unassigned"
	EventTutorialGroupUpdate   = "tutorial_group_update"
	EventTutorialGroupDelete   = "tutorial_group_delete"
)

var knownEvents = map[string]bool{
	EventNewReply: true, EventFileSubmission: true, EventAssessmentCheck: true,
	EventAssessed: true, EventAssessedSweep: true, EventNewPlagiarismCase: true,
	EventPlagiarismVerdict: true, EventConversation: true, EventConversationMembers: true,
	EventMessageReply: true, EventStudentRegistration: true, EventStudentDeregistration: true,
	EventTutorRegistration: true, EventTutorDeregistration: true, EventMultipleRegistration: true,
	EventTutorAssigned: true, EventTutorUnassigned: true, EventTutorialGroupUpdate: true,
	EventTutorialGroupDelete: true,
}

// Assertion checks the outcome after all events ran.
type Assertion struct {
	Type    string `yaml:"type"`
	User    int64  `yaml:"user,omitempty"`
	Count   int    `yaml:"count,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// Assertion type constants.
const (
	AssertNotificationCount = "notification_count"
	AssertPushCount         = "push_count"
	AssertEmailCount        = "email_count"
	AssertEmailSubject      = "email_subject"
)

// LoadScenario reads a scenario file. Unknown fields are rejected so typos
// surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	users := make(map[int64]bool, len(s.World.Users))
	for i, u := range s.World.Users {
		if u.ID <= 0 {
			return fmt.Errorf("world.users[%d]: id must be positive", i)
		}
		if users[u.ID] {
			return fmt.Errorf("world.users[%d]: duplicate id %d", i, u.ID)
		}
		users[u.ID] = true
	}

	for i, st := range s.Settings {
		if !users[st.User] {
			return fmt.Errorf("settings[%d]: unknown user %d", i, st.User)
		}
		if _, err := notification.ParseCategory(st.Category); err != nil {
			return fmt.Errorf("settings[%d]: %w", i, err)
		}
	}

	for i, ev := range s.Events {
		if !knownEvents[ev.Event] {
			return fmt.Errorf("events[%d]: unknown event %q", i, ev.Event)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertNotificationCount, AssertPushCount, AssertEmailCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertEmailSubject:
		if a.User == 0 || a.Subject == "" {
			return fmt.Errorf("assertions[%d]: user and subject are required for email_subject", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
