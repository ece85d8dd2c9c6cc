package domain

import "time"

// User is a platform account that can receive notifications.
type User struct {
	ID    int64
	Login string
	Name  string
	Email string
}

// Course owns exercises, lectures, tutorial groups and conversations.
type Course struct {
	ID    int64
	Title string
}

// Exercise is a graded task inside a course.
type Exercise struct {
	ID     int64
	Title  string
	Course *Course

	// AssessmentDueDate is nil when results may be published immediately.
	AssessmentDueDate *time.Time

	Participations []Participation
}

// Lecture is a unit of course material that can host discussion posts.
type Lecture struct {
	ID     int64
	Title  string
	Course *Course
}

// Post is a discussion thread starter. Exactly which of Exercise, Lecture,
// Course and Conversation are set depends on where it was posted.
type Post struct {
	ID           int64
	Title        string
	Content      string
	Author       User
	Exercise     *Exercise
	Lecture      *Lecture
	Course       *Course
	Conversation *Conversation
	CreatedAt    time.Time
}

// AnswerPost is a reply to a Post.
type AnswerPost struct {
	ID        int64
	Content   string
	Author    User
	Post      *Post
	CreatedAt time.Time
}

// Participation links a student to an exercise.
type Participation struct {
	ID          int64
	Student     User
	Submissions []Submission
}

// LatestSubmission returns the most recently submitted submission.
// Submissions without a timestamp rank below timestamped ones; ties keep the
// later slice position.
func (p Participation) LatestSubmission() (Submission, bool) {
	if len(p.Submissions) == 0 {
		return Submission{}, false
	}
	latest := p.Submissions[0]
	for _, s := range p.Submissions[1:] {
		if !s.submittedBefore(latest) {
			latest = s
		}
	}
	return latest, true
}

// Submission is one hand-in for a participation.
type Submission struct {
	ID          int64
	SubmittedAt *time.Time
	Results     []Result
}

func (s Submission) submittedBefore(other Submission) bool {
	switch {
	case s.SubmittedAt == nil:
		return other.SubmittedAt != nil
	case other.SubmittedAt == nil:
		return false
	default:
		return s.SubmittedAt.Before(*other.SubmittedAt)
	}
}

// AssessmentType says how a result was produced.
type AssessmentType string

const (
	AssessmentAutomatic     AssessmentType = "AUTOMATIC"
	AssessmentSemiAutomatic AssessmentType = "SEMI_AUTOMATIC"
	AssessmentManual        AssessmentType = "MANUAL"
)

// Result is the assessment of a submission.
type Result struct {
	ID             int64
	Score          float64
	CompletionDate *time.Time
	AssessmentType AssessmentType
}

// IsManual reports whether a human was involved in the assessment.
func (r Result) IsManual() bool {
	return r.AssessmentType == AssessmentManual || r.AssessmentType == AssessmentSemiAutomatic
}

// PlagiarismVerdict is the final decision on a plagiarism case.
type PlagiarismVerdict string

const (
	VerdictNone           PlagiarismVerdict = ""
	VerdictPlagiarism     PlagiarismVerdict = "PLAGIARISM"
	VerdictPointDeduction PlagiarismVerdict = "POINT_DEDUCTION"
	VerdictWarning        PlagiarismVerdict = "WARNING"
	VerdictNoPlagiarism   PlagiarismVerdict = "NO_PLAGIARISM"
)

// PlagiarismCase is opened against a student for one exercise.
type PlagiarismCase struct {
	ID       int64
	Exercise *Exercise
	Student  User
	Verdict  PlagiarismVerdict
}

// TutorialGroup is a small teaching group led by a teaching assistant.
type TutorialGroup struct {
	ID                 int64
	Title              string
	Course             *Course
	TeachingAssistant  *User
	RegisteredStudents []User
}

// ConversationKind distinguishes the three conversation shapes.
type ConversationKind string

const (
	OneToOneChat ConversationKind = "ONE_TO_ONE_CHAT"
	GroupChat    ConversationKind = "GROUP_CHAT"
	Channel      ConversationKind = "CHANNEL"
)

// Conversation is a messaging space inside a course.
type Conversation struct {
	ID           int64
	Kind         ConversationKind
	Name         string
	Course       *Course
	Creator      *User
	CreatedAt    time.Time
	Participants []ConversationParticipant
}

// ConversationParticipant is a membership edge between a user and a conversation.
type ConversationParticipant struct {
	User User
}
