package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coursenotify/internal/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestFactory() *Factory {
	return NewFactory(func() time.Time { return fixedNow })
}

var (
	course   = &domain.Course{ID: 3, Title: "Software Engineering"}
	exercise = &domain.Exercise{ID: 7, Title: "Patterns", Course: course}
	lecture  = &domain.Lecture{ID: 9, Title: "Intro", Course: course}
	student  = domain.User{ID: 10, Login: "student1", Name: "Student One", Email: "s1@example.org"}
	tutor    = domain.User{ID: 20, Login: "tutor1", Name: "Tutor One", Email: "t1@example.org"}
)

func TestNewReply_TypeFromContext(t *testing.T) {
	f := newTestFactory()
	answer := &domain.AnswerPost{ID: 2, Content: "try this", Author: tutor}

	tests := []struct {
		name string
		post *domain.Post
		want Type
	}{
		{"exercise wins", &domain.Post{ID: 1, Author: student, Exercise: exercise, Lecture: lecture, Course: course}, TypeNewReplyForExercisePost},
		{"lecture before course", &domain.Post{ID: 1, Author: student, Lecture: lecture, Course: course}, TypeNewReplyForLecturePost},
		{"course only", &domain.Post{ID: 1, Author: student, Course: course}, TypeNewReplyForCoursePost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := f.NewReply(tt.post, answer)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Type)
			assert.Equal(t, KindSingle, n.Kind)
			assert.Equal(t, student.ID, n.RecipientID())
			require.NotNil(t, n.Author)
			assert.Equal(t, tutor.ID, n.Author.ID)
			assert.Equal(t, course.ID, n.CourseID)
			assert.Equal(t, fixedNow, n.CreatedAt)

			title, _ := Title(tt.want)
			assert.Equal(t, title, n.Title)
		})
	}
}

func TestNewReply_NoContext(t *testing.T) {
	f := newTestFactory()
	_, err := f.NewReply(&domain.Post{ID: 1, Author: student}, &domain.AnswerPost{Author: tutor})
	require.Error(t, err)
	assert.True(t, IsMissingContext(err))
}

func TestSingle_MissingRecipient(t *testing.T) {
	f := newTestFactory()
	_, err := f.FileSubmissionSuccessful(exercise, domain.User{})
	require.Error(t, err)
	assert.True(t, IsMissingRecipient(err))
}

func TestExerciseSubmissionAssessed(t *testing.T) {
	f := newTestFactory()
	n, err := f.ExerciseSubmissionAssessed(exercise, student, domain.Result{Score: 87.5})
	require.NoError(t, err)
	assert.Equal(t, TypeExerciseSubmissionAssessed, n.Type)
	assert.Contains(t, n.Text, "87.5")
	assert.Equal(t, Subject{CourseTitle: course.Title, ExerciseTitle: exercise.Title}, n.Subject)
	assert.JSONEq(t, `{"entity":"exercises","id":7,"course":3,"message":"exerciseSubmissionAssessed"}`, n.Target)
}

func TestPlagiarism_RequiresCourse(t *testing.T) {
	f := newTestFactory()

	_, err := f.NewPlagiarismCase(&domain.PlagiarismCase{ID: 1, Exercise: &domain.Exercise{ID: 1, Title: "x"}}, student)
	assert.True(t, IsMissingContext(err))

	_, err = f.PlagiarismCaseVerdict(&domain.PlagiarismCase{ID: 1}, student)
	assert.True(t, IsMissingContext(err))

	n, err := f.PlagiarismCaseVerdict(&domain.PlagiarismCase{ID: 1, Exercise: exercise, Verdict: domain.VerdictWarning}, student)
	require.NoError(t, err)
	assert.Equal(t, "Verdict for your plagiarism case", n.Title)
	assert.Contains(t, n.Placeholders, "WARNING")
}

func TestTutorialGroupStudent_RejectsTutorType(t *testing.T) {
	f := newTestFactory()
	group := &domain.TutorialGroup{ID: 5, Title: "TG1", Course: course}

	_, err := f.TutorialGroupStudent(TypeTutorialGroupAssigned, group, student, &tutor)
	assert.True(t, IsUnsupportedType(err))

	n, err := f.TutorialGroupStudent(TypeTutorialGroupRegistrationStudent, group, student, &tutor)
	require.NoError(t, err)
	assert.Equal(t, student.ID, n.RecipientID())
}

func TestTutorialGroupTutor_StudentCounts(t *testing.T) {
	f := newTestFactory()
	group := &domain.TutorialGroup{ID: 5, Title: "TG1", Course: course, TeachingAssistant: &tutor}

	_, err := f.TutorialGroupTutor(TypeTutorialGroupRegistrationTutor, group, nil, nil, tutor)
	assert.True(t, IsMissingContext(err))

	n, err := f.TutorialGroupTutor(TypeTutorialGroupMultipleRegistrationTutor, group, []domain.User{student, {ID: 11, Name: "Two"}}, nil, tutor)
	require.NoError(t, err)
	assert.Contains(t, n.Text, "2 students")

	n, err = f.TutorialGroupTutor(TypeTutorialGroupUnassigned, group, nil, &student, tutor)
	require.NoError(t, err)
	assert.Equal(t, tutor.ID, n.RecipientID())
}

func TestTutorialGroupBroadcast_GroupScope(t *testing.T) {
	f := newTestFactory()
	group := &domain.TutorialGroup{ID: 5, Title: "TG1", Course: course}

	n, err := f.TutorialGroupBroadcast(TypeTutorialGroupUpdated, group, "Room changed")
	require.NoError(t, err)
	assert.Equal(t, KindGroupScope, n.Kind)
	assert.Nil(t, n.Recipient)
	assert.Equal(t, int64(5), n.TutorialGroupID)
	assert.Equal(t, "Room changed", n.Text)

	_, err = f.TutorialGroupBroadcast(TypeTutorialGroupAssigned, group, "")
	assert.True(t, IsUnsupportedType(err))
}

func TestConversation_KindMustMatch(t *testing.T) {
	f := newTestFactory()
	channel := &domain.Conversation{ID: 4, Kind: domain.Channel, Name: "general", Course: course}

	_, err := f.Conversation(TypeConversationCreateGroupChat, channel, student, &tutor)
	assert.True(t, IsUnsupportedType(err))

	_, err = f.Conversation(TypeNewMessageReply, channel, student, &tutor)
	assert.True(t, IsUnsupportedType(err))

	n, err := f.Conversation(TypeConversationAddUserChannel, channel, student, &tutor)
	require.NoError(t, err)
	assert.Equal(t, "You have been added to a channel", n.Title)
	assert.Equal(t, course.ID, n.CourseID)
}

func TestMessageReply(t *testing.T) {
	f := newTestFactory()
	conv := &domain.Conversation{ID: 4, Kind: domain.GroupChat, Course: course}
	answer := &domain.AnswerPost{ID: 8, Content: "ok", Post: &domain.Post{ID: 6, Conversation: conv}}

	n, err := f.MessageReply(answer, student, tutor)
	require.NoError(t, err)
	assert.Equal(t, TypeNewMessageReply, n.Type)
	assert.Equal(t, tutor.ID, n.Author.ID)

	_, err = f.MessageReply(&domain.AnswerPost{Post: &domain.Post{ID: 6}}, student, tutor)
	assert.True(t, IsMissingContext(err))
}
