package notification

import (
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/coursenotify/internal/domain"
)

// Factory builds notification records. It never performs I/O.
type Factory struct {
	now func() time.Time
}

// NewFactory returns a Factory stamping CreatedAt with now. A nil now uses
// time.Now.
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{now: now}
}

func (f *Factory) single(t Type, recipient domain.User) (Notification, error) {
	if recipient.ID == 0 {
		return Notification{}, missingRecipient(t)
	}
	title, ok := Title(t)
	if !ok {
		return Notification{}, unsupportedType(t, "unknown notification type")
	}
	r := recipient
	return Notification{
		Kind:      KindSingle,
		Type:      t,
		Title:     title,
		CreatedAt: f.now().UTC(),
		Recipient: &r,
	}, nil
}

// NewReply notifies the author of post about answer. The type follows the
// post's context: exercise first, then lecture, then course.
func (f *Factory) NewReply(post *domain.Post, answer *domain.AnswerPost) (Notification, error) {
	if post == nil {
		return Notification{}, missingContext(TypeNewReplyForCoursePost, "reply has no post")
	}
	if answer == nil {
		return Notification{}, missingContext(TypeNewReplyForCoursePost, "reply has no answer")
	}

	var (
		t      Type
		course *domain.Course
		tgt    target
		place  string
	)
	switch {
	case post.Exercise != nil:
		t = TypeNewReplyForExercisePost
		course = post.Exercise.Course
		place = post.Exercise.Title
		tgt = target{Entity: "exercises", ID: post.Exercise.ID, Message: "newAnswerPost"}
	case post.Lecture != nil:
		t = TypeNewReplyForLecturePost
		course = post.Lecture.Course
		place = post.Lecture.Title
		tgt = target{Entity: "lectures", ID: post.Lecture.ID, Message: "newAnswerPost"}
	case post.Course != nil:
		t = TypeNewReplyForCoursePost
		course = post.Course
		place = post.Course.Title
		tgt = target{Entity: "courses", ID: post.Course.ID, Message: "newAnswerPost"}
	default:
		return Notification{}, missingContext(TypeNewReplyForCoursePost, "post %d has no exercise, lecture or course", post.ID)
	}

	n, err := f.single(t, post.Author)
	if err != nil {
		return Notification{}, err
	}
	author := answer.Author
	n.Author = &author
	n.Text = fmt.Sprintf("Your post %q in %q got a new reply.", post.Title, place)
	n.Placeholders = []string{courseTitle(course), post.Title, post.Content, answer.Content, author.Name}
	if course != nil {
		n.CourseID = course.ID
		tgt.Course = course.ID
		n.Subject.CourseTitle = course.Title
	}
	if post.Exercise != nil {
		n.Subject.ExerciseTitle = post.Exercise.Title
	}
	n.Target = tgt.String()
	return n, nil
}

// FileSubmissionSuccessful confirms a file upload to its submitter.
func (f *Factory) FileSubmissionSuccessful(exercise *domain.Exercise, recipient domain.User) (Notification, error) {
	t := TypeFileSubmissionSuccessful
	if exercise == nil {
		return Notification{}, missingContext(t, "no exercise")
	}
	n, err := f.single(t, recipient)
	if err != nil {
		return Notification{}, err
	}
	n.Text = fmt.Sprintf("Your file for the exercise %q was successfully submitted.", exercise.Title)
	n.Placeholders = []string{courseTitle(exercise.Course), exercise.Title}
	f.exerciseContext(&n, exercise, "exerciseSubmissionSuccessful")
	return n, nil
}

// ExerciseSubmissionAssessed tells a student their submission has a result.
func (f *Factory) ExerciseSubmissionAssessed(exercise *domain.Exercise, recipient domain.User, result domain.Result) (Notification, error) {
	t := TypeExerciseSubmissionAssessed
	if exercise == nil {
		return Notification{}, missingContext(t, "no exercise")
	}
	n, err := f.single(t, recipient)
	if err != nil {
		return Notification{}, err
	}
	score := strconv.FormatFloat(result.Score, 'f', -1, 64)
	n.Text = fmt.Sprintf("Your submission for the exercise %q has been assessed: %s%%.", exercise.Title, score)
	n.Placeholders = []string{courseTitle(exercise.Course), exercise.Title, score}
	f.exerciseContext(&n, exercise, "exerciseSubmissionAssessed")
	return n, nil
}

// NewPlagiarismCase informs a student that a case has been opened.
func (f *Factory) NewPlagiarismCase(pc *domain.PlagiarismCase, recipient domain.User) (Notification, error) {
	return f.plagiarism(TypeNewPlagiarismCaseStudent, pc, recipient,
		"A plagiarism case has been opened for your submission to the exercise %q.")
}

// PlagiarismCaseVerdict informs a student of the case's verdict.
func (f *Factory) PlagiarismCaseVerdict(pc *domain.PlagiarismCase, recipient domain.User) (Notification, error) {
	n, err := f.plagiarism(TypePlagiarismCaseVerdictStudent, pc, recipient,
		"Your plagiarism case for the exercise %q has a verdict.")
	if err != nil {
		return Notification{}, err
	}
	n.Placeholders = append(n.Placeholders, string(pc.Verdict))
	return n, nil
}

func (f *Factory) plagiarism(t Type, pc *domain.PlagiarismCase, recipient domain.User, text string) (Notification, error) {
	if pc == nil || pc.Exercise == nil {
		return Notification{}, missingContext(t, "plagiarism case has no exercise")
	}
	if pc.Exercise.Course == nil {
		return Notification{}, missingContext(t, "exercise %d has no course", pc.Exercise.ID)
	}
	n, err := f.single(t, recipient)
	if err != nil {
		return Notification{}, err
	}
	n.Text = fmt.Sprintf(text, pc.Exercise.Title)
	n.Placeholders = []string{pc.Exercise.Course.Title, pc.Exercise.Title}
	n.CourseID = pc.Exercise.Course.ID
	n.Subject = Subject{CourseTitle: pc.Exercise.Course.Title, ExerciseTitle: pc.Exercise.Title}
	n.Target = target{Entity: "plagiarism-cases", ID: pc.ID, Course: pc.Exercise.Course.ID, Message: "plagiarismCase"}.String()
	return n, nil
}

func (f *Factory) exerciseContext(n *Notification, exercise *domain.Exercise, message string) {
	tgt := target{Entity: "exercises", ID: exercise.ID, Message: message}
	n.Subject.ExerciseTitle = exercise.Title
	if exercise.Course != nil {
		n.CourseID = exercise.Course.ID
		n.Subject.CourseTitle = exercise.Course.Title
		tgt.Course = exercise.Course.ID
	}
	n.Target = tgt.String()
}

// TutorialGroupStudent addresses a student about their own (de)registration.
func (f *Factory) TutorialGroupStudent(t Type, group *domain.TutorialGroup, student domain.User, responsible *domain.User) (Notification, error) {
	switch t {
	case TypeTutorialGroupRegistrationStudent, TypeTutorialGroupDeregistrationStudent:
	default:
		return Notification{}, unsupportedType(t, "not a student tutorial group type")
	}
	if group == nil {
		return Notification{}, missingContext(t, "no tutorial group")
	}
	n, err := f.single(t, student)
	if err != nil {
		return Notification{}, err
	}
	n.Author = copyUser(responsible)
	n.Text = fmt.Sprintf("%s: %q.", n.Title, group.Title)
	n.Placeholders = []string{courseTitle(group.Course), group.Title, userName(responsible)}
	f.groupContext(&n, group, "tutorialGroupRegistration")
	return n, nil
}

// TutorialGroupTutor addresses the tutor about students joining or leaving,
// or about being (un)assigned to lead the group.
func (f *Factory) TutorialGroupTutor(t Type, group *domain.TutorialGroup, students []domain.User, responsible *domain.User, recipient domain.User) (Notification, error) {
	switch t {
	case TypeTutorialGroupRegistrationTutor, TypeTutorialGroupDeregistrationTutor:
		if len(students) != 1 {
			return Notification{}, missingContext(t, "expected exactly one student, got %d", len(students))
		}
	case TypeTutorialGroupMultipleRegistrationTutor:
		if len(students) == 0 {
			return Notification{}, missingContext(t, "no students registered")
		}
	case TypeTutorialGroupAssigned, TypeTutorialGroupUnassigned:
	default:
		return Notification{}, unsupportedType(t, "not a tutor tutorial group type")
	}
	if group == nil {
		return Notification{}, missingContext(t, "no tutorial group")
	}
	n, err := f.single(t, recipient)
	if err != nil {
		return Notification{}, err
	}
	n.Author = copyUser(responsible)
	n.Placeholders = []string{courseTitle(group.Course), group.Title, userName(responsible)}
	switch t {
	case TypeTutorialGroupRegistrationTutor, TypeTutorialGroupDeregistrationTutor:
		n.Text = fmt.Sprintf("%s: %s in %q.", n.Title, students[0].Name, group.Title)
		n.Placeholders = append(n.Placeholders, students[0].Name)
	case TypeTutorialGroupMultipleRegistrationTutor:
		n.Text = fmt.Sprintf("%d students have been registered to %q.", len(students), group.Title)
		n.Placeholders = append(n.Placeholders, strconv.Itoa(len(students)))
	default:
		n.Text = fmt.Sprintf("%s: %q.", n.Title, group.Title)
	}
	f.groupContext(&n, group, "tutorialGroupTutor")
	return n, nil
}

// TutorialGroupBroadcast builds the single group-scope record for a group
// update or deletion.
func (f *Factory) TutorialGroupBroadcast(t Type, group *domain.TutorialGroup, text string) (Notification, error) {
	switch t {
	case TypeTutorialGroupUpdated, TypeTutorialGroupDeleted:
	default:
		return Notification{}, unsupportedType(t, "not a tutorial group broadcast type")
	}
	if group == nil {
		return Notification{}, missingContext(t, "no tutorial group")
	}
	title, _ := Title(t)
	n := Notification{
		Kind:            KindGroupScope,
		Type:            t,
		Title:           title,
		CreatedAt:       f.now().UTC(),
		TutorialGroupID: group.ID,
		Text:            text,
		Placeholders:    []string{courseTitle(group.Course), group.Title},
	}
	if n.Text == "" {
		n.Text = fmt.Sprintf("%s: %q.", title, group.Title)
	}
	f.groupContext(&n, group, "tutorialGroup")
	return n, nil
}

func (f *Factory) groupContext(n *Notification, group *domain.TutorialGroup, message string) {
	tgt := target{Entity: "tutorial-groups", ID: group.ID, Message: message}
	if group.Course != nil {
		n.CourseID = group.Course.ID
		n.Subject.CourseTitle = group.Course.Title
		tgt.Course = group.Course.ID
	}
	n.Target = tgt.String()
}

// conversationKinds lists the conversation kind each membership type applies to.
var conversationKinds = map[Type]domain.ConversationKind{
	TypeConversationCreateOneToOneChat:  domain.OneToOneChat,
	TypeConversationCreateGroupChat:     domain.GroupChat,
	TypeConversationAddUserGroupChat:    domain.GroupChat,
	TypeConversationRemoveUserGroupChat: domain.GroupChat,
	TypeConversationAddUserChannel:      domain.Channel,
	TypeConversationRemoveUserChannel:   domain.Channel,
	TypeConversationDeleteChannel:       domain.Channel,
}

// Conversation builds a membership notification. t must match the
// conversation's kind.
func (f *Factory) Conversation(t Type, conv *domain.Conversation, recipient domain.User, responsible *domain.User) (Notification, error) {
	kind, ok := conversationKinds[t]
	if !ok {
		return Notification{}, unsupportedType(t, "not a conversation membership type")
	}
	if conv == nil {
		return Notification{}, missingContext(t, "no conversation")
	}
	if conv.Kind != kind {
		return Notification{}, unsupportedType(t, "conversation %d is a %s, want %s", conv.ID, conv.Kind, kind)
	}
	n, err := f.single(t, recipient)
	if err != nil {
		return Notification{}, err
	}
	n.Author = copyUser(responsible)
	name := conversationName(conv)
	n.Text = fmt.Sprintf("%s: %s.", n.Title, name)
	n.Placeholders = []string{courseTitle(conv.Course), name, userName(responsible)}
	tgt := target{Entity: "conversations", ID: conv.ID, Conversation: conv.ID, Message: "conversation"}
	if conv.Course != nil {
		n.CourseID = conv.Course.ID
		n.Subject.CourseTitle = conv.Course.Title
		tgt.Course = conv.Course.ID
	}
	n.Target = tgt.String()
	return n, nil
}

// MessageReply notifies recipient about a reply in a conversation thread.
func (f *Factory) MessageReply(answer *domain.AnswerPost, recipient domain.User, author domain.User) (Notification, error) {
	t := TypeNewMessageReply
	if answer == nil || answer.Post == nil || answer.Post.Conversation == nil {
		return Notification{}, missingContext(t, "reply is not part of a conversation")
	}
	conv := answer.Post.Conversation
	n, err := f.single(t, recipient)
	if err != nil {
		return Notification{}, err
	}
	a := author
	n.Author = &a
	name := conversationName(conv)
	n.Text = fmt.Sprintf("%s replied to a message in %s.", author.Name, name)
	n.Placeholders = []string{courseTitle(conv.Course), answer.Post.Content, answer.Content, author.Name, name}
	tgt := target{Entity: "message", ID: answer.Post.ID, Conversation: conv.ID, Message: "newMessageReply"}
	if conv.Course != nil {
		n.CourseID = conv.Course.ID
		n.Subject.CourseTitle = conv.Course.Title
		tgt.Course = conv.Course.ID
	}
	n.Target = tgt.String()
	return n, nil
}

func conversationName(c *domain.Conversation) string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("conversation %d", c.ID)
}

func courseTitle(c *domain.Course) string {
	if c == nil {
		return ""
	}
	return c.Title
}

func userName(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func copyUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
