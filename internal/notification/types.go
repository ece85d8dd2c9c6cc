package notification

// Type identifies the event that triggered a notification.
type Type string

const (
	TypeNewReplyForExercisePost Type = "NEW_REPLY_FOR_EXERCISE_POST"
	TypeNewReplyForLecturePost  Type = "NEW_REPLY_FOR_LECTURE_POST"
	TypeNewReplyForCoursePost   Type = "NEW_REPLY_FOR_COURSE_POST"

	TypeFileSubmissionSuccessful   Type = "FILE_SUBMISSION_SUCCESSFUL"
	TypeExerciseSubmissionAssessed Type = "EXERCISE_SUBMISSION_ASSESSED"

	TypeNewPlagiarismCaseStudent     Type = "NEW_PLAGIARISM_CASE_STUDENT"
	TypePlagiarismCaseVerdictStudent Type = "PLAGIARISM_CASE_VERDICT_STUDENT"

	TypeTutorialGroupRegistrationStudent       Type = "TUTORIAL_GROUP_REGISTRATION_STUDENT"
	TypeTutorialGroupDeregistrationStudent     Type = "TUTORIAL_GROUP_DEREGISTRATION_STUDENT"
	TypeTutorialGroupRegistrationTutor         Type = "TUTORIAL_GROUP_REGISTRATION_TUTOR"
	TypeTutorialGroupMultipleRegistrationTutor Type = "TUTORIAL_GROUP_MULTIPLE_REGISTRATION_TUTOR"
	TypeTutorialGroupDeregistrationTutor       Type = "TUTORIAL_GROUP_DEREGISTRATION_TUTOR"
	TypeTutorialGroupAssigned                  Type = "TUTORIAL_GROUP_ASSIGNED"
	TypeTutorialGroupUnassigned                Type = "TUTORIAL_GROUP_UNASSIGNED"
	TypeTutorialGroupUpdated                   Type = "TUTORIAL_GROUP_UPDATED"
	TypeTutorialGroupDeleted                   Type = "TUTORIAL_GROUP_DELETED"

	TypeConversationCreateOneToOneChat  Type = "CONVERSATION_CREATE_ONE_TO_ONE_CHAT"
	TypeConversationCreateGroupChat     Type = "CONVERSATION_CREATE_GROUP_CHAT"
	TypeConversationAddUserGroupChat    Type = "CONVERSATION_ADD_USER_GROUP_CHAT"
	TypeConversationRemoveUserGroupChat Type = "CONVERSATION_REMOVE_USER_GROUP_CHAT"
	TypeConversationAddUserChannel      Type = "CONVERSATION_ADD_USER_CHANNEL"
	TypeConversationRemoveUserChannel   Type = "CONVERSATION_REMOVE_USER_CHANNEL"
	TypeConversationDeleteChannel       Type = "CONVERSATION_DELETE_CHANNEL"
	TypeNewMessageReply                 Type = "NEW_MESSAGE_REPLY"
)

// typeInfo is one row of the static type table.
type typeInfo struct {
	typ      Type
	title    string
	category Category
}

// typeTable is declaration-ordered; Types() returns this order.
var typeTable = []typeInfo{
	{TypeNewReplyForExercisePost, "New reply for exercise post", CategoryNewReplyForExercisePost},
	{TypeNewReplyForLecturePost, "New reply for lecture post", CategoryNewReplyForLecturePost},
	{TypeNewReplyForCoursePost, "New reply for course-wide post", CategoryNewReplyForCoursePost},

	{TypeFileSubmissionSuccessful, "File submission successful", CategoryFileSubmissionSuccessful},
	{TypeExerciseSubmissionAssessed, "Exercise submission assessed", CategoryExerciseSubmissionAssessed},

	{TypeNewPlagiarismCaseStudent, "New plagiarism case", CategoryNewPlagiarismCase},
	{TypePlagiarismCaseVerdictStudent, "Verdict for your plagiarism case", CategoryPlagiarismCaseVerdict},

	{TypeTutorialGroupRegistrationStudent, "You have been registered to a tutorial group", CategoryTutorialGroupRegistration},
	{TypeTutorialGroupDeregistrationStudent, "You have been deregistered from a tutorial group", CategoryTutorialGroupRegistration},
	{TypeTutorialGroupRegistrationTutor, "A student has been registered to your tutorial group", CategoryTutorRegistration},
	{TypeTutorialGroupMultipleRegistrationTutor, "Multiple students have been registered to your tutorial group", CategoryTutorRegistration},
	{TypeTutorialGroupDeregistrationTutor, "A student has been deregistered from your tutorial group", CategoryTutorRegistration},
	{TypeTutorialGroupAssigned, "You have been assigned to lead a tutorial group", CategoryTutorAssignUnassign},
	{TypeTutorialGroupUnassigned, "You have been unassigned from leading a tutorial group", CategoryTutorAssignUnassign},
	{TypeTutorialGroupUpdated, "Tutorial Group updated", CategoryTutorialGroupDeleteUpdate},
	{TypeTutorialGroupDeleted, "Tutorial Group deleted", CategoryTutorialGroupDeleteUpdate},

	{TypeConversationCreateOneToOneChat, "New one-to-one chat", CategoryConversationMembership},
	{TypeConversationCreateGroupChat, "New group chat", CategoryConversationMembership},
	{TypeConversationAddUserGroupChat, "You have been added to a group chat", CategoryConversationMembership},
	{TypeConversationRemoveUserGroupChat, "You have been removed from a group chat", CategoryConversationMembership},
	{TypeConversationAddUserChannel, "You have been added to a channel", CategoryConversationMembership},
	{TypeConversationRemoveUserChannel, "You have been removed from a channel", CategoryConversationMembership},
	{TypeConversationDeleteChannel, "A channel you were a member of has been deleted", CategoryConversationMembership},
	{TypeNewMessageReply, "New reply for message", CategoryNewReplyInConversation},
}

var (
	byType  = make(map[Type]typeInfo, len(typeTable))
	byTitle = make(map[string]Type, len(typeTable))
)

func init() {
	for _, info := range typeTable {
		if _, dup := byType[info.typ]; dup {
			panic("notification: duplicate type " + string(info.typ))
		}
		if _, dup := byTitle[info.title]; dup {
			panic("notification: duplicate title " + info.title)
		}
		byType[info.typ] = info
		byTitle[info.title] = info.typ
	}
}

// Types returns every notification type in declaration order.
func Types() []Type {
	out := make([]Type, len(typeTable))
	for i, info := range typeTable {
		out[i] = info.typ
	}
	return out
}

// Title returns the human-readable title of t.
func Title(t Type) (string, bool) {
	info, ok := byType[t]
	return info.title, ok
}

// TypeForTitle is the inverse of Title.
func TypeForTitle(title string) (Type, bool) {
	t, ok := byTitle[title]
	return t, ok
}

// CategoryOf returns the preference category governing t.
func CategoryOf(t Type) (Category, bool) {
	info, ok := byType[t]
	return info.category, ok
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	_, ok := byType[t]
	return ok
}

// IsConversation reports whether t is one of the conversation membership types.
func (t Type) IsConversation() bool {
	c, ok := CategoryOf(t)
	return ok && c == CategoryConversationMembership
}
