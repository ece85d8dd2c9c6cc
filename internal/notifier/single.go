package notifier

import (
	"context"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/recipient"
)

// NotifyUserAboutNewReply tells the author of post that answer was posted.
func (s *Service) NotifyUserAboutNewReply(ctx context.Context, post *domain.Post, answer *domain.AnswerPost) (dispatch.Report, error) {
	n, err := s.factory.NewReply(post, answer)
	return s.deliver(ctx, n, err)
}

// NotifyUserAboutSuccessfulFileUploadSubmission confirms a file upload.
func (s *Service) NotifyUserAboutSuccessfulFileUploadSubmission(ctx context.Context, exercise *domain.Exercise, to domain.User) (dispatch.Report, error) {
	n, err := s.factory.FileSubmissionSuccessful(exercise, to)
	return s.deliver(ctx, n, err)
}

// CheckNotificationForAssessmentExerciseSubmission notifies to about result
// only when the exercise's assessment due date is unset or already passed.
// notified reports whether anything was delivered.
func (s *Service) CheckNotificationForAssessmentExerciseSubmission(ctx context.Context, exercise *domain.Exercise, to domain.User, result domain.Result) (notified bool, report dispatch.Report, err error) {
	if exercise != nil && exercise.AssessmentDueDate != nil && exercise.AssessmentDueDate.After(s.now()) {
		s.logger.Debug("assessment due date in the future, not notifying",
			"exercise", exercise.ID,
			"recipient", to.ID,
			"due", *exercise.AssessmentDueDate)
		return false, dispatch.Report{}, nil
	}
	report, err = s.NotifyUserAboutAssessedExerciseSubmission(ctx, exercise, to, result)
	return err == nil, report, err
}

// NotifyUserAboutAssessedExerciseSubmission tells to their submission was assessed.
func (s *Service) NotifyUserAboutAssessedExerciseSubmission(ctx context.Context, exercise *domain.Exercise, to domain.User, result domain.Result) (dispatch.Report, error) {
	n, err := s.factory.ExerciseSubmissionAssessed(exercise, to, result)
	return s.deliver(ctx, n, err)
}

// NotifyUsersAboutAssessedExerciseSubmission sweeps every participation of
// exercise and notifies each student with a qualifying result.
func (s *Service) NotifyUsersAboutAssessedExerciseSubmission(ctx context.Context, exercise *domain.Exercise) ([]dispatch.Report, error) {
	assessed := recipient.AssessedSubmission(exercise, s.sweep)
	results := make(map[int64]domain.Result, len(assessed))
	users := make([]domain.User, 0, len(assessed))
	for _, a := range assessed {
		results[a.Student.ID] = a.Result
		users = append(users, a.Student)
	}
	return s.engine.DeliverEach(ctx, func(u domain.User) (notification.Notification, error) {
		return s.factory.ExerciseSubmissionAssessed(exercise, u, results[u.ID])
	}, users)
}

// NotifyUserAboutNewPlagiarismCase informs the accused student.
func (s *Service) NotifyUserAboutNewPlagiarismCase(ctx context.Context, pc *domain.PlagiarismCase, to domain.User) (dispatch.Report, error) {
	n, err := s.factory.NewPlagiarismCase(pc, to)
	return s.deliver(ctx, n, err)
}

// NotifyUserAboutPlagiarismCaseVerdict informs the student of the verdict.
func (s *Service) NotifyUserAboutPlagiarismCaseVerdict(ctx context.Context, pc *domain.PlagiarismCase, to domain.User) (dispatch.Report, error) {
	n, err := s.factory.PlagiarismCaseVerdict(pc, to)
	return s.deliver(ctx, n, err)
}

// NotifyClientAboutConversationCreationOrDeletion sends a membership
// notification of type t to one user. Callers invoke it once per affected
// user.
func (s *Service) NotifyClientAboutConversationCreationOrDeletion(ctx context.Context, conv *domain.Conversation, to domain.User, responsible *domain.User, t notification.Type) (dispatch.Report, error) {
	n, err := s.factory.Conversation(t, conv, to, responsible)
	return s.deliver(ctx, n, err)
}

// NotifyUserAboutNewMessageReply tells to about a reply in a conversation thread.
func (s *Service) NotifyUserAboutNewMessageReply(ctx context.Context, answer *domain.AnswerPost, to domain.User, author domain.User) (dispatch.Report, error) {
	n, err := s.factory.MessageReply(answer, to, author)
	return s.deliver(ctx, n, err)
}

// NotifyConversationMembers sends a membership notification of type t to
// every participant of conv except responsible.
func (s *Service) NotifyConversationMembers(ctx context.Context, conv *domain.Conversation, responsible *domain.User, t notification.Type) ([]dispatch.Report, error) {
	return s.engine.DeliverEach(ctx, func(u domain.User) (notification.Notification, error) {
		return s.factory.Conversation(t, conv, u, responsible)
	}, recipient.ConversationMembersExcept(conv, responsible))
}
