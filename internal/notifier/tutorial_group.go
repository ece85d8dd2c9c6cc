package notifier

import (
	"context"

	"github.com/roach88/coursenotify/internal/dispatch"
	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/recipient"
)

// NotifyStudentAboutRegistrationToTutorialGroup tells student they joined group.
func (s *Service) NotifyStudentAboutRegistrationToTutorialGroup(ctx context.Context, group *domain.TutorialGroup, student domain.User, responsible *domain.User) (dispatch.Report, error) {
	n, err := s.factory.TutorialGroupStudent(notification.TypeTutorialGroupRegistrationStudent, group, student, responsible)
	return s.deliver(ctx, n, err)
}

// NotifyStudentAboutDeregistrationFromTutorialGroup tells student they left group.
func (s *Service) NotifyStudentAboutDeregistrationFromTutorialGroup(ctx context.Context, group *domain.TutorialGroup, student domain.User, responsible *domain.User) (dispatch.Report, error) {
	n, err := s.factory.TutorialGroupStudent(notification.TypeTutorialGroupDeregistrationStudent, group, student, responsible)
	return s.deliver(ctx, n, err)
}

// NotifyTutorAboutRegistrationToTutorialGroup tells the group's tutor that
// student joined.
func (s *Service) NotifyTutorAboutRegistrationToTutorialGroup(ctx context.Context, group *domain.TutorialGroup, student domain.User, responsible *domain.User) (dispatch.Report, error) {
	n, err := s.factory.TutorialGroupTutor(notification.TypeTutorialGroupRegistrationTutor, group, []domain.User{student}, responsible, tutorOf(group))
	return s.deliver(ctx, n, err)
}

// NotifyTutorAboutDeregistrationFromTutorialGroup tells the group's tutor
// that student left.
func (s *Service) NotifyTutorAboutDeregistrationFromTutorialGroup(ctx context.Context, group *domain.TutorialGroup, student domain.User, responsible *domain.User) (dispatch.Report, error) {
	n, err := s.factory.TutorialGroupTutor(notification.TypeTutorialGroupDeregistrationTutor, group, []domain.User{student}, responsible, tutorOf(group))
	return s.deliver(ctx, n, err)
}

// NotifyAboutMultipleRegistrationsToTutorialGroup tells every user in
// recipients that students were registered to group. One record is stored
// per recipient.
func (s *Service) NotifyAboutMultipleRegistrationsToTutorialGroup(ctx context.Context, group *domain.TutorialGroup, students []domain.User, responsible *domain.User, recipients []domain.User) ([]dispatch.Report, error) {
	return s.engine.DeliverEach(ctx, func(u domain.User) (notification.Notification, error) {
		return s.factory.TutorialGroupTutor(notification.TypeTutorialGroupMultipleRegistrationTutor, group, students, responsible, u)
	}, recipient.Explicit(recipients...))
}

// NotifyTutorAboutAssignmentToTutorialGroup tells tutor they now lead group.
func (s *Service) NotifyTutorAboutAssignmentToTutorialGroup(ctx context.Context, group *domain.TutorialGroup, tutor domain.User, responsible *domain.User) (dispatch.Report, error) {
	n, err := s.factory.TutorialGroupTutor(notification.TypeTutorialGroupAssigned, group, nil, responsible, tutor)
	return s.deliver(ctx, n, err)
}

// NotifyTutorAboutUnassignmentFromTutorialGroup tells tutor they no longer lead group.
func (s *Service) NotifyTutorAboutUnassignmentFromTutorialGroup(ctx context.Context, group *domain.TutorialGroup, tutor domain.User, responsible *domain.User) (dispatch.Report, error) {
	n, err := s.factory.TutorialGroupTutor(notification.TypeTutorialGroupUnassigned, group, nil, responsible, tutor)
	return s.deliver(ctx, n, err)
}

// NotifyAboutTutorialGroupUpdate broadcasts an update to the registered
// students, and to the tutor when contactTutor is set. responsible, if
// given, is not notified about their own change.
func (s *Service) NotifyAboutTutorialGroupUpdate(ctx context.Context, group *domain.TutorialGroup, contactTutor bool, text string, responsible *domain.User) ([]dispatch.Report, error) {
	n, err := s.factory.TutorialGroupBroadcast(notification.TypeTutorialGroupUpdated, group, text)
	if err != nil {
		return nil, err
	}
	return s.engine.DeliverGroup(ctx, n, recipient.TutorialGroupBroadcast(group, contactTutor, responsible))
}

// NotifyAboutTutorialGroupDeletion broadcasts a deletion to the registered
// students and the tutor.
func (s *Service) NotifyAboutTutorialGroupDeletion(ctx context.Context, group *domain.TutorialGroup, responsible *domain.User) ([]dispatch.Report, error) {
	n, err := s.factory.TutorialGroupBroadcast(notification.TypeTutorialGroupDeleted, group, "")
	if err != nil {
		return nil, err
	}
	return s.engine.DeliverGroup(ctx, n, recipient.TutorialGroupBroadcast(group, true, responsible))
}

func tutorOf(group *domain.TutorialGroup) domain.User {
	if group == nil || group.TeachingAssistant == nil {
		return domain.User{}
	}
	return *group.TeachingAssistant
}
