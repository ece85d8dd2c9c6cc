// Package recipient computes who should receive a notification for
// events that concern more than one user.
package recipient

import (
	"github.com/roach88/coursenotify/internal/domain"
)

// SweepPolicy controls which results qualify during an assessed-submission sweep.
type SweepPolicy struct {
	// IncludeAutomaticResults lets a submission with only automatic results
	// qualify. Off by default: only manual assessments notify.
	IncludeAutomaticResults bool
}

// Assessed pairs a student with the result that qualifies them for an
// assessment notification.
type Assessed struct {
	Student domain.User
	Result  domain.Result
}

// AssessedSubmission sweeps an exercise's participations. For each one with
// a submission, the latest submission's latest manual result qualifies; a
// manual result supersedes automatic ones. Students appear at most once, in
// participation order.
func AssessedSubmission(exercise *domain.Exercise, policy SweepPolicy) []Assessed {
	out := []Assessed{}
	if exercise == nil {
		return out
	}
	seen := make(map[int64]bool)
	for _, p := range exercise.Participations {
		if seen[p.Student.ID] {
			continue
		}
		sub, ok := p.LatestSubmission()
		if !ok {
			continue
		}
		result, ok := qualifying(sub, policy)
		if !ok {
			continue
		}
		seen[p.Student.ID] = true
		out = append(out, Assessed{Student: p.Student, Result: result})
	}
	return out
}

func qualifying(sub domain.Submission, policy SweepPolicy) (domain.Result, bool) {
	var (
		manual, auto       domain.Result
		hasManual, hasAuto bool
	)
	// Results are stored oldest first; the last one of each kind wins.
	for _, r := range sub.Results {
		if r.IsManual() {
			manual, hasManual = r, true
		} else {
			auto, hasAuto = r, true
		}
	}
	switch {
	case hasManual:
		return manual, true
	case hasAuto && policy.IncludeAutomaticResults:
		return auto, true
	default:
		return domain.Result{}, false
	}
}

// Explicit deduplicates users by ID, keeping first occurrence order. Users
// with a zero ID are dropped.
func Explicit(users ...domain.User) []domain.User {
	out := make([]domain.User, 0, len(users))
	seen := make(map[int64]bool, len(users))
	for _, u := range users {
		if u.ID == 0 || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}

// TutorialGroupBroadcast returns the registered students of group, plus its
// teaching assistant when contactTutor is set. exclude, typically the acting
// user, is never returned.
func TutorialGroupBroadcast(group *domain.TutorialGroup, contactTutor bool, exclude *domain.User) []domain.User {
	if group == nil {
		return []domain.User{}
	}
	users := make([]domain.User, 0, len(group.RegisteredStudents)+1)
	users = append(users, group.RegisteredStudents...)
	if contactTutor && group.TeachingAssistant != nil {
		users = append(users, *group.TeachingAssistant)
	}
	return without(Explicit(users...), exclude)
}

// ConversationMembersExcept lists a conversation's participants other than actor.
func ConversationMembersExcept(conv *domain.Conversation, actor *domain.User) []domain.User {
	if conv == nil {
		return []domain.User{}
	}
	users := make([]domain.User, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		users = append(users, p.User)
	}
	return without(Explicit(users...), actor)
}

func without(users []domain.User, exclude *domain.User) []domain.User {
	if exclude == nil {
		return users
	}
	out := users[:0]
	for _, u := range users {
		if u.ID != exclude.ID {
			out = append(out, u)
		}
	}
	return out
}
