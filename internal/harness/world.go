package harness

import (
	"github.com/roach88/coursenotify/internal/domain"
)

// world is the resolved, pointer-linked form of World.
type world struct {
	users         map[int64]domain.User
	courses       map[int64]*domain.Course
	exercises     map[int64]*domain.Exercise
	lectures      map[int64]*domain.Lecture
	posts         map[int64]*domain.Post
	answers       map[int64]*domain.AnswerPost
	cases         map[int64]*domain.PlagiarismCase
	groups        map[int64]*domain.TutorialGroup
	conversations map[int64]*domain.Conversation
}

// build links the entities by ID. Dangling references resolve to nil (or a
// zero User) so events can exercise missing-context paths.
func (w World) build() *world {
	b := &world{
		users:         make(map[int64]domain.User, len(w.Users)),
		courses:       make(map[int64]*domain.Course, len(w.Courses)),
		exercises:     make(map[int64]*domain.Exercise, len(w.Exercises)),
		lectures:      make(map[int64]*domain.Lecture, len(w.Lectures)),
		posts:         make(map[int64]*domain.Post, len(w.Posts)),
		answers:       make(map[int64]*domain.AnswerPost, len(w.Answers)),
		cases:         make(map[int64]*domain.PlagiarismCase, len(w.PlagiarismCases)),
		groups:        make(map[int64]*domain.TutorialGroup, len(w.TutorialGroups)),
		conversations: make(map[int64]*domain.Conversation, len(w.Conversations)),
	}

	for _, u := range w.Users {
		b.users[u.ID] = domain.User{ID: u.ID, Login: u.Login, Name: u.Name, Email: u.Email}
	}
	for _, c := range w.Courses {
		b.courses[c.ID] = &domain.Course{ID: c.ID, Title: c.Title}
	}
	for _, e := range w.Exercises {
		ex := &domain.Exercise{
			ID:                e.ID,
			Title:             e.Title,
			Course:            b.courses[e.Course],
			AssessmentDueDate: e.AssessmentDueDate,
		}
		for i, p := range e.Participations {
			part := domain.Participation{ID: int64(i + 1), Student: b.users[p.Student]}
			for j, s := range p.Submissions {
				sub := domain.Submission{ID: int64(j + 1), SubmittedAt: s.SubmittedAt}
				for k, r := range s.Results {
					sub.Results = append(sub.Results, domain.Result{
						ID:             int64(k + 1),
						Score:          r.Score,
						AssessmentType: domain.AssessmentType(r.Assessment),
					})
				}
				part.Submissions = append(part.Submissions, sub)
			}
			ex.Participations = append(ex.Participations, part)
		}
		b.exercises[e.ID] = ex
	}
	for _, l := range w.Lectures {
		b.lectures[l.ID] = &domain.Lecture{ID: l.ID, Title: l.Title, Course: b.courses[l.Course]}
	}
	for _, c := range w.Conversations {
		conv := &domain.Conversation{
			ID:     c.ID,
			Kind:   domain.ConversationKind(c.Kind),
			Name:   c.Name,
			Course: b.courses[c.Course],
		}
		if creator, ok := b.users[c.Creator]; ok {
			conv.Creator = &creator
		}
		for _, id := range c.Participants {
			conv.Participants = append(conv.Participants, domain.ConversationParticipant{User: b.users[id]})
		}
		b.conversations[c.ID] = conv
	}
	for _, p := range w.Posts {
		b.posts[p.ID] = &domain.Post{
			ID:           p.ID,
			Title:        p.Title,
			Content:      p.Content,
			Author:       b.users[p.Author],
			Exercise:     b.exercises[p.Exercise],
			Lecture:      b.lectures[p.Lecture],
			Course:       b.courses[p.Course],
			Conversation: b.conversations[p.Conversation],
		}
	}
	for _, a := range w.Answers {
		b.answers[a.ID] = &domain.AnswerPost{
			ID:      a.ID,
			Content: a.Content,
			Author:  b.users[a.Author],
			Post:    b.posts[a.Post],
		}
	}
	for _, pc := range w.PlagiarismCases {
		b.cases[pc.ID] = &domain.PlagiarismCase{
			ID:       pc.ID,
			Exercise: b.exercises[pc.Exercise],
			Student:  b.users[pc.Student],
			Verdict:  domain.PlagiarismVerdict(pc.Verdict),
		}
	}
	for _, g := range w.TutorialGroups {
		group := &domain.TutorialGroup{ID: g.ID, Title: g.Title, Course: b.courses[g.Course]}
		if tutor, ok := b.users[g.Tutor]; ok {
			group.TeachingAssistant = &tutor
		}
		group.RegisteredStudents = b.userList(g.Students)
		b.groups[g.ID] = group
	}
	return b
}

func (b *world) userList(ids []int64) []domain.User {
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.users[id])
	}
	return out
}

// userRef returns nil for an unset or unknown ID.
func (b *world) userRef(id int64) *domain.User {
	u, ok := b.users[id]
	if !ok {
		return nil
	}
	return &u
}
