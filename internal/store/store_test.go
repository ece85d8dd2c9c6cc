package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coursenotify/internal/domain"
	"github.com/roach88/coursenotify/internal/notification"
	"github.com/roach88/coursenotify/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var (
	testCourse   = &domain.Course{ID: 3, Title: "Course"}
	testExercise = &domain.Exercise{ID: 7, Title: "Exercise", Course: testCourse}
	testStudent  = domain.User{ID: 11, Login: "student1", Name: "Student", Email: "s@example.org"}
	testFactory  = notification.NewFactory(func() time.Time {
		return time.Date(2024, 5, 6, 7, 8, 9, 123456789, time.UTC)
	})
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	require.NoError(t, err)
	n, err := testFactory.FileSubmissionSuccessful(testExercise, testStudent)
	require.NoError(t, err)
	_, err = s1.SaveNotification(context.Background(), &n)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	count, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestSaveNotification_AssignsUUIDv7(t *testing.T) {
	s := createTestStore(t)
	n, err := testFactory.FileSubmissionSuccessful(testExercise, testStudent)
	require.NoError(t, err)

	id, err := s.SaveNotification(context.Background(), &n)
	require.NoError(t, err)
	assert.Equal(t, id, n.ID)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSaveNotification_RoundTrip(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(testutil.NewSequentialIDGenerator("n")))
	ctx := context.Background()

	post := &domain.Post{ID: 1, Title: "Q", Author: testStudent, Exercise: testExercise}
	answer := &domain.AnswerPost{ID: 2, Content: "A", Author: domain.User{ID: 12, Login: "tutor", Name: "Tutor"}}
	n, err := testFactory.NewReply(post, answer)
	require.NoError(t, err)

	_, err = s.SaveNotification(ctx, &n)
	require.NoError(t, err)

	got, err := s.ListForRecipient(ctx, testStudent.ID, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, n, got[0])
}

func TestSaveNotification_NoDeduplication(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	n, err := testFactory.FileSubmissionSuccessful(testExercise, testStudent)
	require.NoError(t, err)

	first := n
	second := n
	_, err = s.SaveNotification(ctx, &first)
	require.NoError(t, err)
	_, err = s.SaveNotification(ctx, &second)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveNotification_GroupScope(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	group := &domain.TutorialGroup{ID: 5, Title: "TG", Course: testCourse}
	n, err := testFactory.TutorialGroupBroadcast(notification.TypeTutorialGroupDeleted, group, "")
	require.NoError(t, err)

	_, err = s.SaveNotification(ctx, &n)
	require.NoError(t, err)

	got, err := s.ListForUser(ctx, testStudent.ID, []int64{5}, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, notification.KindGroupScope, got[0].Kind)
	assert.Equal(t, int64(5), got[0].TutorialGroupID)
	assert.Nil(t, got[0].Recipient)
	assert.Equal(t, notification.TypeTutorialGroupDeleted, got[0].Type)
}

func TestListForUser_MergesOwnAndGroupRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mine := &domain.TutorialGroup{ID: 5, Title: "Mine", Course: testCourse}
	other := &domain.TutorialGroup{ID: 6, Title: "Other", Course: testCourse}

	save := func(n notification.Notification, err error) {
		t.Helper()
		require.NoError(t, err)
		_, err = s.SaveNotification(ctx, &n)
		require.NoError(t, err)
	}
	save(testFactory.TutorialGroupBroadcast(notification.TypeTutorialGroupUpdated, mine, "room change"))
	save(testFactory.FileSubmissionSuccessful(testExercise, testStudent))
	save(testFactory.TutorialGroupBroadcast(notification.TypeTutorialGroupDeleted, other, ""))
	save(testFactory.FileSubmissionSuccessful(testExercise, domain.User{ID: 99, Login: "someone"}))

	got, err := s.ListForUser(ctx, testStudent.ID, []int64{5}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, notification.TypeFileSubmissionSuccessful, got[0].Type)
	assert.Equal(t, notification.TypeTutorialGroupUpdated, got[1].Type)

	got, err = s.ListForUser(ctx, testStudent.ID, []int64{5, 6}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, notification.TypeTutorialGroupDeleted, got[0].Type)

	got, err = s.ListForUser(ctx, testStudent.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, notification.KindSingle, got[0].Kind)
}

func TestSaveNotification_Rejects(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.SaveNotification(ctx, &notification.Notification{Kind: notification.KindSingle, Type: "BOGUS"})
	assert.Error(t, err)

	_, err = s.SaveNotification(ctx, &notification.Notification{Kind: notification.KindSingle, Type: notification.TypeNewMessageReply})
	assert.Error(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListForRecipient_NewestFirstWithLimit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		n, err := testFactory.ExerciseSubmissionAssessed(testExercise, testStudent, domain.Result{Score: float64(i)})
		require.NoError(t, err)
		_, err = s.SaveNotification(ctx, &n)
		require.NoError(t, err)
	}

	got, err := s.ListForRecipient(ctx, testStudent.ID, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Contains(t, got[0].Text, "2%")
	assert.Contains(t, got[1].Text, "1%")

	none, err := s.ListForRecipient(ctx, 999, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestSaveNotification_Concurrent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := testFactory.FileSubmissionSuccessful(testExercise, testStudent)
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := s.SaveNotification(ctx, &n); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, count)
}
