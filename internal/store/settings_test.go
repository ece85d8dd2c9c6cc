package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coursenotify/internal/notification"
)

func TestSetting_MissingIsNotAnError(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.Setting(context.Background(), 1, notification.CategoryNewPlagiarismCase)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutSetting_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := notification.CategoryConversationMembership

	require.NoError(t, s.PutSetting(ctx, notification.Setting{UserID: 1, Category: c, WebApp: true, Email: true}))
	require.NoError(t, s.PutSetting(ctx, notification.Setting{UserID: 1, Category: c, WebApp: false, Email: true}))

	got, ok, err := s.Setting(ctx, 1, c)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, notification.Setting{UserID: 1, Category: c, WebApp: false, Email: true}, got)

	all, err := s.ListSettings(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPutSetting_InvalidCategory(t *testing.T) {
	s := createTestStore(t)
	err := s.PutSetting(context.Background(), notification.Setting{UserID: 1})
	assert.Error(t, err)
}

func TestDeleteSetting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	c := notification.CategoryTutorialGroupDeleteUpdate

	require.NoError(t, s.PutSetting(ctx, notification.Setting{UserID: 2, Category: c, Email: true}))
	require.NoError(t, s.DeleteSetting(ctx, 2, c))

	_, ok, err := s.Setting(ctx, 2, c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListSettings_OrderedByKey(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutSetting(ctx, notification.Setting{UserID: 3, Category: notification.CategoryNewReplyInConversation, WebApp: true}))
	require.NoError(t, s.PutSetting(ctx, notification.Setting{UserID: 3, Category: notification.CategoryNewReplyForCoursePost}))
	require.NoError(t, s.PutSetting(ctx, notification.Setting{UserID: 4, Category: notification.CategoryNewPlagiarismCase}))

	got, err := s.ListSettings(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, notification.CategoryNewReplyForCoursePost, got[0].Category)
	assert.Equal(t, notification.CategoryNewReplyInConversation, got[1].Category)

	empty, err := s.ListSettings(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
