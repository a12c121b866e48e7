package services

import (
	"errors"
	"testing"
	"time"

	"blogpin-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPinRequiresActiveSubscription(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user := createTestUser(t, env.db, "nopin@test.com")
	post := createTestPost(t, env.db, user.ID, models.PostPublished)

	_, err := env.pins.Pin(user.ID, post.ID)
	assert.True(t, errors.Is(err, ErrSubscriptionRequired))
}

func TestPinRequiresOwnPublishedPost(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user := createTestUser(t, env.db, "pinrules@test.com")
	other := createTestUser(t, env.db, "otherauthor@test.com")
	plan := createTestPlan(t, env.db, "Monthly", 1200, 30)
	checkoutAndPay(t, env, user, plan)

	_, err := env.pins.Pin(user.ID, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, ErrNotFound))

	foreign := createTestPost(t, env.db, other.ID, models.PostPublished)
	_, err = env.pins.Pin(user.ID, foreign.ID)
	assert.True(t, errors.Is(err, ErrForbidden))

	draft := createTestPost(t, env.db, user.ID, models.PostDraft)
	_, err = env.pins.Pin(user.ID, draft.ID)
	assert.True(t, errors.Is(err, ErrForbidden))
}

func TestPinReplacesPreviousPin(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user := createTestUser(t, env.db, "replacepin@test.com")
	plan := createTestPlan(t, env.db, "Monthly", 1200, 30)
	checkoutAndPay(t, env, user, plan)

	first := createTestPost(t, env.db, user.ID, models.PostPublished)
	second := createTestPost(t, env.db, user.ID, models.PostPublished)

	_, err := env.pins.Pin(user.ID, first.ID)
	require.NoError(t, err)

	pin, err := env.pins.Pin(user.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, pin.PostID)

	// Exactly one pin row per user, whatever happened before
	var count int64
	env.db.Model(&models.PinnedPost{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count)

	var sub models.Subscription
	require.NoError(t, env.db.First(&sub, "user_id = ?", user.ID).Error)
	actions := historyActions(t, env.db, sub.ID)
	assert.Equal(t, []string{
		models.HistoryCreated,
		models.HistoryActivated,
		models.HistoryPostPinned,
		models.HistoryPostUnpinned,
		models.HistoryPostPinned,
	}, actions)
}

func TestUnpinWithoutPin(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user := createTestUser(t, env.db, "unpinnothing@test.com")

	err := env.pins.Unpin(user.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUnpinRemovesPin(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user := createTestUser(t, env.db, "unpin@test.com")
	plan := createTestPlan(t, env.db, "Monthly", 1200, 30)
	checkoutAndPay(t, env, user, plan)

	post := createTestPost(t, env.db, user.ID, models.PostPublished)
	_, err := env.pins.Pin(user.ID, post.ID)
	require.NoError(t, err)

	require.NoError(t, env.pins.Unpin(user.ID))

	current, err := env.pins.Current(user.ID)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestListActiveFiltersLapsedSubscriptions(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	plan := createTestPlan(t, env.db, "Monthly", 1200, 30)

	active := createTestUser(t, env.db, "activepin@test.com")
	checkoutAndPay(t, env, active, plan)
	activePost := createTestPost(t, env.db, active.ID, models.PostPublished)
	_, err := env.pins.Pin(active.ID, activePost.ID)
	require.NoError(t, err)

	lapsed := createTestUser(t, env.db, "lapsedpin@test.com")
	checkoutAndPay(t, env, lapsed, plan)
	lapsedPost := createTestPost(t, env.db, lapsed.ID, models.PostPublished)
	_, err = env.pins.Pin(lapsed.ID, lapsedPost.ID)
	require.NoError(t, err)

	// Push the second subscription past its end date without running the
	// sweep, the read path must hide the pin on its own
	require.NoError(t, env.db.Model(&models.Subscription{}).
		Where("user_id = ?", lapsed.ID).
		Update("end_date", time.Now().Add(-time.Minute)).Error)

	pins, err := env.pins.ListActive()
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, activePost.ID, pins[0].PostID)
}

func TestCanPinReport(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	user := createTestUser(t, env.db, "canpin@test.com")
	other := createTestUser(t, env.db, "canpinother@test.com")
	post := createTestPost(t, env.db, user.ID, models.PostPublished)

	report, err := env.pins.CanPin(user.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, report.PostExists)
	assert.True(t, report.IsOwnPost)
	assert.False(t, report.HasSubscription)
	assert.False(t, report.CanPin)

	plan := createTestPlan(t, env.db, "Monthly", 1200, 30)
	checkoutAndPay(t, env, user, plan)

	report, err = env.pins.CanPin(user.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, report.HasSubscription)
	assert.True(t, report.SubscriptionActive)
	assert.True(t, report.CanPin)

	report, err = env.pins.CanPin(other.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, report.PostExists)
	assert.False(t, report.IsOwnPost)
	assert.False(t, report.CanPin)

	report, err = env.pins.CanPin(user.ID, "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, report.PostExists)
}
