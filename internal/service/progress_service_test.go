package service

import (
	"context"
	"testing"
	"time"
	"video_course_backend/internal/model"
	"video_course_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.addVideo(t, "Intro")
	v2 := env.addVideo(t, "Next")
	course := env.addCourse(t, "Idempotent", v1, v2)

	_, err := env.playbackSvc.MarkComplete(ctx, learner, v1.ID, course.ID)
	require.NoError(t, err)
	_, err = env.playbackSvc.MarkComplete(ctx, learner, v2.ID, course.ID)
	require.NoError(t, err)

	first, err := env.progressSvc.GetRollup(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.True(t, first.Completed)
	assert.Equal(t, 2, first.TotalVideos)
	assert.Equal(t, 2, first.CompletedVideos)
	require.NotNil(t, first.CompletedAt)

	time.Sleep(5 * time.Millisecond)
	_, err = env.playbackSvc.MarkComplete(ctx, learner, v2.ID, course.ID)
	require.NoError(t, err)

	var rows int64
	require.NoError(t, env.db.Model(&model.VideoProgress{}).
		Where("user_id = ? AND video_id = ?", learner.UserID, v2.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	second, err := env.progressSvc.GetRollup(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Completed, second.Completed)
	assert.Equal(t, first.CompletedVideos, second.CompletedVideos)
	require.NotNil(t, second.CompletedAt)
	assert.True(t, first.CompletedAt.Equal(*second.CompletedAt), "completion time is kept")
}

func TestMarkCompleteRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.addVideo(t, "Intro")
	other := env.addVideo(t, "Elsewhere")
	sec := env.addSection(t, "Part 1")
	course := env.addCourse(t, "Rejections", sec, v1)

	_, err := env.playbackSvc.MarkComplete(ctx, learner, sec.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrSectionNotPlayable)

	_, err = env.playbackSvc.MarkComplete(ctx, learner, other.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrVideoNotInCourse)

	_, err = env.playbackSvc.MarkComplete(ctx, learner, "missing", "")
	assert.ErrorIs(t, err, util.ErrVideoNotFound)

	_, err = env.playbackSvc.MarkComplete(ctx, learner, v1.ID, "missing")
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	_, err = env.playbackSvc.MarkComplete(ctx, Actor{}, v1.ID, course.ID)
	assert.ErrorIs(t, err, util.ErrUnauthenticated)

	var rows int64
	require.NoError(t, env.db.Model(&model.VideoProgress{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestStandaloneCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.addVideo(t, "Intro")
	course := env.addCourse(t, "Scoped", v1)

	row, err := env.playbackSvc.MarkComplete(ctx, learner, v1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "", row.CourseID)
	assert.True(t, row.Completed)

	// 独立播放的完成不计入课程
	status, err := env.progressSvc.CourseStatus(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.True(t, status.NotStarted())

	p, err := env.progressSvc.VideoProgress(ctx, learner, v1.ID, "")
	require.NoError(t, err)
	assert.True(t, p.Completed)

	p, err = env.progressSvc.VideoProgress(ctx, learner, v1.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, p.Completed)
}

func TestRollupAfterLessonRemoved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.addVideo(t, "One")
	v2 := env.addVideo(t, "Two")
	v3 := env.addVideo(t, "Three")
	course := env.addCourse(t, "Shrinking", v1, v2, v3)

	for _, v := range []*model.Video{v1, v2} {
		_, err := env.playbackSvc.MarkComplete(ctx, learner, v.ID, course.ID)
		require.NoError(t, err)
	}
	rollup, err := env.progressSvc.GetRollup(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rollup.CompletedVideos)
	assert.False(t, rollup.Completed)

	// 去掉一个已完成课时和一个未完成课时
	_, err = env.courseSvc.SaveCourse(ctx, admin, course.ID, CourseInput{Title: "Shrinking", VideoIDs: []string{v1.ID}})
	require.NoError(t, err)

	rollup, err = env.progressSvc.GetRollup(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rollup.TotalVideos)
	assert.Equal(t, 1, rollup.CompletedVideos)
	assert.True(t, rollup.Completed)
	assert.NotNil(t, rollup.CompletedAt)

	status, err := env.progressSvc.CourseStatus(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, status.CompletedVideos, status.TotalVideos)
	assert.True(t, status.Completed)
}

func TestRollupSectionsDoNotCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sec := env.addSection(t, "Part 1")
	v1 := env.addVideo(t, "Only")
	course := env.addCourse(t, "With section", sec, v1)

	rollup, err := env.progressSvc.RecomputeRollup(ctx, learner.UserID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rollup.TotalVideos)
	assert.Nil(t, rollup.CompletedAt)

	_, err = env.playbackSvc.MarkComplete(ctx, learner, v1.ID, course.ID)
	require.NoError(t, err)
	rollup, err = env.progressSvc.GetRollup(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.True(t, rollup.Completed)
}

func TestGetRollupDefault(t *testing.T) {
	env := newTestEnv(t)
	v1 := env.addVideo(t, "Intro")
	course := env.addCourse(t, "Untouched", v1)

	rollup, err := env.progressSvc.GetRollup(context.Background(), learner, course.ID)
	require.NoError(t, err)
	assert.False(t, rollup.Completed)
	assert.Zero(t, rollup.CompletedVideos)
	assert.Nil(t, rollup.CompletedAt)
}

func TestRecomputeAll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.addVideo(t, "Intro")
	course := env.addCourse(t, "Reconcile", v1)
	_, err := env.playbackSvc.MarkComplete(ctx, learner, v1.ID, course.ID)
	require.NoError(t, err)

	// 手动破坏汇总，全量重算后恢复
	require.NoError(t, env.db.Model(&model.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", learner.UserID, course.ID).
		Updates(map[string]interface{}{"completed": false, "completed_videos": 0}).Error)

	n, err := NewRollupJob(env.progressSvc).Run(ctx, "test")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rollup, err := env.progressSvc.GetRollup(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.True(t, rollup.Completed)
	assert.Equal(t, 1, rollup.CompletedVideos)
}

func TestPlayerViewAndNavigate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	v1 := env.addVideo(t, "Intro")
	sec := env.addSection(t, "Part 2")
	v2 := env.addVideo(t, "Deep dive")
	course := env.addCourse(t, "Player", v1, sec, v2)

	view, err := env.progressSvc.PlayerView(ctx, learner, course.ID)
	require.NoError(t, err)
	require.Len(t, view.Lessons, 3)
	assert.Equal(t, 2, view.PlayableCount)
	assert.Equal(t, 0, view.InitialPosition)
	assert.False(t, view.Empty)
	assert.NotNil(t, view.Lessons[0].URLs)
	assert.Nil(t, view.Lessons[1].URLs)
	assert.Equal(t, 2, view.Lessons[2].Ordinal)

	_, err = env.playbackSvc.MarkComplete(ctx, learner, v1.ID, course.ID)
	require.NoError(t, err)
	view, err = env.progressSvc.PlayerView(ctx, learner, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, view.InitialPosition)
	assert.True(t, view.Lessons[0].Completed)
	assert.True(t, view.Status.InProgress)

	res, err := env.progressSvc.Navigate(ctx, learner, course.ID, 0, "next")
	require.NoError(t, err)
	assert.True(t, res.Moved)
	assert.Equal(t, 2, res.Index)
	assert.Equal(t, v2.ID, res.Lesson.VideoID)

	res, err = env.progressSvc.Navigate(ctx, learner, course.ID, 2, "next")
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Equal(t, 2, res.Index)

	res, err = env.progressSvc.Navigate(ctx, learner, course.ID, 2, "prev")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Index)

	_, err = env.progressSvc.Navigate(ctx, learner, course.ID, 3, "next")
	assert.ErrorIs(t, err, util.ErrInvalidMove)
	_, err = env.progressSvc.Navigate(ctx, learner, course.ID, 0, "sideways")
	assert.ErrorIs(t, err, util.ErrInvalidMove)
}
