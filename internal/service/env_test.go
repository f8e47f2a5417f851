package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"video_course_backend/internal/model"
	"video_course_backend/internal/repository"
	"video_course_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	admin   = Actor{UserID: "admin-1", IsAdmin: true}
	learner = Actor{UserID: "learner-1"}
)

type testEnv struct {
	db       *gorm.DB
	videos   *repository.VideoRepository
	courses  *repository.CourseRepository
	progress *repository.ProgressRepository

	videoSvc    *VideoService
	progressSvc *ProgressService
	courseSvc   *CourseService
	catalogSvc  *CatalogService
	playbackSvc *PlaybackService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.OpenInMemory(fmt.Sprintf("%s_%d", name, time.Now().UnixNano()))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:       db,
		videos:   repository.NewVideoRepository(db),
		courses:  repository.NewCourseRepository(db),
		progress: repository.NewProgressRepository(db),
	}
	env.videoSvc = NewVideoService(env.videos, nil, "https://iframe.mediadelivery.net")
	env.progressSvc = NewProgressService(env.progress, env.courses, "https://iframe.mediadelivery.net")
	env.courseSvc = NewCourseService(env.courses, env.videos, env.progressSvc)
	env.catalogSvc = NewCatalogService(env.videos, env.courses, env.progressSvc, env.videoSvc)
	env.playbackSvc = NewPlaybackService(NewMemoryPlaybackStore(time.Hour), env.videos, env.courses, env.progress, env.progressSvc)
	return env
}

func (e *testEnv) addVideo(t *testing.T, title string) *model.Video {
	t.Helper()
	v := &model.Video{
		Title:          title,
		MediaReference: fmt.Sprintf("%08x-0000-0000-0000-000000000000", time.Now().UnixNano()&0xffffffff),
		LibraryID:      "12345",
		StorageURL:     "https://vz-abc.b-cdn.net",
		UserID:         admin.UserID,
	}
	require.NoError(t, e.videos.Create(context.Background(), v))
	return v
}

func (e *testEnv) addSection(t *testing.T, title string) *model.Video {
	t.Helper()
	v := model.NewSectionBreak(title, "", admin.UserID)
	require.NoError(t, e.videos.Create(context.Background(), v))
	return v
}

func (e *testEnv) addCourse(t *testing.T, title string, lessons ...*model.Video) *model.Course {
	t.Helper()
	ids := make([]string, len(lessons))
	for i, v := range lessons {
		ids[i] = v.ID
	}
	course, err := e.courseSvc.SaveCourse(context.Background(), admin, "", CourseInput{Title: title, VideoIDs: ids})
	require.NoError(t, err)
	return course
}
