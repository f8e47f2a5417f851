package service

import (
	"context"
	"video_course_backend/internal/model"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/util"
)

type CatalogService struct {
	VideoRepo  *repository.VideoRepository
	CourseRepo *repository.CourseRepository
	Progress   *ProgressService
	Videos     *VideoService
}

func NewCatalogService(videoRepo *repository.VideoRepository, courseRepo *repository.CourseRepository, progress *ProgressService, videos *VideoService) *CatalogService {
	return &CatalogService{
		VideoRepo:  videoRepo,
		CourseRepo: courseRepo,
		Progress:   progress,
		Videos:     videos,
	}
}

// VideoCatalogResult 同一个标题过滤条件下的两种视图
type VideoCatalogResult struct {
	AllVideos      []VideoView `json:"allVideos"`
	PlayableVideos []VideoView `json:"playableVideos"`
}

func (s *CatalogService) VideoCatalog(ctx context.Context, actor Actor, query string) (*VideoCatalogResult, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	videos, err := s.VideoRepo.Search(ctx, query, false)
	if err != nil {
		return nil, err
	}

	playable := make([]model.Video, 0, len(videos))
	for _, v := range videos {
		if v.IsPlayable() {
			playable = append(playable, v)
		}
	}
	return &VideoCatalogResult{
		AllVideos:      s.Videos.Views(videos),
		PlayableVideos: s.Videos.Views(playable),
	}, nil
}

type CourseListItem struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	ThumbnailURL  string       `json:"thumbnailUrl"`
	Category      string       `json:"category"`
	LessonCount   int          `json:"lessonCount"`
	PlayableCount int          `json:"playableCount"`
	Status        StatusFilter `json:"status"`
	Progress      CourseStatus `json:"progress"`
}

// CourseCatalog 标题过滤在数据库中完成，状态过滤基于实时计算的课程状态
func (s *CatalogService) CourseCatalog(ctx context.Context, actor Actor, query, status string) ([]CourseListItem, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	filter, ok := ParseStatusFilter(status)
	if !ok {
		return nil, util.ErrInvalidStatusFilter
	}

	courses, err := s.CourseRepo.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	statuses, err := s.Progress.CourseStatuses(ctx, actor, courses)
	if err != nil {
		return nil, err
	}

	items := make([]CourseListItem, 0, len(courses))
	for _, c := range courses {
		st := statuses[c.ID]
		if !st.Matches(filter) {
			continue
		}
		seq := NewLessonSequence(c.Videos)
		items = append(items, CourseListItem{
			ID:            c.ID,
			Title:         c.Title,
			Description:   c.Description,
			ThumbnailURL:  c.ThumbnailURL,
			Category:      c.Category,
			LessonCount:   seq.Len(),
			PlayableCount: seq.PlayableCount(),
			Status:        st.Status(),
			Progress:      st,
		})
	}
	return items, nil
}
