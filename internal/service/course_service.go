package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"video_course_backend/internal/model"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/util"
	"video_course_backend/pkg/logger"
	"video_course_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CourseService struct {
	CourseRepo *repository.CourseRepository
	VideoRepo  *repository.VideoRepository
	Progress   *ProgressService
}

func NewCourseService(courseRepo *repository.CourseRepository, videoRepo *repository.VideoRepository, progress *ProgressService) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		VideoRepo:  videoRepo,
		Progress:   progress,
	}
}

// CourseInput VideoIDs 的顺序即课时顺序
type CourseInput struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Category     string   `json:"category"`
	VideoIDs     []string `json:"videoIds"`
}

func validateCourseInput(in *CourseInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return util.ErrTitleRequired
	}
	if len(in.VideoIDs) == 0 {
		return util.ErrNoVideosSelected
	}
	seen := make(map[string]bool, len(in.VideoIDs))
	for _, id := range in.VideoIDs {
		if seen[id] {
			return util.ErrDuplicateVideo
		}
		seen[id] = true
	}
	return nil
}

// SaveCourse courseID 为空时新建，否则更新并整体替换课时序列
func (s *CourseService) SaveCourse(ctx context.Context, actor Actor, courseID string, in CourseInput) (*model.Course, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if err := validateCourseInput(&in); err != nil {
		return nil, err
	}

	ctx, span := tracing.Tracer.Start(ctx, "CourseService.SaveCourse")
	defer span.End()
	span.SetAttributes(attribute.Int("course.lessons", len(in.VideoIDs)))

	videos, err := s.VideoRepo.FindByIDs(ctx, in.VideoIDs)
	if err != nil {
		return nil, err
	}
	if len(videos) != len(in.VideoIDs) {
		return nil, util.ErrVideoNotFound
	}

	course := &model.Course{
		Title:        in.Title,
		Description:  in.Description,
		ThumbnailURL: in.ThumbnailURL,
		Category:     in.Category,
		UserID:       actor.UserID,
	}
	if courseID != "" {
		exists, err := s.CourseRepo.Exists(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, util.ErrCourseNotFound
		}
		course.ID = courseID
	}

	if err := s.CourseRepo.SaveWithLessons(ctx, course, in.VideoIDs); err != nil {
		return nil, fmt.Errorf("save course lessons: %w", err)
	}
	logger.Log.Info("Course saved",
		zap.String("courseId", course.ID),
		zap.Int("lessons", len(in.VideoIDs)),
		zap.String("userId", actor.UserID))

	if courseID != "" {
		s.invalidateRollups(ctx, course.ID, "course_save")
	}
	return s.CourseRepo.FindByID(ctx, course.ID)
}

// invalidateRollups 课时变化后重新计算该课程已有的汇总记录
func (s *CourseService) invalidateRollups(ctx context.Context, courseID, trigger string) {
	if s.Progress == nil {
		return
	}
	if _, err := s.Progress.RecomputeCourse(ctx, courseID, trigger); err != nil {
		logger.Log.Warn("Failed to invalidate course rollups",
			zap.String("courseId", courseID),
			zap.Error(err))
	}
}

// ReorderCourse 把 from 位置的课时移动到 to，然后整体重写顺序
func (s *CourseService) ReorderCourse(ctx context.Context, actor Actor, courseID string, from, to int) (*model.Course, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	ids, err := MoveLesson(NewLessonSequence(course.Videos).VideoIDs(), from, to)
	if err != nil {
		return nil, err
	}
	if err := s.CourseRepo.SaveWithLessons(ctx, course, ids); err != nil {
		return nil, fmt.Errorf("reorder course lessons: %w", err)
	}
	logger.Log.Info("Course lessons reordered",
		zap.String("courseId", courseID),
		zap.Int("from", from),
		zap.Int("to", to))

	s.invalidateRollups(ctx, courseID, "course_reorder")
	return s.CourseRepo.FindByID(ctx, courseID)
}

func (s *CourseService) DeleteCourse(ctx context.Context, actor Actor, courseID string) error {
	if err := actor.requireAdmin(); err != nil {
		return err
	}
	err := s.CourseRepo.Delete(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrCourseNotFound
	}
	if err != nil {
		return err
	}
	logger.Log.Info("Course deleted", zap.String("courseId", courseID), zap.String("userId", actor.UserID))
	return nil
}

type CurationPicker struct {
	Selected  []model.Video `json:"selected"`
	Available []model.Video `json:"available"`
}

// CurationPicker 编辑课程时的已选 / 可选视频，courseID 为空表示新建课程
func (s *CourseService) CurationPicker(ctx context.Context, actor Actor, courseID string) (*CurationPicker, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	all, err := s.VideoRepo.Search(ctx, "", false)
	if err != nil {
		return nil, err
	}

	selected := []model.Video{}
	chosen := map[string]bool{}
	if courseID != "" {
		course, err := s.CourseRepo.FindByID(ctx, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		if err != nil {
			return nil, err
		}
		for _, item := range NewLessonSequence(course.Videos).Items() {
			selected = append(selected, *item.Video)
			chosen[item.VideoID] = true
		}
	}

	available := make([]model.Video, 0, len(all))
	for _, v := range all {
		if !chosen[v.ID] {
			available = append(available, v)
		}
	}

	return &CurationPicker{
		Selected:  SortSectionsLast(selected),
		Available: SortSectionsLast(available),
	}, nil
}

func (s *CourseService) GetCourse(ctx context.Context, actor Actor, courseID string) (*model.Course, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	return course, err
}
