package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"video_course_backend/internal/model"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/util"
	"video_course_backend/pkg/logger"
	"video_course_backend/pkg/monitoring"
	"video_course_backend/pkg/tracing"
	"video_course_backend/pkg/videohost"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ProgressService struct {
	ProgressRepo *repository.ProgressRepository
	CourseRepo   *repository.CourseRepository
	EmbedBaseURL string
}

func NewProgressService(progressRepo *repository.ProgressRepository, courseRepo *repository.CourseRepository, embedBaseURL string) *ProgressService {
	return &ProgressService{
		ProgressRepo: progressRepo,
		CourseRepo:   courseRepo,
		EmbedBaseURL: embedBaseURL,
	}
}

func (s *ProgressService) loadCourse(ctx context.Context, courseID string) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load course %s: %w", courseID, err)
	}
	return course, nil
}

// CourseStatuses 一次查询得到列表中每个课程的实时状态
func (s *ProgressService) CourseStatuses(ctx context.Context, actor Actor, courses []model.Course) (map[string]CourseStatus, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}

	ids := make([]string, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}
	completed, err := s.ProgressRepo.CompletedByCourse(ctx, actor.UserID, ids)
	if err != nil {
		return nil, err
	}

	result := make(map[string]CourseStatus, len(courses))
	for _, c := range courses {
		result[c.ID] = statusForSequence(NewLessonSequence(c.Videos), completed[c.ID])
	}
	return result, nil
}

func (s *ProgressService) CourseStatus(ctx context.Context, actor Actor, courseID string) (CourseStatus, error) {
	if err := actor.requireUser(); err != nil {
		return CourseStatus{}, err
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return CourseStatus{}, err
	}
	statuses, err := s.CourseStatuses(ctx, actor, []model.Course{*course})
	if err != nil {
		return CourseStatus{}, err
	}
	return statuses[course.ID], nil
}

// GetRollup 没有汇总记录时返回未开始的默认状态
func (s *ProgressService) GetRollup(ctx context.Context, actor Actor, courseID string) (*model.CourseProgress, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	p, err := s.ProgressRepo.FindCourseProgress(ctx, actor.UserID, courseID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &model.CourseProgress{UserID: actor.UserID, CourseID: courseID}, nil
	}
	return p, nil
}

// RecomputeRollup 全量重新统计后写入汇总，重复执行结果不变
func (s *ProgressService) RecomputeRollup(ctx context.Context, userID, courseID string) (*model.CourseProgress, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.RecomputeRollup")
	defer span.End()
	span.SetAttributes(attribute.String("course.id", courseID))

	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	rows, err := s.ProgressRepo.ListForCourse(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	completed := make(map[string]bool, len(rows))
	for id, row := range rows {
		if row.Completed {
			completed[id] = true
		}
	}
	status := statusForSequence(NewLessonSequence(course.Videos), completed)

	previous, err := s.ProgressRepo.FindCourseProgress(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rollup := &model.CourseProgress{
		UserID:          userID,
		CourseID:        courseID,
		Completed:       status.Completed,
		TotalVideos:     status.TotalVideos,
		CompletedVideos: status.CompletedVideos,
		UpdatedAt:       now,
	}
	if status.Completed {
		if previous != nil && previous.Completed && previous.CompletedAt != nil {
			rollup.CompletedAt = previous.CompletedAt
		} else {
			rollup.CompletedAt = &now
		}
	}

	if err := s.ProgressRepo.UpsertCourseProgress(ctx, rollup); err != nil {
		return nil, err
	}
	return rollup, nil
}

// RecomputeCourse 课时序列变化后刷新所有已有汇总记录，单条失败只记录日志
func (s *ProgressService) RecomputeCourse(ctx context.Context, courseID, trigger string) (int, error) {
	keys, err := s.ProgressRepo.RollupKeys(ctx, courseID)
	if err != nil {
		return 0, err
	}
	return s.recomputeKeys(ctx, keys, trigger), nil
}

// RecomputeAll 重新计算全部汇总记录
func (s *ProgressService) RecomputeAll(ctx context.Context, trigger string) (int, error) {
	keys, err := s.ProgressRepo.RollupKeys(ctx, "")
	if err != nil {
		return 0, err
	}
	return s.recomputeKeys(ctx, keys, trigger), nil
}

func (s *ProgressService) recomputeKeys(ctx context.Context, keys []repository.RollupKey, trigger string) int {
	ok := 0
	for _, k := range keys {
		if _, err := s.RecomputeRollup(ctx, k.UserID, k.CourseID); err != nil {
			monitoring.RollupRecomputes.WithLabelValues(trigger, "error").Inc()
			logger.Log.Warn("Failed to recompute course rollup",
				zap.String("userId", k.UserID),
				zap.String("courseId", k.CourseID),
				zap.String("trigger", trigger),
				zap.Error(err))
			continue
		}
		monitoring.RollupRecomputes.WithLabelValues(trigger, "ok").Inc()
		ok++
	}
	return ok
}

// VideoProgress 单个视频的进度；courseID 为空表示独立播放，没有记录时返回零值
func (s *ProgressService) VideoProgress(ctx context.Context, actor Actor, videoID, courseID string) (*model.VideoProgress, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	p, err := s.ProgressRepo.FindVideoProgress(ctx, actor.UserID, videoID, courseID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &model.VideoProgress{UserID: actor.UserID, VideoID: videoID, CourseID: courseID}, nil
	}
	return p, nil
}

// PlayerLesson 播放页侧边栏中的一项
type PlayerLesson struct {
	LessonItem
	Ordinal            int                  `json:"ordinal"`
	Completed          bool                 `json:"completed"`
	ProgressPercentage float64              `json:"progressPercentage"`
	URLs               *videohost.MediaURLs `json:"urls,omitempty"`
}

type PlayerView struct {
	CourseID        string         `json:"courseId"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Lessons         []PlayerLesson `json:"lessons"`
	PlayableCount   int            `json:"playableCount"`
	InitialPosition int            `json:"initialPosition"`
	Empty           bool           `json:"empty"`
	Status          CourseStatus   `json:"status"`
}

// PlayerView 课程播放页：有序课时、每项进度以及初始定位
func (s *ProgressService) PlayerView(ctx context.Context, actor Actor, courseID string) (*PlayerView, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.ProgressRepo.ListForCourse(ctx, actor.UserID, courseID)
	if err != nil {
		return nil, err
	}

	seq := NewLessonSequence(course.Videos)
	completed := make(map[string]bool, len(rows))
	for id, row := range rows {
		if row.Completed {
			completed[id] = true
		}
	}

	lessons := make([]PlayerLesson, seq.Len())
	for i, item := range seq.Items() {
		lesson := PlayerLesson{LessonItem: item, Ordinal: seq.PlayableOrdinal(i)}
		if item.Playable() {
			row := rows[item.VideoID]
			lesson.Completed = row.Completed
			lesson.ProgressPercentage = row.ProgressPercentage
			lesson.URLs = MediaURLsFor(s.EmbedBaseURL, item.Video)
		}
		lessons[i] = lesson
	}

	return &PlayerView{
		CourseID:        course.ID,
		Title:           course.Title,
		Description:     course.Description,
		Lessons:         lessons,
		PlayableCount:   seq.PlayableCount(),
		InitialPosition: seq.InitialPosition(completed),
		Empty:           seq.Empty(),
		Status:          statusForSequence(seq, completed),
	}, nil
}

type NavigateResult struct {
	Index   int         `json:"index"`
	Moved   bool        `json:"moved"`
	Ordinal int         `json:"ordinal"`
	Lesson  *LessonItem `json:"lesson,omitempty"`
}

// Navigate 上一个 / 下一个可播放课时；到达边界时停在原位
func (s *ProgressService) Navigate(ctx context.Context, actor Actor, courseID string, from int, dir string) (*NavigateResult, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	course, err := s.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	seq := NewLessonSequence(course.Videos)
	if from < 0 || from >= seq.Len() {
		return nil, util.ErrInvalidMove
	}

	var (
		idx int
		ok  bool
	)
	switch dir {
	case "next":
		idx, ok = seq.NextPlayable(from)
	case "prev":
		idx, ok = seq.PreviousPlayable(from)
	default:
		return nil, util.ErrInvalidMove
	}
	if !ok {
		idx = from
	}

	item, _ := seq.At(idx)
	return &NavigateResult{
		Index:   idx,
		Moved:   ok,
		Ordinal: seq.PlayableOrdinal(idx),
		Lesson:  &item,
	}, nil
}
