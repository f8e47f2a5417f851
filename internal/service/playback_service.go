package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
	"video_course_backend/internal/model"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/util"
	"video_course_backend/pkg/logger"
	"video_course_backend/pkg/monitoring"
	"video_course_backend/pkg/tracing"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	PlaybackEventType   = "playerProgress"
	defaultPlaybackTTL  = 6 * time.Hour
	playbackKeyTemplate = "playback:%s:%s:%s"
)

// PlaybackEvent 播放器上报的位置，与嵌入播放器 postMessage 的结构一致
type PlaybackEvent struct {
	Type        string  `json:"type"`
	VideoID     string  `json:"videoId" binding:"required"`
	CourseID    string  `json:"courseId"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// PlaybackState 只保存在 Redis 或进程内存中，不会每次上报都写数据库
type PlaybackState struct {
	VideoID            string    `json:"videoId"`
	CourseID           string    `json:"courseId"`
	CurrentTime        float64   `json:"currentTime"`
	Duration           float64   `json:"duration"`
	ProgressPercentage float64   `json:"progressPercentage"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type PlaybackStateStore interface {
	Save(ctx context.Context, userID string, st PlaybackState) error
	// Load 没有记录时返回 (nil, nil)
	Load(ctx context.Context, userID, videoID, courseID string) (*PlaybackState, error)
}

func playbackKey(userID, videoID, courseID string) string {
	return fmt.Sprintf(playbackKeyTemplate, userID, videoID, courseID)
}

// NewPlaybackStateStore Redis 可用时使用 Redis，否则退回进程内存
func NewPlaybackStateStore(rdb *redis.Client, ttl time.Duration) PlaybackStateStore {
	if ttl <= 0 {
		ttl = defaultPlaybackTTL
	}
	if rdb != nil {
		return &RedisPlaybackStore{Client: rdb, TTL: ttl}
	}
	return NewMemoryPlaybackStore(ttl)
}

type RedisPlaybackStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func (s *RedisPlaybackStore) Save(ctx context.Context, userID string, st PlaybackState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.Client.Set(ctx, playbackKey(userID, st.VideoID, st.CourseID), data, s.TTL).Err()
}

func (s *RedisPlaybackStore) Load(ctx context.Context, userID, videoID, courseID string) (*PlaybackState, error) {
	data, err := s.Client.Get(ctx, playbackKey(userID, videoID, courseID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var st PlaybackState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

type memoryEntry struct {
	state     PlaybackState
	expiresAt time.Time
}

type MemoryPlaybackStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
}

func NewMemoryPlaybackStore(ttl time.Duration) *MemoryPlaybackStore {
	return &MemoryPlaybackStore{items: make(map[string]memoryEntry), ttl: ttl}
}

func (s *MemoryPlaybackStore) Save(ctx context.Context, userID string, st PlaybackState) error {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	// 顺带清理过期条目
	for k, e := range s.items {
		if now.After(e.expiresAt) {
			delete(s.items, k)
		}
	}
	s.items[playbackKey(userID, st.VideoID, st.CourseID)] = memoryEntry{state: st, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryPlaybackStore) Load(ctx context.Context, userID, videoID, courseID string) (*PlaybackState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[playbackKey(userID, videoID, courseID)]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	st := e.state
	return &st, nil
}

type PlaybackService struct {
	Store        PlaybackStateStore
	VideoRepo    *repository.VideoRepository
	CourseRepo   *repository.CourseRepository
	ProgressRepo *repository.ProgressRepository
	Progress     *ProgressService
}

func NewPlaybackService(store PlaybackStateStore, videoRepo *repository.VideoRepository, courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository, progress *ProgressService) *PlaybackService {
	return &PlaybackService{
		Store:        store,
		VideoRepo:    videoRepo,
		CourseRepo:   courseRepo,
		ProgressRepo: progressRepo,
		Progress:     progress,
	}
}

// ProgressPercentage currentTime / duration * 100，限制在 [0, 100]
func ProgressPercentage(currentTime, duration float64) (float64, error) {
	if duration <= 0 || math.IsNaN(duration) || math.IsInf(duration, 0) || math.IsNaN(currentTime) {
		return 0, util.ErrInvalidPlaybackEvent
	}
	pct := currentTime / duration * 100
	return math.Max(0, math.Min(100, pct)), nil
}

// ReportPosition 记录播放位置，transport 仅用于指标标签
func (s *PlaybackService) ReportPosition(ctx context.Context, actor Actor, ev PlaybackEvent, transport string) (*PlaybackState, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	if ev.Type != "" && ev.Type != PlaybackEventType {
		return nil, util.ErrInvalidPlaybackEvent
	}
	if ev.VideoID == "" {
		return nil, util.ErrInvalidPlaybackEvent
	}
	pct, err := ProgressPercentage(ev.CurrentTime, ev.Duration)
	if err != nil {
		return nil, err
	}
	if err := s.checkPlayable(ctx, ev.VideoID, ev.CourseID); err != nil {
		return nil, err
	}

	st := PlaybackState{
		VideoID:            ev.VideoID,
		CourseID:           ev.CourseID,
		CurrentTime:        math.Max(0, math.Min(ev.CurrentTime, ev.Duration)),
		Duration:           ev.Duration,
		ProgressPercentage: pct,
		UpdatedAt:          time.Now(),
	}
	if err := s.Store.Save(ctx, actor.UserID, st); err != nil {
		return nil, err
	}
	monitoring.PlaybackEvents.WithLabelValues(transport).Inc()
	return &st, nil
}

// MarkComplete 写入视频完成记录；属于课程时重新计算课程汇总，汇总失败不影响本次写入
func (s *PlaybackService) MarkComplete(ctx context.Context, actor Actor, videoID, courseID string) (*model.VideoProgress, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	ctx, span := tracing.Tracer.Start(ctx, "PlaybackService.MarkComplete")
	defer span.End()

	if err := s.checkPlayable(ctx, videoID, courseID); err != nil {
		return nil, err
	}

	pct, position := s.lastObserved(ctx, actor.UserID, videoID, courseID)
	now := time.Now()
	row := &model.VideoProgress{
		UserID:             actor.UserID,
		VideoID:            videoID,
		CourseID:           courseID,
		ProgressPercentage: pct,
		Completed:          true,
		CompletedAt:        &now,
		LastPosition:       position,
		UpdatedAt:          now,
	}
	if err := s.ProgressRepo.UpsertVideoProgress(ctx, row); err != nil {
		return nil, err
	}

	scope := "standalone"
	if courseID != "" {
		scope = "course"
		if _, err := s.Progress.RecomputeRollup(ctx, actor.UserID, courseID); err != nil {
			monitoring.RollupRecomputes.WithLabelValues("mark_complete", "error").Inc()
			logger.Log.Error("Failed to recompute course rollup after completion",
				zap.String("userId", actor.UserID),
				zap.String("courseId", courseID),
				zap.String("videoId", videoID),
				zap.Error(err))
		} else {
			monitoring.RollupRecomputes.WithLabelValues("mark_complete", "ok").Inc()
		}
	}
	monitoring.LessonCompletions.WithLabelValues(scope).Inc()
	return row, nil
}

// checkPlayable 分节标记没有播放状态；指定课程时视频必须在课程中
func (s *PlaybackService) checkPlayable(ctx context.Context, videoID, courseID string) error {
	video, err := s.VideoRepo.FindByID(ctx, videoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrVideoNotFound
	}
	if err != nil {
		return err
	}
	if !video.IsPlayable() {
		return util.ErrSectionNotPlayable
	}

	if courseID != "" {
		course, err := s.CourseRepo.FindByID(ctx, courseID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrCourseNotFound
		}
		if err != nil {
			return err
		}
		if NewLessonSequence(course.Videos).IndexOf(videoID) < 0 {
			return util.ErrVideoNotInCourse
		}
	}
	return nil
}

// lastObserved 优先取播放中的瞬时状态，其次取已保存的记录
func (s *PlaybackService) lastObserved(ctx context.Context, userID, videoID, courseID string) (float64, float64) {
	st, err := s.Store.Load(ctx, userID, videoID, courseID)
	if err != nil {
		logger.Log.Warn("Failed to load playback state", zap.String("videoId", videoID), zap.Error(err))
	}
	if st != nil {
		return st.ProgressPercentage, st.CurrentTime
	}

	prev, err := s.ProgressRepo.FindVideoProgress(ctx, userID, videoID, courseID)
	if err != nil {
		logger.Log.Warn("Failed to load stored progress", zap.String("videoId", videoID), zap.Error(err))
	}
	if prev != nil {
		return prev.ProgressPercentage, prev.LastPosition
	}
	return 0, 0
}
