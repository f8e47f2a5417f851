package repository

import (
	"context"
	"errors"
	"video_course_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// UpsertVideoProgress 以 (user_id, video_id, course_id) 为冲突键写入
func (r *ProgressRepository) UpsertVideoProgress(ctx context.Context, p *model.VideoProgress) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "video_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"progress_percentage", "completed", "completed_at", "last_position", "updated_at",
		}),
	}).Create(p).Error
}

// FindVideoProgress 记录不存在时返回 (nil, nil)
func (r *ProgressRepository) FindVideoProgress(ctx context.Context, userID, videoID, courseID string) (*model.VideoProgress, error) {
	var p model.VideoProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND video_id = ? AND course_id = ?", userID, videoID, courseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForCourse 返回用户在某课程下的全部视频进度，按 video_id 索引
func (r *ProgressRepository) ListForCourse(ctx context.Context, userID, courseID string) (map[string]model.VideoProgress, error) {
	var rows []model.VideoProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[string]model.VideoProgress, len(rows))
	for _, row := range rows {
		result[row.VideoID] = row
	}
	return result, nil
}

// CompletedByCourse 一次查询多个课程中已完成的视频：courseID -> videoID 集合
func (r *ProgressRepository) CompletedByCourse(ctx context.Context, userID string, courseIDs []string) (map[string]map[string]bool, error) {
	result := make(map[string]map[string]bool, len(courseIDs))
	if len(courseIDs) == 0 {
		return result, nil
	}

	var rows []model.VideoProgress
	err := r.DB.WithContext(ctx).
		Select("course_id", "video_id").
		Where("user_id = ? AND completed = ? AND course_id IN ?", userID, true, courseIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		set, ok := result[row.CourseID]
		if !ok {
			set = make(map[string]bool)
			result[row.CourseID] = set
		}
		set[row.VideoID] = true
	}
	return result, nil
}

// FindCourseProgress 还没有汇总记录时返回 (nil, nil)
func (r *ProgressRepository) FindCourseProgress(ctx context.Context, userID, courseID string) (*model.CourseProgress, error) {
	var p model.CourseProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) UpsertCourseProgress(ctx context.Context, p *model.CourseProgress) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "course_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed", "completed_at", "total_videos", "completed_videos", "updated_at",
		}),
	}).Create(p).Error
}

type RollupKey struct {
	UserID   string
	CourseID string
}

// RollupKeys 列出已有汇总记录的 (用户, 课程)，courseID 为空时返回全部
func (r *ProgressRepository) RollupKeys(ctx context.Context, courseID string) ([]RollupKey, error) {
	var rows []model.CourseProgress
	q := r.DB.WithContext(ctx).Select("user_id", "course_id")
	if courseID != "" {
		q = q.Where("course_id = ?", courseID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	keys := make([]RollupKey, len(rows))
	for i, row := range rows {
		keys[i] = RollupKey{UserID: row.UserID, CourseID: row.CourseID}
	}
	return keys, nil
}
