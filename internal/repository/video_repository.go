package repository

import (
	"context"
	"strings"
	"video_course_backend/internal/model"
	"video_course_backend/internal/util"

	"gorm.io/gorm"
)

type VideoRepository struct {
	DB *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{DB: db}
}

func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	return r.DB.WithContext(ctx).Create(video).Error
}

func (r *VideoRepository) FindByID(ctx context.Context, id string) (*model.Video, error) {
	var video model.Video
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&video).Error
	return &video, err
}

func (r *VideoRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Video, error) {
	var videos []model.Video
	if len(ids) == 0 {
		return videos, nil
	}
	err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&videos).Error
	return videos, err
}

// Search 按标题不区分大小写模糊匹配，query 为空时不加条件；
// playableOnly 为 true 时排除分节标记
func (r *VideoRepository) Search(ctx context.Context, query string, playableOnly bool) ([]model.Video, error) {
	var videos []model.Video
	q := r.DB.WithContext(ctx).Model(&model.Video{})
	q = TitleFilter(q, query)
	if playableOnly {
		q = q.Where("media_reference <> ?", model.SectionBreakSentinel)
	}
	err := q.Order("created_at DESC").Find(&videos).Error
	return videos, err
}

// TitleFilter 标题过滤条件，课程与视频目录共用
func TitleFilter(q *gorm.DB, query string) *gorm.DB {
	query = strings.TrimSpace(query)
	if query == "" {
		return q
	}
	pattern := "%" + strings.ToLower(util.EscapeLike(query)) + "%"
	return q.Where("LOWER(title) LIKE ? ESCAPE '"+util.LikeEscapeChar+"'", pattern)
}
