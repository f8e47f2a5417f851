package repository

import (
	"context"
	"video_course_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func preloadLessons(db *gorm.DB) *gorm.DB {
	return db.Preload("Videos", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("order_index ASC")
	}).Preload("Videos.Video")
}

// FindByID 连同按 order_index 排好序的课时一起加载
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := preloadLessons(r.DB.WithContext(ctx)).Where("id = ?", id).First(&course).Error
	return &course, err
}

func (r *CourseRepository) Search(ctx context.Context, query string) ([]model.Course, error) {
	var courses []model.Course
	q := TitleFilter(r.DB.WithContext(ctx).Model(&model.Course{}), query)
	err := preloadLessons(q).Order("created_at DESC").Find(&courses).Error
	return courses, err
}

// SaveWithLessons 在同一个事务中写入课程字段并整体替换课时序列：
// 先删除全部 course_videos，再按 videoIDs 的顺序以 0 起始的下标重新插入
func (r *CourseRepository) SaveWithLessons(ctx context.Context, course *model.Course, videoIDs []string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if course.ID == "" {
			if err := tx.Omit("Videos").Create(course).Error; err != nil {
				return err
			}
		} else {
			err := tx.Model(&model.Course{}).Where("id = ?", course.ID).Updates(map[string]interface{}{
				"title":         course.Title,
				"description":   course.Description,
				"thumbnail_url": course.ThumbnailURL,
				"category":      course.Category,
			}).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Where("course_id = ?", course.ID).Delete(&model.CourseVideo{}).Error; err != nil {
			return err
		}

		links := make([]model.CourseVideo, len(videoIDs))
		for i, id := range videoIDs {
			links[i] = model.CourseVideo{
				CourseID:   course.ID,
				VideoID:    id,
				OrderIndex: i,
			}
		}
		if len(links) > 0 {
			if err := tx.Omit("Video").Create(&links).Error; err != nil {
				return err
			}
		}
		course.Videos = links
		return nil
	})
}

// Delete 删除课程及其课时和学习进度
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Course{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseVideo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("course_id = ?", id).Delete(&model.CourseProgress{}).Error; err != nil {
			return err
		}
		return tx.Where("course_id = ?", id).Delete(&model.VideoProgress{}).Error
	})
}

func (r *CourseRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}
