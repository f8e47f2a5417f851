package model

import (
	"time"

	"gorm.io/gorm"
)

// swagger:model Course
type Course struct {
	UUIDBase
	Title        string        `gorm:"size:255;not null;index" json:"title"`
	Description  string        `gorm:"type:text" json:"description"`
	ThumbnailURL string        `gorm:"size:500" json:"thumbnailUrl"`
	Category     string        `gorm:"size:100;index" json:"category"`
	UserID       string        `gorm:"type:varchar(36);index" json:"userId"`
	Videos       []CourseVideo `gorm:"foreignKey:CourseID" json:"videos,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseVideo 课程与视频的关联，OrderIndex 在课程内从 0 开始连续且唯一
type CourseVideo struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CourseID   string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_course_order" json:"courseId"`
	VideoID    string    `gorm:"type:varchar(36);not null;index" json:"videoId"`
	OrderIndex int       `gorm:"not null;uniqueIndex:idx_course_order" json:"orderIndex"`
	CreatedAt  time.Time `json:"createdAt"`
	Video      *Video    `gorm:"foreignKey:VideoID" json:"video,omitempty"`
}

func (CourseVideo) TableName() string {
	return "course_videos"
}

func (cv *CourseVideo) BeforeCreate(tx *gorm.DB) (err error) {
	if cv.ID == "" {
		cv.ID = GenerateUUID()
	}
	return
}
