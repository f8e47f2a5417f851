package model

import (
	"encoding/json"
	"time"
)

// VideoProgress 每个 (用户, 视频, 课程) 一行；独立播放时 CourseID 为空串
// swagger:model VideoProgress
type VideoProgress struct {
	UserID             string     `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	VideoID            string     `gorm:"primaryKey;type:varchar(36)" json:"videoId"`
	CourseID           string     `gorm:"primaryKey;type:varchar(36);default:''" json:"-"`
	ProgressPercentage float64    `gorm:"default:0" json:"progressPercentage"`
	Completed          bool       `gorm:"default:false;index" json:"completed"`
	CompletedAt        *time.Time `json:"completedAt"`
	LastPosition       float64    `gorm:"default:0" json:"lastPosition"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (VideoProgress) TableName() string {
	return "video_progress"
}

// MarshalJSON 独立播放的记录输出 courseId: null
func (p VideoProgress) MarshalJSON() ([]byte, error) {
	type alias VideoProgress
	var courseID *string
	if p.CourseID != "" {
		courseID = &p.CourseID
	}
	return json.Marshal(struct {
		alias
		CourseID *string `json:"courseId"`
	}{alias: alias(p), CourseID: courseID})
}

// CourseProgress 课程完成情况的汇总缓存，由 VideoProgress 重新计算得出
// swagger:model CourseProgress
type CourseProgress struct {
	UserID          string     `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	CourseID        string     `gorm:"primaryKey;type:varchar(36)" json:"courseId"`
	Completed       bool       `gorm:"default:false" json:"completed"`
	CompletedAt     *time.Time `json:"completedAt"`
	TotalVideos     int        `gorm:"default:0" json:"totalVideos"`
	CompletedVideos int        `gorm:"default:0" json:"completedVideos"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}
