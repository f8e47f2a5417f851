package model

import (
	"gorm.io/datatypes"
)

// SectionBreakSentinel 存储层的分节标记，只在本包内解释
const SectionBreakSentinel = "-----"

type LessonKind string

// 视频分类，未填写时为 programming
const (
	CategoryProgramming = "programming"
	CategoryDesign      = "design"
	CategoryBusiness    = "business"
	CategoryMarketing   = "marketing"
)

func IsValidCategory(c string) bool {
	switch c {
	case CategoryProgramming, CategoryDesign, CategoryBusiness, CategoryMarketing:
		return true
	}
	return false
}

const (
	LessonVideo   LessonKind = "video"
	LessonSection LessonKind = "section"
)

// Video 课程中的一节视频，或仅有标题的分节标记
// swagger:model Video
type Video struct {
	UUIDBase
	Title          string         `gorm:"size:255;not null;index" json:"title"`
	Description    string         `gorm:"type:text" json:"description"`
	MediaReference string         `gorm:"column:media_reference;size:100;not null" json:"-"`
	LibraryID      string         `gorm:"size:50" json:"libraryId"`
	StorageURL     string         `gorm:"size:255" json:"storageUrl"`
	Thumbnail      string         `gorm:"size:255" json:"thumbnail"`
	Category       string         `gorm:"size:100;index" json:"category"`
	Duration       float64        `gorm:"default:0" json:"duration"` // 秒
	HostMetadata   datatypes.JSON `json:"-"`
	UserID         string         `gorm:"type:varchar(36);index" json:"userId"`
}

func (Video) TableName() string {
	return "videos"
}

func (v *Video) Kind() LessonKind {
	if v.MediaReference == SectionBreakSentinel {
		return LessonSection
	}
	return LessonVideo
}

func (v *Video) IsPlayable() bool {
	return v.Kind() == LessonVideo
}

// MediaID 分节返回空串
func (v *Video) MediaID() string {
	if !v.IsPlayable() {
		return ""
	}
	return v.MediaReference
}

// NewSectionBreak 构造分节标记，托管相关字段一律写入标记值
func NewSectionBreak(title, category, userID string) *Video {
	return &Video{
		Title:          title,
		MediaReference: SectionBreakSentinel,
		LibraryID:      SectionBreakSentinel,
		StorageURL:     SectionBreakSentinel,
		Category:       category,
		UserID:         userID,
	}
}

// IsSectionReference 判断用户提交的媒体标识是否表示分节
func IsSectionReference(ref string) bool {
	return ref == SectionBreakSentinel
}
