package model

// User 即用户档案（profile），IsAdmin 决定是否拥有课程编辑权限
// swagger:model User
type User struct {
	UUIDBase
	Email     string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string `gorm:"size:100;not null" json:"-"`
	FullName  string `gorm:"size:100" json:"fullName"`
	AvatarURL string `gorm:"size:255" json:"avatarUrl"`
	IsAdmin   bool   `gorm:"default:false" json:"isAdmin"`
}

func (User) TableName() string {
	return "profiles"
}
