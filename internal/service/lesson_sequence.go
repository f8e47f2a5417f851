package service

import (
	"sort"
	"video_course_backend/internal/model"
	"video_course_backend/internal/util"
)

// LessonItem 课时序列中的一项：可播放视频或分节标记
type LessonItem struct {
	Kind       model.LessonKind `json:"kind"`
	VideoID    string           `json:"videoId"`
	Title      string           `json:"title"`
	OrderIndex int              `json:"orderIndex"`
	Video      *model.Video     `json:"-"`
}

func (i LessonItem) Playable() bool {
	return i.Kind == model.LessonVideo
}

// LessonSequence 按 order_index 升序排列的课时
type LessonSequence struct {
	items []LessonItem
}

// NewLessonSequence 稳定排序，order_index 相同时保持输入顺序；未加载到视频的关联会被丢弃
func NewLessonSequence(links []model.CourseVideo) *LessonSequence {
	items := make([]LessonItem, 0, len(links))
	for _, link := range links {
		if link.Video == nil {
			continue
		}
		items = append(items, LessonItem{
			Kind:       link.Video.Kind(),
			VideoID:    link.VideoID,
			Title:      link.Video.Title,
			OrderIndex: link.OrderIndex,
			Video:      link.Video,
		})
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].OrderIndex < items[b].OrderIndex
	})
	return &LessonSequence{items: items}
}

func (s *LessonSequence) Items() []LessonItem {
	return s.items
}

func (s *LessonSequence) Len() int {
	return len(s.items)
}

func (s *LessonSequence) At(i int) (LessonItem, bool) {
	if i < 0 || i >= len(s.items) {
		return LessonItem{}, false
	}
	return s.items[i], true
}

func (s *LessonSequence) PlayableItems() []LessonItem {
	out := make([]LessonItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Playable() {
			out = append(out, item)
		}
	}
	return out
}

func (s *LessonSequence) PlayableCount() int {
	n := 0
	for _, item := range s.items {
		if item.Playable() {
			n++
		}
	}
	return n
}

// PlayableIDs 可播放视频 ID 集合
func (s *LessonSequence) PlayableIDs() map[string]bool {
	ids := make(map[string]bool, len(s.items))
	for _, item := range s.items {
		if item.Playable() {
			ids[item.VideoID] = true
		}
	}
	return ids
}

// Empty 没有任何可播放的课时，调用方应显示“无内容”
func (s *LessonSequence) Empty() bool {
	return s.PlayableCount() == 0
}

// NextPlayable 向后跳过分节，找不到时返回 (-1, false)
func (s *LessonSequence) NextPlayable(current int) (int, bool) {
	for i := current + 1; i < len(s.items); i++ {
		if i >= 0 && s.items[i].Playable() {
			return i, true
		}
	}
	return -1, false
}

// PreviousPlayable 向前跳过分节，找不到时返回 (-1, false)
func (s *LessonSequence) PreviousPlayable(current int) (int, bool) {
	if current > len(s.items) {
		current = len(s.items)
	}
	for i := current - 1; i >= 0; i-- {
		if s.items[i].Playable() {
			return i, true
		}
	}
	return -1, false
}

// InitialPosition 第一个未完成的可播放课时；全部完成或没有可播放课时时为 0
func (s *LessonSequence) InitialPosition(completed map[string]bool) int {
	for i, item := range s.items {
		if item.Playable() && !completed[item.VideoID] {
			return i
		}
	}
	return 0
}

// PlayableOrdinal 第 i 项在可播放课时中的序号（从 1 开始），分节返回 0
func (s *LessonSequence) PlayableOrdinal(i int) int {
	if i < 0 || i >= len(s.items) || !s.items[i].Playable() {
		return 0
	}
	n := 0
	for j := 0; j <= i; j++ {
		if s.items[j].Playable() {
			n++
		}
	}
	return n
}

// VideoIDs 按当前顺序的全部视频 ID（含分节）
func (s *LessonSequence) VideoIDs() []string {
	ids := make([]string, len(s.items))
	for i, item := range s.items {
		ids[i] = item.VideoID
	}
	return ids
}

// IndexOf 视频在序列中的位置
func (s *LessonSequence) IndexOf(videoID string) int {
	for i, item := range s.items {
		if item.VideoID == videoID {
			return i
		}
	}
	return -1
}

// MoveLesson 把 from 位置的元素移到 to，中间元素整体平移一位，其余相对顺序不变
func MoveLesson[T any](items []T, from, to int) ([]T, error) {
	n := len(items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return nil, util.ErrInvalidMove
	}

	out := make([]T, n)
	copy(out, items)
	if from == to {
		return out, nil
	}

	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out, nil
}

// SortSectionsLast 展示用排序：分节排到末尾，其余保持相对顺序，不影响持久化顺序
func SortSectionsLast(videos []model.Video) []model.Video {
	out := make([]model.Video, len(videos))
	copy(out, videos)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].IsPlayable() && !out[b].IsPlayable()
	})
	return out
}
