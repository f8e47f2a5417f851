package service

type StatusFilter string

const (
	StatusAll        StatusFilter = "all"
	StatusInProgress StatusFilter = "in-progress"
	StatusNotStarted StatusFilter = "not-started"
	StatusCompleted  StatusFilter = "completed"
)

func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case "", StatusAll:
		return StatusAll, true
	case StatusInProgress, StatusNotStarted, StatusCompleted:
		return StatusFilter(s), true
	}
	return "", false
}

// CourseStatus 课程完成状态，列表展示与汇总缓存都由 ComputeCourseStatus 得出
type CourseStatus struct {
	Completed       bool `json:"completed"`
	InProgress      bool `json:"inProgress"`
	CompletedVideos int  `json:"completedVideos"`
	TotalVideos     int  `json:"totalVideos"`
}

func ComputeCourseStatus(totalVideos, completedVideos int) CourseStatus {
	if completedVideos > totalVideos {
		completedVideos = totalVideos
	}
	if completedVideos < 0 {
		completedVideos = 0
	}
	completed := completedVideos == totalVideos && totalVideos > 0
	return CourseStatus{
		Completed:       completed,
		InProgress:      completedVideos > 0 && !completed,
		CompletedVideos: completedVideos,
		TotalVideos:     totalVideos,
	}
}

func (s CourseStatus) NotStarted() bool {
	return !s.Completed && !s.InProgress
}

func (s CourseStatus) Status() StatusFilter {
	switch {
	case s.Completed:
		return StatusCompleted
	case s.InProgress:
		return StatusInProgress
	}
	return StatusNotStarted
}

func (s CourseStatus) Matches(f StatusFilter) bool {
	return f == StatusAll || f == "" || s.Status() == f
}

// statusForSequence 只统计当前仍属于课程的可播放视频
func statusForSequence(seq *LessonSequence, completed map[string]bool) CourseStatus {
	playable := seq.PlayableIDs()
	done := 0
	for id := range completed {
		if playable[id] {
			done++
		}
	}
	return ComputeCourseStatus(len(playable), done)
}
