package service

import (
	"testing"
	"video_course_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func link(id string, order int, section bool) model.CourseVideo {
	v := &model.Video{Title: id, MediaReference: "media-" + id}
	if section {
		v.MediaReference = model.SectionBreakSentinel
	}
	v.ID = id
	return model.CourseVideo{VideoID: id, OrderIndex: order, Video: v}
}

func TestLessonSequenceSkipsSections(t *testing.T) {
	// 输入顺序打乱，按 order_index 排序
	seq := NewLessonSequence([]model.CourseVideo{
		link("v2", 2, false),
		link("v1", 0, false),
		link("s1", 1, true),
	})

	require.Equal(t, 3, seq.Len())
	assert.Equal(t, []string{"v1", "s1", "v2"}, seq.VideoIDs())

	playable := seq.PlayableItems()
	require.Len(t, playable, 2)
	assert.Equal(t, "v1", playable[0].VideoID)
	assert.Equal(t, "v2", playable[1].VideoID)

	next, ok := seq.NextPlayable(0)
	assert.True(t, ok)
	assert.Equal(t, 2, next)

	prev, ok := seq.PreviousPlayable(2)
	assert.True(t, ok)
	assert.Equal(t, 0, prev)

	assert.Equal(t, 1, seq.PlayableOrdinal(0))
	assert.Equal(t, 0, seq.PlayableOrdinal(1))
	assert.Equal(t, 2, seq.PlayableOrdinal(2))
}

func TestLessonSequenceBoundaries(t *testing.T) {
	seq := NewLessonSequence([]model.CourseVideo{
		link("s0", 0, true),
		link("v1", 1, false),
		link("v2", 2, false),
		link("s3", 3, true),
	})

	_, ok := seq.NextPlayable(2)
	assert.False(t, ok, "trailing section is not a destination")

	_, ok = seq.PreviousPlayable(1)
	assert.False(t, ok, "leading section is not a destination")

	idx, ok := seq.NextPlayable(-1)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestLessonSequenceEmpty(t *testing.T) {
	for name, links := range map[string][]model.CourseVideo{
		"no lessons":    nil,
		"only sections": {link("s0", 0, true), link("s1", 1, true)},
	} {
		t.Run(name, func(t *testing.T) {
			seq := NewLessonSequence(links)
			assert.True(t, seq.Empty())
			assert.Empty(t, seq.PlayableItems())
			assert.Equal(t, 0, seq.InitialPosition(nil))

			_, ok := seq.NextPlayable(0)
			assert.False(t, ok)
			_, ok = seq.PreviousPlayable(0)
			assert.False(t, ok)
		})
	}
}

func TestLessonSequenceDropsUnloadedVideos(t *testing.T) {
	seq := NewLessonSequence([]model.CourseVideo{
		link("v1", 0, false),
		{VideoID: "gone", OrderIndex: 1},
	})
	assert.Equal(t, 1, seq.Len())
}

func TestInitialPosition(t *testing.T) {
	seq := NewLessonSequence([]model.CourseVideo{
		link("s0", 0, true),
		link("v1", 1, false),
		link("v2", 2, false),
		link("v3", 3, false),
	})

	assert.Equal(t, 1, seq.InitialPosition(nil))
	assert.Equal(t, 2, seq.InitialPosition(map[string]bool{"v1": true}))
	assert.Equal(t, 1, seq.InitialPosition(map[string]bool{"v2": true}))
	assert.Equal(t, 0, seq.InitialPosition(map[string]bool{"v1": true, "v2": true, "v3": true}))
}

func TestMoveLesson(t *testing.T) {
	items := []string{"A", "B", "C", "D"}

	out, err := MoveLesson(items, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B", "D"}, out)
	assert.Equal(t, []string{"A", "B", "C", "D"}, items, "input is not modified")

	out, err = MoveLesson(items, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "D", "A"}, out)

	out, err = MoveLesson(items, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, items, out)

	_, err = MoveLesson(items, 4, 0)
	assert.Error(t, err)
	_, err = MoveLesson(items, 0, -1)
	assert.Error(t, err)
}

func TestSortSectionsLast(t *testing.T) {
	mk := func(id string, section bool) model.Video {
		v := model.Video{Title: id, MediaReference: "m"}
		if section {
			v.MediaReference = model.SectionBreakSentinel
		}
		v.ID = id
		return v
	}
	in := []model.Video{mk("s1", true), mk("a", false), mk("s2", true), mk("b", false), mk("c", false)}

	out := SortSectionsLast(in)
	ids := make([]string, len(out))
	for i, v := range out {
		ids[i] = v.ID
	}
	assert.Equal(t, []string{"a", "b", "c", "s1", "s2"}, ids)
	assert.Equal(t, "s1", in[0].ID)
}
