package service

import (
	"context"
	"errors"
	"strings"
	"video_course_backend/internal/model"
	"video_course_backend/internal/repository"
	"video_course_backend/internal/util"
	"video_course_backend/pkg/logger"
	"video_course_backend/pkg/tracing"
	"video_course_backend/pkg/videohost"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// HostLookup 托管平台管理接口，未配置 api_key 时为 nil
type HostLookup interface {
	GetVideo(ctx context.Context, libraryID, mediaID string) (*videohost.HostVideo, error)
}

type VideoService struct {
	VideoRepo    *repository.VideoRepository
	Host         HostLookup
	EmbedBaseURL string
}

func NewVideoService(videoRepo *repository.VideoRepository, host HostLookup, embedBaseURL string) *VideoService {
	return &VideoService{
		VideoRepo:    videoRepo,
		Host:         host,
		EmbedBaseURL: embedBaseURL,
	}
}

// VideoInput 媒体标识填 "-----" 时创建分节，只需要标题和分类
type VideoInput struct {
	Title          string `json:"title" binding:"required"`
	Description    string `json:"description"`
	MediaReference string `json:"mediaReference" binding:"required"`
	LibraryID      string `json:"libraryId"`
	StorageURL     string `json:"storageUrl"`
	Thumbnail      string `json:"thumbnail"`
	Category       string `json:"category" binding:"omitempty,oneof=programming design business marketing"`
}

type VideoView struct {
	model.Video
	Kind    model.LessonKind     `json:"kind"`
	MediaID string               `json:"mediaId,omitempty"`
	URLs    *videohost.MediaURLs `json:"urls,omitempty"`
}

// MediaURLsFor 分节没有播放地址，返回 nil
func MediaURLsFor(embedBase string, v *model.Video) *videohost.MediaURLs {
	if v == nil || !v.IsPlayable() {
		return nil
	}
	urls := videohost.BuildURLsWithBase(embedBase, v.StorageURL, v.MediaID(), v.LibraryID)
	return &urls
}

func (s *VideoService) view(v *model.Video) *VideoView {
	return &VideoView{
		Video:   *v,
		Kind:    v.Kind(),
		MediaID: v.MediaID(),
		URLs:    MediaURLsFor(s.EmbedBaseURL, v),
	}
}

func (s *VideoService) AddVideo(ctx context.Context, actor Actor, in VideoInput) (*VideoView, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	ctx, span := tracing.Tracer.Start(ctx, "VideoService.AddVideo")
	defer span.End()

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, util.ErrTitleRequired
	}
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = model.CategoryProgramming
	}
	if !model.IsValidCategory(in.Category) {
		return nil, util.ErrInvalidCategory
	}

	var video *model.Video
	if model.IsSectionReference(strings.TrimSpace(in.MediaReference)) {
		video = model.NewSectionBreak(in.Title, in.Category, actor.UserID)
	} else {
		mediaID, ok := videohost.NormalizeMediaID(in.MediaReference)
		if !ok || strings.TrimSpace(in.LibraryID) == "" || strings.TrimSpace(in.StorageURL) == "" {
			return nil, util.ErrInvalidMediaReference
		}
		video = &model.Video{
			Title:          in.Title,
			Description:    in.Description,
			MediaReference: mediaID,
			LibraryID:      strings.TrimSpace(in.LibraryID),
			StorageURL:     strings.TrimRight(strings.TrimSpace(in.StorageURL), "/"),
			Thumbnail:      in.Thumbnail,
			Category:       in.Category,
			UserID:         actor.UserID,
		}
		if err := s.enrichFromHost(ctx, video); err != nil {
			return nil, err
		}
	}

	if err := s.VideoRepo.Create(ctx, video); err != nil {
		return nil, err
	}
	logger.Log.Info("Video added",
		zap.String("videoId", video.ID),
		zap.String("kind", string(video.Kind())),
		zap.String("userId", actor.UserID))
	return s.view(video), nil
}

// enrichFromHost 已配置管理接口时校验媒体存在并记录时长
func (s *VideoService) enrichFromHost(ctx context.Context, video *model.Video) error {
	if s.Host == nil {
		return nil
	}
	hv, err := s.Host.GetVideo(ctx, video.LibraryID, video.MediaReference)
	if errors.Is(err, videohost.ErrNotFound) {
		return util.ErrMediaNotOnHost
	}
	if err != nil {
		logger.Log.Warn("Video host lookup failed, saving without metadata",
			zap.String("mediaId", video.MediaReference),
			zap.Error(err))
		return nil
	}
	video.Duration = hv.Length
	if len(hv.Raw) > 0 {
		video.HostMetadata = datatypes.JSON(hv.Raw)
	}
	return nil
}

func (s *VideoService) GetVideo(ctx context.Context, actor Actor, id string) (*VideoView, error) {
	if err := actor.requireUser(); err != nil {
		return nil, err
	}
	video, err := s.VideoRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrVideoNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.view(video), nil
}

func (s *VideoService) Views(videos []model.Video) []VideoView {
	out := make([]VideoView, len(videos))
	for i := range videos {
		out[i] = *s.view(&videos[i])
	}
	return out
}
