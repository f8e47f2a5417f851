package controller

import (
	"video_course_backend/internal/middleware"
	"video_course_backend/internal/service"
	"video_course_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type VideoController struct {
	VideoService   *service.VideoService
	CatalogService *service.CatalogService
}

func NewVideoController(videoService *service.VideoService, catalogService *service.CatalogService) *VideoController {
	return &VideoController{
		VideoService:   videoService,
		CatalogService: catalogService,
	}
}

// ListVideos godoc
// @Summary 视频目录
// @Description 按标题不区分大小写过滤；allVideos 含分节，playableVideos 只含可播放视频
// @Tags 视频
// @Produce  json
// @Security ApiKeyAuth
// @Param   q query string false "标题关键字"
// @Success 200 {object} util.Response{data=service.VideoCatalogResult} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/videos [get]
func (c *VideoController) ListVideos(ctx *gin.Context) {
	result, err := c.CatalogService.VideoCatalog(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Query("q"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetVideo godoc
// @Summary 视频详情
// @Description 返回视频信息以及播放器、HLS、封面等地址
// @Tags 视频
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "视频ID"
// @Success 200 {object} util.Response{data=service.VideoView} "Success"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/videos/{id} [get]
func (c *VideoController) GetVideo(ctx *gin.Context) {
	video, err := c.VideoService.GetVideo(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, video)
}

// AddVideo godoc
// @Summary 添加视频或分节 (Admin only)
// @Description mediaReference 可以是媒体ID或托管平台地址；填 "-----" 时创建分节
// @Tags 视频
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.VideoInput true "视频信息"
// @Success 201 {object} util.Response{data=service.VideoView} "Created"
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 403 {object} util.Response "Forbidden"
// @Router /api/admin/videos [post]
func (c *VideoController) AddVideo(ctx *gin.Context) {
	var req service.VideoInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	video, err := c.VideoService.AddVideo(ctx.Request.Context(), middleware.ActorFromContext(ctx), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, video)
}
