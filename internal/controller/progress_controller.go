package controller

import (
	"strconv"
	"video_course_backend/internal/middleware"
	"video_course_backend/internal/service"
	"video_course_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
	PlaybackService *service.PlaybackService
	Hub             *service.PlaybackHub
	RollupJob       *service.RollupJob
}

func NewProgressController(progressService *service.ProgressService, playbackService *service.PlaybackService, hub *service.PlaybackHub, rollupJob *service.RollupJob) *ProgressController {
	return &ProgressController{
		ProgressService: progressService,
		PlaybackService: playbackService,
		Hub:             hub,
		RollupJob:       rollupJob,
	}
}

// Player godoc
// @Summary 课程播放页
// @Description 有序课时（含分节）、每项完成情况、可播放序号以及初始定位
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=service.PlayerView} "Success"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/courses/{id}/player [get]
func (c *ProgressController) Player(ctx *gin.Context) {
	view, err := c.ProgressService.PlayerView(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Navigate godoc
// @Summary 上一个 / 下一个课时
// @Description 跳过分节；已经在边界时 moved 为 false 并停在原位
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   from query int true "当前位置"
// @Param   dir query string true "方向" Enums(next, prev)
// @Success 200 {object} util.Response{data=service.NavigateResult} "Success"
// @Failure 400 {object} util.Response "Bad Request"
// @Router /api/courses/{id}/navigate [get]
func (c *ProgressController) Navigate(ctx *gin.Context) {
	from, err := strconv.Atoi(ctx.Query("from"))
	if err != nil {
		util.BadRequest(ctx, "from must be an integer")
		return
	}

	result, err := c.ProgressService.Navigate(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"), from, ctx.Query("dir"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// CourseProgress godoc
// @Summary 课程完成情况
// @Description rollup 为已保存的汇总，status 为实时计算结果
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=object} "Success"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/courses/{id}/progress [get]
func (c *ProgressController) CourseProgress(ctx *gin.Context) {
	actor := middleware.ActorFromContext(ctx)
	status, err := c.ProgressService.CourseStatus(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	rollup, err := c.ProgressService.GetRollup(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"status": status.Status(), "progress": status, "rollup": rollup})
}

// VideoProgress godoc
// @Summary 单个视频的学习进度
// @Description 不传 courseId 表示独立播放
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "视频ID"
// @Param   courseId query string false "课程ID"
// @Success 200 {object} util.Response{data=model.VideoProgress} "Success"
// @Router /api/videos/{id}/progress [get]
func (c *ProgressController) VideoProgress(ctx *gin.Context) {
	p, err := c.ProgressService.VideoProgress(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"), ctx.Query("courseId"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, p)
}

// swagger:model CompleteRequest
type CompleteRequest struct {
	CourseID string `json:"courseId"`
}

// MarkComplete godoc
// @Summary 标记视频已完成
// @Description 属于课程时同时重新计算课程完成情况
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "视频ID"
// @Param   body body CompleteRequest false "所属课程"
// @Success 200 {object} util.Response{data=model.VideoProgress} "Success"
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/videos/{id}/complete [post]
func (c *ProgressController) MarkComplete(ctx *gin.Context) {
	var req CompleteRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	actor := middleware.ActorFromContext(ctx)
	p, err := c.PlaybackService.MarkComplete(ctx.Request.Context(), actor, ctx.Param("id"), req.CourseID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	if c.Hub != nil {
		c.Hub.PushToUser(actor.UserID, service.WSMessage{Type: service.MsgLessonCompleted, Data: p})
	}
	util.Success(ctx, p)
}

// ReportPlayback godoc
// @Summary 上报播放位置
// @Description 与 WebSocket 上报等价，只保存为临时状态
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.PlaybackEvent true "播放位置"
// @Success 200 {object} util.Response{data=service.PlaybackState} "Success"
// @Failure 400 {object} util.Response "Bad Request"
// @Router /api/playback/events [post]
func (c *ProgressController) ReportPlayback(ctx *gin.Context) {
	var req service.PlaybackEvent
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	st, err := c.PlaybackService.ReportPosition(ctx.Request.Context(), middleware.ActorFromContext(ctx), req, "http")
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, st)
}

// HandleWS godoc
// @Summary 播放位置 WebSocket
// @Description 客户端发送 {type:"playerProgress", videoId, courseId, currentTime, duration}
// @Tags 学习进度
// @Param   token query string true "JWT Token"
// @Router /api/playback/ws [get]
func (c *ProgressController) HandleWS(ctx *gin.Context) {
	actor := middleware.ActorFromContext(ctx)
	if !actor.Authenticated() {
		util.Unauthorized(ctx)
		return
	}
	service.ServeWs(c.Hub, ctx.Writer, ctx.Request, actor)
}

// Reconcile godoc
// @Summary 重新计算全部课程汇总 (Admin only)
// @Tags 学习进度
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object} "Success"
// @Router /api/admin/rollups/reconcile [post]
func (c *ProgressController) Reconcile(ctx *gin.Context) {
	n, err := c.RollupJob.Run(ctx.Request.Context(), "manual")
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"recomputed": n})
}
