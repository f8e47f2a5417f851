package controller

import (
	"video_course_backend/internal/middleware"
	"video_course_backend/internal/service"
	"video_course_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService   *service.CourseService
	CatalogService  *service.CatalogService
	ProgressService *service.ProgressService
	StorageService  *service.StorageService
}

func NewCourseController(courseService *service.CourseService, catalogService *service.CatalogService, progressService *service.ProgressService, storageService *service.StorageService) *CourseController {
	return &CourseController{
		CourseService:   courseService,
		CatalogService:  catalogService,
		ProgressService: progressService,
		StorageService:  storageService,
	}
}

// ListCourses godoc
// @Summary 课程列表
// @Description 按标题关键字和学习状态过滤，每个课程附带当前用户的完成情况
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   q query string false "标题关键字"
// @Param   status query string false "状态" Enums(all, in-progress, not-started, completed)
// @Success 200 {object} util.Response{data=[]service.CourseListItem} "Success"
// @Failure 400 {object} util.Response "Bad Request"
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	items, err := c.CatalogService.CourseCatalog(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Query("q"), ctx.Query("status"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, items)
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "Success"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, err := c.CourseService.GetCourse(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// CreateCourse godoc
// @Summary 创建课程 (Admin only)
// @Description videoIds 的顺序即课时顺序，至少选择一个视频
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CourseInput true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "Created"
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 403 {object} util.Response "Forbidden"
// @Router /api/admin/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.SaveCourse(ctx.Request.Context(), middleware.ActorFromContext(ctx), "", req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程 (Admin only)
// @Description 更新课程信息并整体替换课时序列
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   body body service.CourseInput true "课程信息"
// @Success 200 {object} util.Response{data=model.Course} "Success"
// @Failure 400 {object} util.Response "Bad Request"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/admin/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	var req service.CourseInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.SaveCourse(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程 (Admin only)
// @Description 同时删除课时关联和学习进度
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response "Success"
// @Failure 404 {object} util.Response "Not Found"
// @Router /api/admin/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	if err := c.CourseService.DeleteCourse(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id")); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// swagger:model MoveLessonRequest
type MoveLessonRequest struct {
	From *int `json:"from" binding:"required"`
	To   *int `json:"to" binding:"required"`
}

// MoveLesson godoc
// @Summary 调整课时顺序 (Admin only)
// @Description 把 from 位置的课时拖到 to 位置，其余课时保持相对顺序
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string true "课程ID"
// @Param   body body MoveLessonRequest true "移动位置"
// @Success 200 {object} util.Response{data=model.Course} "Success"
// @Failure 400 {object} util.Response "Bad Request"
// @Router /api/admin/courses/{id}/move [post]
func (c *CourseController) MoveLesson(ctx *gin.Context) {
	var req MoveLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.ReorderCourse(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"), *req.From, *req.To)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Picker godoc
// @Summary 课程编辑时的视频选择列表 (Admin only)
// @Description 已选与可选两个列表，分节排在末尾；不带课程ID时用于新建课程
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path string false "课程ID"
// @Success 200 {object} util.Response{data=service.CurationPicker} "Success"
// @Router /api/admin/courses/{id}/picker [get]
// @Router /api/admin/picker [get]
func (c *CourseController) Picker(ctx *gin.Context) {
	picker, err := c.CourseService.CurationPicker(ctx.Request.Context(), middleware.ActorFromContext(ctx), ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, picker)
}

// UploadThumbnail godoc
// @Summary 上传课程封面 (Admin only)
// @Tags 课程
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "图片文件"
// @Success 201 {object} util.Response{data=object} "Created"
// @Failure 400 {object} util.Response "Bad Request"
// @Router /api/admin/uploads/thumbnail [post]
func (c *CourseController) UploadThumbnail(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}

	url, err := c.StorageService.UploadThumbnail(ctx.Request.Context(), middleware.ActorFromContext(ctx), file)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
