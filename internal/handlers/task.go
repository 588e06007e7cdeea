package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	aiService   *services.AIService
}

func NewTaskHandler(taskService *services.TaskService, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		aiService:   aiService,
	}
}

type listTasksQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority   string `form:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Search     string `form:"search" binding:"max=200"`
	Tags       string `form:"tags"`
	AssignedTo string `form:"assigned_to" binding:"omitempty,uuid"`
	SortBy     string `form:"sort_by"`
	Order      string `form:"order" binding:"omitempty,oneof=asc desc"`
	Page       int    `form:"page,default=1" binding:"min=1"`
	Limit      int    `form:"limit,default=10" binding:"min=1,max=100"`
}

type createTaskRequest struct {
	Title       string              `json:"title" binding:"required,max=255"`
	Description *string             `json:"description"`
	Status      models.TaskStatus   `json:"status" binding:"omitempty,oneof=TODO IN_PROGRESS DONE"`
	Priority    models.TaskPriority `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	DueDate     *time.Time          `json:"due_date"`
	Tags        []string            `json:"tags" binding:"omitempty,max=50,dive,max=100"`
	AssignedTo  *string             `json:"assigned_to" binding:"omitempty,uuid"`
}

func (r createTaskRequest) input() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		DueDate:     r.DueDate,
		Tags:        r.Tags,
		AssignedTo:  r.AssignedTo,
	}
}

// ListTasks returns one page of live tasks matching the query filters
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var q listTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	input := services.ListTasksInput{
		Search:     strings.TrimSpace(q.Search),
		Tags:       splitTags(q.Tags),
		AssignedTo: q.AssignedTo,
		SortBy:     q.SortBy,
		Order:      q.Order,
		Page:       q.Page,
		Limit:      q.Limit,
	}
	if q.Status != "" {
		status := models.TaskStatus(q.Status)
		input.Status = &status
	}
	if q.Priority != "" {
		priority := models.TaskPriority(q.Priority)
		input.Priority = &priority
	}

	tasks, meta, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Paginated(dto.ToTaskDTOs(tasks), meta))
}

// GetTask returns a live task with its comments and files
func (h *TaskHandler) GetTask(c *gin.Context) {
	detail, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(dto.ToTaskDetailDTO(detail.Task, detail.Comments, detail.Files)))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), user, req.input())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(dto.ToTaskDTO(*task)))
}

// BulkCreateTasks creates up to 50 tasks at once, or none of them
func (h *TaskHandler) BulkCreateTasks(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var reqs []createTaskRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	inputs := make([]services.CreateTaskInput, len(reqs))
	for i, r := range reqs {
		inputs[i] = r.input()
	}

	tasks, err := h.taskService.BulkCreateTasks(c.Request.Context(), user, inputs)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(dto.ToTaskDTOs(tasks)))
}

// UpdateTask applies the fields present in the body
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var input services.UpdateTaskInput
	if err := c.ShouldBindJSON(&input); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), user, c.Param("id"), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(dto.ToTaskDTO(*task)))
}

// DeleteTask soft-deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), user, c.Param("id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("Task deleted successfully"))
}

// ListUsers returns every user for the assignee picker
func (h *TaskHandler) ListUsers(c *gin.Context) {
	users, err := h.taskService.ListUsers(c.Request.Context())
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(dto.ToUserDTOs(users)))
}

// GenerateTasks extracts task drafts from free text using AI. Drafts are not saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	if h.aiService == nil || !h.aiService.Configured() {
		apierrors.Respond(c, services.ErrAIServiceNotConfigured)
		return
	}

	var req struct {
		Text string `json:"text" binding:"required,min=1,max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondBinding(c, err)
		return
	}

	drafts, err := h.aiService.GenerateTasksFromText(c.Request.Context(), req.Text)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	out := make([]dto.TaskDraftDTO, len(drafts))
	for i, d := range drafts {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		out[i] = dto.TaskDraftDTO{
			Title:       d.Title,
			Description: d.Description,
			Priority:    d.Priority,
			DueDate:     d.DueDate,
			Tags:        tags,
		}
	}
	c.JSON(http.StatusOK, dto.Success(out))
}

// splitTags parses a comma separated tag list, dropping blanks.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// requireUser reads the authenticated user set by RequireAuth.
func requireUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		apierrors.Respond(c, apierrors.Unauthorized(""))
		return nil, false
	}
	return user, true
}
