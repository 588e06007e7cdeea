package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/notify"
	"github.com/yukikurage/taskflow-api/internal/policy"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/sanitize"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"gorm.io/gorm"
)

// AssignmentQueue accepts notifications for delivery after the response. Enqueue must not block.
type AssignmentQueue interface {
	Enqueue(a notify.Assignment) bool
}

// TaskService handles task business logic
type TaskService struct {
	db       *gorm.DB
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	comments repository.CommentRepository
	files    repository.FileRepository
	queue    AssignmentQueue
	now      func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(
	db *gorm.DB,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	comments repository.CommentRepository,
	files repository.FileRepository,
	queue AssignmentQueue,
) *TaskService {
	return &TaskService{
		db:       db,
		taskRepo: taskRepo,
		userRepo: userRepo,
		comments: comments,
		files:    files,
		queue:    queue,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	Search     string
	Tags       []string
	AssignedTo string
	SortBy     string
	Order      string
	Page       int
	Limit      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description *string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	Tags        []string
	AssignedTo  *string
}

// UpdateTaskInput carries only the fields present in the request body.
// A null description, due date, tag list or assignee clears that field.
type UpdateTaskInput struct {
	Title       utils.Optional[string]              `json:"title"`
	Description utils.Optional[string]              `json:"description"`
	Status      utils.Optional[models.TaskStatus]   `json:"status"`
	Priority    utils.Optional[models.TaskPriority] `json:"priority"`
	DueDate     utils.Optional[time.Time]           `json:"due_date"`
	Tags        utils.Optional[[]string]            `json:"tags"`
	AssignedTo  utils.Optional[string]              `json:"assigned_to"`
}

// TaskDetail is a task together with its comments and files.
type TaskDetail struct {
	Task     models.Task
	Comments []models.Comment
	Files    []models.File
}

// ListTasks returns one page of live tasks and the size of the whole filtered set
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, utils.PaginationMeta, error) {
	params := utils.NewPaginationParams(input.Page, input.Limit)

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		Status:     input.Status,
		Priority:   input.Priority,
		Search:     sanitize.String(input.Search),
		Tags:       sanitize.Tags(input.Tags),
		AssignedTo: input.AssignedTo,
		SortBy:     input.SortBy,
		Order:      input.Order,
		Pagination: params,
	})
	if err != nil {
		return nil, utils.PaginationMeta{}, fmt.Errorf("failed to list tasks: %w", err)
	}

	if err := s.enrich(ctx, tasks); err != nil {
		return nil, utils.PaginationMeta{}, err
	}
	return tasks, utils.NewPaginationMeta(params, total), nil
}

// GetTask returns a live task with its comments and files
func (s *TaskService) GetTask(ctx context.Context, taskID string) (*TaskDetail, error) {
	task, err := s.findLive(ctx, taskID)
	if err != nil {
		return nil, err
	}

	tasks := []models.Task{*task}
	if err := s.enrich(ctx, tasks); err != nil {
		return nil, err
	}

	comments, err := s.comments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	files, err := s.files.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if err := enrichAuthors(ctx, s.userRepo, comments, files); err != nil {
		return nil, err
	}

	return &TaskDetail{Task: tasks[0], Comments: comments, Files: files}, nil
}

// CreateTask creates a task owned by actor
func (s *TaskService) CreateTask(ctx context.Context, actor *models.User, input CreateTaskInput) (*models.Task, error) {
	task, err := s.buildTask(actor, input)
	if err != nil {
		return nil, err
	}
	if err := s.checkAssignees(ctx, []*models.Task{task}); err != nil {
		return nil, err
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	created := []models.Task{*task}
	if err := s.enrich(ctx, created); err != nil {
		return nil, err
	}
	s.scheduleAssignment(ctx, actor, &created[0])
	return &created[0], nil
}

// BulkCreateTasks validates every item before writing any of them, then inserts all in one transaction
func (s *TaskService) BulkCreateTasks(ctx context.Context, actor *models.User, inputs []CreateTaskInput) ([]models.Task, error) {
	if len(inputs) == 0 {
		return nil, ErrBulkEmpty
	}
	if len(inputs) > constants.MaxBulkCreateTasks {
		return nil, ErrBulkTooLarge
	}

	tasks := make([]*models.Task, len(inputs))
	for i, input := range inputs {
		task, err := s.buildTask(actor, input)
		if err != nil {
			return nil, err
		}
		tasks[i] = task
	}
	if err := s.checkAssignees(ctx, tasks); err != nil {
		return nil, err
	}

	err := database.Transaction(ctx, s.db, func(ctx context.Context) error {
		return s.taskRepo.CreateMany(ctx, tasks)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks: %w", err)
	}

	created := make([]models.Task, len(tasks))
	for i, t := range tasks {
		created[i] = *t
	}
	if err := s.enrich(ctx, created); err != nil {
		return nil, err
	}
	for i := range created {
		s.scheduleAssignment(ctx, actor, &created[i])
	}
	return created, nil
}

// UpdateTask applies a partial update. Only the creator or the current assignee may update.
func (s *TaskService) UpdateTask(ctx context.Context, actor *models.User, taskID string, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findLive(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateTask(actor.ID, task) {
		return nil, ErrTaskUpdateForbidden
	}

	previousAssignee := task.AssignedTo
	tagsChanged, err := applyUpdate(task, input)
	if err != nil {
		return nil, err
	}
	if input.AssignedTo.Set && !input.AssignedTo.Null {
		if err := s.checkAssignees(ctx, []*models.Task{task}); err != nil {
			return nil, err
		}
	}

	task.UpdatedAt = s.now()
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if tagsChanged {
		if err := s.taskRepo.ReplaceTags(ctx, task.ID, task.Tags); err != nil {
			return nil, fmt.Errorf("failed to update tags: %w", err)
		}
	}

	updated := []models.Task{*task}
	if err := s.enrich(ctx, updated); err != nil {
		return nil, err
	}
	if !sameAssignee(previousAssignee, updated[0].AssignedTo) {
		s.scheduleAssignment(ctx, actor, &updated[0])
	}
	return &updated[0], nil
}

// DeleteTask soft-deletes a task. Only the creator may delete.
func (s *TaskService) DeleteTask(ctx context.Context, actor *models.User, taskID string) error {
	task, err := s.findLive(ctx, taskID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTask(actor.ID, task) {
		return ErrTaskDeleteForbidden
	}

	now := s.now()
	if err := s.taskRepo.SoftDelete(ctx, task, now); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	task.IsDeleted = true
	task.DeletedAt = &now
	return nil
}

// ListUsers returns every user, for choosing an assignee
func (s *TaskService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *TaskService) findLive(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.taskRepo.FindLive(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// buildTask sanitizes and validates input without touching the database.
func (s *TaskService) buildTask(actor *models.User, input CreateTaskInput) (*models.Task, error) {
	title, err := cleanTitle(input.Title)
	if err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !priority.Valid() {
		return nil, ErrInvalidPriority
	}

	var dueDate *time.Time
	if input.DueDate != nil {
		d := input.DueDate.UTC()
		dueDate = &d
	}

	now := s.now()
	return &models.Task{
		Title:       title,
		Description: sanitize.Ptr(input.Description),
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		Tags:        sanitize.Tags(input.Tags),
		AssignedTo:  input.AssignedTo,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// applyUpdate copies the present fields of input onto task and reports whether tags changed.
func applyUpdate(task *models.Task, input UpdateTaskInput) (bool, error) {
	if input.Title.Set {
		if input.Title.Null {
			return false, fieldNotNullable("title")
		}
		title, err := cleanTitle(input.Title.Value)
		if err != nil {
			return false, err
		}
		task.Title = title
	}

	if input.Description.Set {
		task.Description = sanitize.Ptr(input.Description.Ptr())
	}

	if input.Status.Set {
		if input.Status.Null {
			return false, fieldNotNullable("status")
		}
		if !input.Status.Value.Valid() {
			return false, ErrInvalidStatus
		}
		task.Status = input.Status.Value
	}

	if input.Priority.Set {
		if input.Priority.Null {
			return false, fieldNotNullable("priority")
		}
		if !input.Priority.Value.Valid() {
			return false, ErrInvalidPriority
		}
		task.Priority = input.Priority.Value
	}

	if input.DueDate.Set {
		task.DueDate = nil
		if due := input.DueDate.Ptr(); due != nil {
			d := due.UTC()
			task.DueDate = &d
		}
	}

	if input.AssignedTo.Set {
		task.AssignedTo = input.AssignedTo.Ptr()
	}

	if input.Tags.Set {
		task.Tags = sanitize.Tags(input.Tags.Value)
		return true, nil
	}
	return false, nil
}

func cleanTitle(raw string) (string, error) {
	title := sanitize.String(raw)
	if title == "" {
		return "", ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// checkAssignees verifies every explicit assignee resolves to a user with one query.
func (s *TaskService) checkAssignees(ctx context.Context, tasks []*models.Task) error {
	var ids []string
	for _, t := range tasks {
		if t.AssignedTo != nil {
			ids = append(ids, *t.AssignedTo)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to verify assignees: %w", err)
	}
	for _, id := range ids {
		if _, ok := users[id]; !ok {
			return ErrAssigneeNotFound
		}
	}
	return nil
}

// enrich attaches creator and assignee summaries to every task with one user query.
func (s *TaskService) enrich(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, 0, len(tasks)*2)
	for _, t := range tasks {
		ids = append(ids, t.CreatedBy)
		if t.AssignedTo != nil {
			ids = append(ids, *t.AssignedTo)
		}
	}

	users, err := s.userRepo.FindByIDs(ctx, uniqueStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load task users: %w", err)
	}

	for i := range tasks {
		tasks[i].Creator = users[tasks[i].CreatedBy]
		tasks[i].Assignee = nil
		if tasks[i].AssignedTo != nil {
			if u, ok := users[*tasks[i].AssignedTo]; ok {
				tasks[i].Assignee = &u
			}
		}
	}
	return nil
}

// scheduleAssignment queues a notification for after commit when the task is assigned to someone other than actor.
func (s *TaskService) scheduleAssignment(ctx context.Context, actor *models.User, task *models.Task) {
	if s.queue == nil || task.Assignee == nil || task.Assignee.ID == actor.ID {
		return
	}

	a := notify.Assignment{
		TaskID:         task.ID,
		TaskTitle:      task.Title,
		RecipientEmail: task.Assignee.Email,
		RecipientName:  task.Assignee.Name,
		AssignerName:   actor.Name,
	}
	database.AfterCommit(ctx, func() {
		s.queue.Enqueue(a)
	})
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// enrichAuthors attaches comment authors and file uploaders with one user query.
func enrichAuthors(ctx context.Context, users repository.UserRepository, comments []models.Comment, files []models.File) error {
	ids := make([]string, 0, len(comments)+len(files))
	for _, c := range comments {
		ids = append(ids, c.UserID)
	}
	for _, f := range files {
		ids = append(ids, f.UploadedBy)
	}
	if len(ids) == 0 {
		return nil
	}

	byID, err := users.FindByIDs(ctx, uniqueStrings(ids))
	if err != nil {
		return fmt.Errorf("failed to load authors: %w", err)
	}
	for i := range comments {
		comments[i].User = byID[comments[i].UserID]
	}
	for i := range files {
		files[i].Uploader = byID[files[i].UploadedBy]
	}
	return nil
}
