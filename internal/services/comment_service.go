package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/policy"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/sanitize"
	"gorm.io/gorm"
)

// CommentService handles comment business logic
type CommentService struct {
	taskRepo    repository.TaskRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	now         func() time.Time
}

// NewCommentService creates a new CommentService
func NewCommentService(
	taskRepo repository.TaskRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
) *CommentService {
	return &CommentService{
		taskRepo:    taskRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ListComments returns a task's comments oldest first. Comments of a soft-deleted task stay readable.
func (s *CommentService) ListComments(ctx context.Context, taskID string) ([]models.Comment, error) {
	if _, err := s.findTask(ctx, taskID, false); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	if err := enrichAuthors(ctx, s.userRepo, comments, nil); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateComment adds a comment by actor to a live task
func (s *CommentService) CreateComment(ctx context.Context, actor *models.User, taskID, content string) (*models.Comment, error) {
	if _, err := s.findTask(ctx, taskID, true); err != nil {
		return nil, err
	}

	cleaned, err := cleanContent(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	comment := &models.Comment{
		Content:   cleaned,
		TaskID:    taskID,
		UserID:    actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.User = *actor
	return comment, nil
}

// UpdateComment replaces the content of actor's own comment
func (s *CommentService) UpdateComment(ctx context.Context, actor *models.User, taskID, commentID, content string) (*models.Comment, error) {
	comment, err := s.findComment(ctx, taskID, commentID)
	if err != nil {
		return nil, err
	}
	if !policy.CanModifyComment(actor.ID, comment) {
		return nil, ErrCommentUpdateForbidden
	}

	cleaned, err := cleanContent(content)
	if err != nil {
		return nil, err
	}

	comment.Content = cleaned
	comment.UpdatedAt = s.now()
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	comment.User = *actor
	return comment, nil
}

// DeleteComment removes actor's own comment
func (s *CommentService) DeleteComment(ctx context.Context, actor *models.User, taskID, commentID string) error {
	comment, err := s.findComment(ctx, taskID, commentID)
	if err != nil {
		return err
	}
	if !policy.CanModifyComment(actor.ID, comment) {
		return ErrCommentDeleteForbidden
	}

	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (s *CommentService) findTask(ctx context.Context, taskID string, liveOnly bool) (*models.Task, error) {
	find := s.taskRepo.FindAny
	if liveOnly {
		find = s.taskRepo.FindLive
	}

	task, err := find(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// findComment loads a comment and checks it belongs to taskID.
func (s *CommentService) findComment(ctx context.Context, taskID, commentID string) (*models.Comment, error) {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}
	if comment.TaskID != taskID {
		return nil, ErrCommentNotFound
	}
	return comment, nil
}

func cleanContent(raw string) (string, error) {
	content := sanitize.String(raw)
	if content == "" {
		return "", ErrCommentContentRequired
	}
	if utf8.RuneCountInString(content) > constants.MaxCommentLength {
		return "", ErrCommentTooLong
	}
	return content, nil
}
