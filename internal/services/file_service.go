package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yukikurage/taskflow-api/internal/database"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/policy"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/storage"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"gorm.io/gorm"
)

// AllowedExtensions lists the file types that may be uploaded.
var AllowedExtensions = map[string]struct{}{
	// images
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".svg": {},
	// documents
	".pdf": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {}, ".ppt": {}, ".pptx": {},
	// text and data
	".txt": {}, ".csv": {}, ".json": {}, ".xml": {}, ".md": {},
	// archives
	".zip": {}, ".tar": {}, ".gz": {}, ".rar": {},
}

// Upload is one file received from a client, already read into memory.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Download is a file's metadata with its contents.
type Download struct {
	File models.File
	Data []byte
}

// FileService handles task attachments
type FileService struct {
	taskRepo repository.TaskRepository
	fileRepo repository.FileRepository
	userRepo repository.UserRepository
	blobs    storage.BlobStore
	maxSize  int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewFileService creates a new FileService
func NewFileService(
	taskRepo repository.TaskRepository,
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	blobs storage.BlobStore,
	maxSize int64,
	logger *slog.Logger,
) *FileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileService{
		taskRepo: taskRepo,
		fileRepo: fileRepo,
		userRepo: userRepo,
		blobs:    blobs,
		maxSize:  maxSize,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// MaxSize is the largest accepted upload in bytes.
func (s *FileService) MaxSize() int64 {
	return s.maxSize
}

// UploadFiles validates every upload, then writes the blobs and their records.
// Nothing is written when any upload is rejected; blobs already written are removed if a later step fails.
func (s *FileService) UploadFiles(ctx context.Context, actor *models.User, taskID string, uploads []Upload) ([]models.File, error) {
	if _, err := s.findTask(ctx, taskID, true); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, ErrNoFiles
	}
	for _, u := range uploads {
		if err := s.validate(u); err != nil {
			return nil, err
		}
	}

	now := s.now()
	records := make([]*models.File, 0, len(uploads))
	written := make([]string, 0, len(uploads))
	for _, u := range uploads {
		storedName := utils.GenerateStoredName(u.Filename)
		contentType := u.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(u.Data)
		}

		if err := s.blobs.Write(ctx, storedName, u.Data, contentType); err != nil {
			s.removeBlobs(written)
			return nil, fmt.Errorf("failed to store file: %w", err)
		}
		written = append(written, storedName)

		records = append(records, &models.File{
			StoredName:   storedName,
			OriginalName: u.Filename,
			MimeType:     contentType,
			Size:         int64(len(u.Data)),
			TaskID:       taskID,
			UploadedBy:   actor.ID,
			CreatedAt:    now,
		})
	}

	if err := s.fileRepo.CreateMany(ctx, records); err != nil {
		s.removeBlobs(written)
		return nil, fmt.Errorf("failed to save file records: %w", err)
	}

	files := make([]models.File, len(records))
	for i, r := range records {
		files[i] = *r
		files[i].Uploader = *actor
	}
	return files, nil
}

// ListFiles returns a task's files oldest first. Files of a soft-deleted task stay readable.
func (s *FileService) ListFiles(ctx context.Context, taskID string) ([]models.File, error) {
	if _, err := s.findTask(ctx, taskID, false); err != nil {
		return nil, err
	}

	files, err := s.fileRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if err := enrichAuthors(ctx, s.userRepo, nil, files); err != nil {
		return nil, err
	}
	return files, nil
}

// DownloadFile returns a file's metadata and contents
func (s *FileService) DownloadFile(ctx context.Context, taskID, fileID string) (*Download, error) {
	if _, err := s.findTask(ctx, taskID, false); err != nil {
		return nil, err
	}
	file, err := s.findFile(ctx, taskID, fileID)
	if err != nil {
		return nil, err
	}

	data, err := s.blobs.Read(ctx, file.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrFileBlobMissing
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return &Download{File: *file, Data: data}, nil
}

// DeleteFile removes a file record now and its blob once the transaction commits.
// Only the uploader or the task's creator may delete.
func (s *FileService) DeleteFile(ctx context.Context, actor *models.User, taskID, fileID string) error {
	task, err := s.findTask(ctx, taskID, false)
	if err != nil {
		return err
	}
	file, err := s.findFile(ctx, taskID, fileID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteFile(actor.ID, file, task) {
		return ErrFileDeleteForbidden
	}

	if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	storedName := file.StoredName
	database.AfterCommit(ctx, func() {
		s.removeBlobs([]string{storedName})
	})
	return nil
}

func (s *FileService) validate(u Upload) error {
	if strings.TrimSpace(u.Filename) == "" {
		return ErrFileNameRequired
	}
	if _, ok := AllowedExtensions[utils.FileExtension(u.Filename)]; !ok {
		return apierrors.BadRequest(fmt.Sprintf("File type not allowed: %s", u.Filename))
	}
	if int64(len(u.Data)) > s.maxSize {
		return apierrors.BadRequest(fmt.Sprintf("File %s exceeds the maximum size of %d bytes", u.Filename, s.maxSize))
	}
	return nil
}

func (s *FileService) findTask(ctx context.Context, taskID string, liveOnly bool) (*models.Task, error) {
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

func (s *FileService) findFile(ctx context.Context, taskID, fileID string) (*models.File, error) {
	file, err := s.fileRepo.FindByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	if file.TaskID != taskID {
		return nil, ErrFileNotFound
	}
	return file, nil
}

// removeBlobs deletes blobs outside the request context so cleanup survives a cancelled request.
func (s *FileService) removeBlobs(names []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, name := range names {
		if err := s.blobs.Delete(ctx, name); err != nil {
			s.logger.Warn("failed to remove blob", "name", name, "error", err)
		}
	}
}
