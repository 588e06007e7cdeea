package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/services"
)

const (
	// maxFilesPerUpload only sizes the request body cap
	maxFilesPerUpload = 10
	// formOverhead covers multipart boundaries and part headers
	formOverhead = 64 << 10
)

type FileHandler struct {
	fileService *services.FileService
}

func NewFileHandler(fileService *services.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// UploadFiles stores every file of the multipart field "files" on the task
func (h *FileHandler) UploadFiles(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.bodyLimit())
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierrors.Respond(c, apierrors.PayloadTooLarge(fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		apierrors.Respond(c, apierrors.BadRequest("Expected multipart form data"))
		return
	}

	headers := form.File["files"]
	uploads := make([]services.Upload, 0, len(headers))
	for _, header := range headers {
		upload, err := h.readUpload(header)
		if err != nil {
			apierrors.Respond(c, err)
			return
		}
		uploads = append(uploads, upload)
	}

	files, err := h.fileService.UploadFiles(c.Request.Context(), user, c.Param("id"), uploads)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.Success(dto.ToFileDTOs(files)))
}

func (h *FileHandler) bodyLimit() int64 {
	return h.fileService.MaxSize()*maxFilesPerUpload + formOverhead
}

// readUpload reads at most one byte past the size limit so oversized files are still rejected by the service.
func (h *FileHandler) readUpload(header *multipart.FileHeader) (services.Upload, error) {
	f, err := header.Open()
	if err != nil {
		return services.Upload{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.fileService.MaxSize()+1))
	if err != nil {
		return services.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}

	return services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// ListFiles returns the task's files oldest first
func (h *FileHandler) ListFiles(c *gin.Context) {
	files, err := h.fileService.ListFiles(c.Request.Context(), c.Param("id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Success(dto.ToFileDTOs(files)))
}

// DownloadFile streams the blob with its original name
func (h *FileHandler) DownloadFile(c *gin.Context) {
	download, err := h.fileService.DownloadFile(c.Request.Context(), c.Param("id"), c.Param("file_id"))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": download.File.OriginalName,
	}))
	c.Data(http.StatusOK, download.File.MimeType, download.Data)
}

// DeleteFile removes a file uploaded by the caller or attached to the caller's task
func (h *FileHandler) DeleteFile(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	if err := h.fileService.DeleteFile(c.Request.Context(), user, c.Param("id"), c.Param("file_id")); err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.Message("File deleted successfully"))
}
