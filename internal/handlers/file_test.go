package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/testutil"
)

type part struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, path string, parts ...part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := mw.CreateFormFile("files", p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFileHandler_UploadDownloadDelete(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "Alice", "alice@example.com")
	bob := testutil.CreateUser(t, env.db, "Bob", "bob@example.com")
	task := testutil.CreateTask(t, env.db, "Attach", alice.ID)
	base := "/api/tasks/" + task.ID + "/files"

	w := env.send(t, multipartRequest(t, base,
		part{name: "notes.txt", data: []byte("hello world")},
		part{name: "résumé final.md", data: []byte("# cv")},
	), bob)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	files := decode[[]dto.FileDTO](t, w).Data
	require.Len(t, files, 2)
	assert.Equal(t, "notes.txt", files[0].OriginalName)
	assert.Equal(t, int64(11), files[0].Size)
	assert.NotEqual(t, files[0].OriginalName, files[0].Filename)

	w = env.request(t, http.MethodGet, base+"/"+files[1].ID, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# cv", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "filename*=utf-8''r%C3%A9sum%C3%A9%20final.md")

	w = env.request(t, http.MethodGet, base, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.FileDTO](t, w).Data, 2)

	// the task creator may remove files uploaded by others
	w = env.request(t, http.MethodDelete, base+"/"+files[0].ID, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "File deleted successfully", decode[any](t, w).Message)

	_, err := env.blobs.Read(t.Context(), files[0].Filename)
	assert.Error(t, err)

	w = env.request(t, http.MethodGet, base+"/"+files[0].ID, nil, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFileHandler_RejectsWholeBatch(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "Alice", "alice@example.com")
	task := testutil.CreateTask(t, env.db, "Attach", alice.ID)
	base := "/api/tasks/" + task.ID + "/files"

	w := env.send(t, multipartRequest(t, base,
		part{name: "ok.txt", data: []byte("fine")},
		part{name: "run.exe", data: []byte("MZ")},
	), alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[any](t, w).Error.Message, "run.exe")

	w = env.send(t, multipartRequest(t, base,
		part{name: "big.txt", data: []byte(strings.Repeat("x", testMaxUploadSize+1))},
	), alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.send(t, multipartRequest(t, base), alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var n int64
	require.NoError(t, env.db.Model(&models.File{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestFileHandler_RejectsOversizedBody(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "Alice", "alice@example.com")
	task := testutil.CreateTask(t, env.db, "Attach", alice.ID)
	base := "/api/tasks/" + task.ID + "/files"

	w := env.send(t, multipartRequest(t, base,
		part{name: "ok.txt", data: []byte("fine")},
		part{name: "huge.bin", data: bytes.Repeat([]byte("x"), 128<<10)},
	), alice)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", decode[any](t, w).Error.Code)

	var n int64
	require.NoError(t, env.db.Model(&models.File{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestFileHandler_DeleteForbidden(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := testutil.CreateUser(t, env.db, "Alice", "alice@example.com")
	bob := testutil.CreateUser(t, env.db, "Bob", "bob@example.com")
	task := testutil.CreateTask(t, env.db, "Attach", alice.ID)
	base := "/api/tasks/" + task.ID + "/files"

	w := env.send(t, multipartRequest(t, base, part{name: "a.txt", data: []byte("a")}), alice)
	require.Equal(t, http.StatusCreated, w.Code)
	file := decode[[]dto.FileDTO](t, w).Data[0]

	w = env.request(t, http.MethodDelete, base+"/"+file.ID, nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	data, err := env.blobs.Read(t.Context(), file.Filename)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), data)
}
