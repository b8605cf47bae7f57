package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenlens/internal/models"
	"greenlens/internal/queue/rabbitmq"
	"greenlens/internal/repository"
	"greenlens/internal/storage"
	"greenlens/internal/upload"
)

type stubStore struct {
	images     []models.Image
	listErr    error
	lastList   repository.ListOptions
	storageRef string
	deleteErr  error
}

func (s *stubStore) Insert(_ context.Context, img models.Image) (models.Image, error) {
	img.ID = uuid.New()
	img.CreatedAt = time.Now().UTC()
	s.images = append(s.images, img)
	return img, nil
}

func (s *stubStore) List(_ context.Context, opts repository.ListOptions) ([]models.Image, error) {
	s.lastList = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.images, nil
}

func (s *stubStore) Get(_ context.Context, id uuid.UUID) (models.Image, error) {
	for _, img := range s.images {
		if img.ID == id {
			return img, nil
		}
	}
	return models.Image{}, models.ErrNotFound
}

func (s *stubStore) Update(_ context.Context, id uuid.UUID, f repository.UpdateFields) error {
	for i, img := range s.images {
		if img.ID == id {
			if f.Name != nil {
				s.images[i].Name = *f.Name
			}
			if f.Description != nil {
				s.images[i].Description = *f.Description
			}
			if f.Category != nil {
				s.images[i].Category = *f.Category
			}
			if f.Location != nil {
				s.images[i].Location = *f.Location
			}
			return nil
		}
	}
	return models.ErrNotFound
}

func (s *stubStore) Delete(_ context.Context, id uuid.UUID) (string, error) {
	if s.deleteErr != nil {
		return "", s.deleteErr
	}
	for i, img := range s.images {
		if img.ID == id {
			s.images = append(s.images[:i], s.images[i+1:]...)
			return img.StorageRef, nil
		}
	}
	return "", models.ErrNotFound
}

type stubBackend struct {
	removeErr error
	removed   []string
}

func (b *stubBackend) Upload(_ context.Context, f models.CaptureFile, folder string, onProgress storage.ProgressFunc) (storage.Reference, error) {
	if onProgress != nil {
		onProgress(f.Size, f.Size)
	}
	return storage.Reference{ContentID: folder + "/" + f.Filename}, nil
}

func (b *stubBackend) DisplayURL(contentID string, _ storage.TransformOptions) string {
	return "https://cdn.example/" + contentID
}

func (b *stubBackend) Remove(_ context.Context, contentID string) error {
	b.removed = append(b.removed, contentID)
	return b.removeErr
}

type stubCleanup struct {
	tasks []rabbitmq.CleanupTask
}

func (c *stubCleanup) PublishCleanup(task rabbitmq.CleanupTask) error {
	c.tasks = append(c.tasks, task)
	return nil
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (string, error) { return "", errors.New("key not found") }
func (noopCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, string) error                           { return nil }

func newTestRouter(store *stubStore, backend *stubBackend, cleanup *stubCleanup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	orchestrator := upload.NewOrchestrator(backend, store, cleanup, "greenlens")
	h := NewHandler(store, orchestrator, backend, cleanup, noopCache{})
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func TestListImagesLenientOnStoreFailure(t *testing.T) {
	store := &stubStore{listErr: errors.New("connection refused")}
	r := newTestRouter(store, &stubBackend{}, &stubCleanup{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images", nil))

	require.Equal(t, http.StatusOK, w.Code, "read failures must render an empty gallery, not an error")
	var body struct {
		Images []models.Image `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Images)
}

func TestListImagesFiltersAndSorts(t *testing.T) {
	store := &stubStore{images: []models.Image{
		{ID: uuid.New(), Name: "Wheat Harvest", Category: models.CategoryCrops, CreatedAt: time.Now()},
		{ID: uuid.New(), Name: "Corn Field", Category: models.CategoryCrops, CreatedAt: time.Now().Add(-time.Hour)},
	}}
	r := newTestRouter(store, &stubBackend{}, &stubCleanup{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images?category=crops&search=wheat&limit=10&sort=name", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.CategoryCrops, store.lastList.Category)
	assert.Equal(t, "wheat", store.lastList.Search)
	assert.Equal(t, 10, store.lastList.Limit)

	var body struct {
		Images []models.Image `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Images, 2)
	assert.Equal(t, "Corn Field", body.Images[0].Name)
	assert.Equal(t, "Wheat Harvest", body.Images[1].Name)
}

func TestListImagesRejectsUnknownCategoryAndSort(t *testing.T) {
	r := newTestRouter(&stubStore{}, &stubBackend{}, &stubCleanup{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images?category=animals", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images?sort=rating", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetImageNotFound(t *testing.T) {
	r := newTestRouter(&stubStore{}, &stubBackend{}, &stubCleanup{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/images/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBatch(t *testing.T, fields map[string]string, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range filenames {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, name))
		h.Set("Content-Type", "image/jpeg")
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(strings.Repeat("x", 128)))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadImagesBatch(t *testing.T) {
	store := &stubStore{}
	r := newTestRouter(store, &stubBackend{}, &stubCleanup{})

	body, contentType := multipartBatch(t, map[string]string{
		"name":        "Rose",
		"description": "A rose from the garden",
		"category":    "flowers",
		"location":    "Home Garden",
	}, "a.jpg", "b.jpg")

	req := httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.AllSucceeded)
	require.Len(t, resp.Images, 2)
	assert.Equal(t, "Rose 1", resp.Images[0].Name)
	assert.Equal(t, "Rose 2", resp.Images[1].Name)
	for _, task := range resp.Tasks {
		assert.Equal(t, upload.TaskSuccess, task.Status)
	}
}

func TestUploadImagesRejectsBadMetadata(t *testing.T) {
	r := newTestRouter(&stubStore{}, &stubBackend{}, &stubCleanup{})

	body, contentType := multipartBatch(t, map[string]string{
		"name":        "",
		"description": "desc",
		"category":    "flowers",
	}, "a.jpg")

	req := httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadImagesRequiresFiles(t *testing.T) {
	r := newTestRouter(&stubStore{}, &stubBackend{}, &stubCleanup{})

	body, contentType := multipartBatch(t, map[string]string{
		"name":        "Rose",
		"description": "desc",
		"category":    "flowers",
	})

	req := httptest.NewRequest(http.MethodPost, "/api/images", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteImageEnqueuesCleanupWhenRemoveFails(t *testing.T) {
	id := uuid.New()
	store := &stubStore{images: []models.Image{{ID: id, Name: "Rose", StorageRef: "greenlens/flowers/rose"}}}
	backend := &stubBackend{removeErr: errors.New("destroy unavailable")}
	cleanup := &stubCleanup{}
	r := newTestRouter(store, backend, cleanup)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/images/"+id.String(), nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"greenlens/flowers/rose"}, backend.removed)
	require.Len(t, cleanup.tasks, 1)
	assert.Equal(t, "greenlens/flowers/rose", cleanup.tasks[0].ContentID)
}

func TestUpdateImageMutableFieldsOnly(t *testing.T) {
	id := uuid.New()
	store := &stubStore{images: []models.Image{{
		ID: id, Name: "Rose", Description: "old", Category: models.CategoryFlowers,
		URL: "https://cdn.example/rose", StorageRef: "ref",
	}}}
	r := newTestRouter(store, &stubBackend{}, &stubCleanup{})

	payload := `{"name":"Garden Rose","category":"nature"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/images/"+id.String(), strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var img models.Image
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &img))
	assert.Equal(t, "Garden Rose", img.Name)
	assert.Equal(t, models.CategoryNature, img.Category)
	assert.Equal(t, "https://cdn.example/rose", img.URL, "url must be immutable")
	assert.Equal(t, "ref", img.StorageRef, "storage_ref must be immutable")
}

func TestUpdateImageNotFound(t *testing.T) {
	r := newTestRouter(&stubStore{}, &stubBackend{}, &stubCleanup{})

	req := httptest.NewRequest(http.MethodPatch, "/api/images/"+uuid.NewString(), strings.NewReader(`{"name":"X"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
