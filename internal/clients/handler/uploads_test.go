package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"concierge_backend/internal/adapters/storage"
	"concierge_backend/internal/clients/repository"
	"concierge_backend/internal/clients/service"
	"concierge_backend/internal/events"
	"concierge_backend/internal/regtoken"
	"concierge_backend/platform/httpkit"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// fakeClientStore serves a single client record; everything the upload
// routes do not touch fails loudly.
type fakeClientStore struct {
	client repository.Client
}

func (f *fakeClientStore) ConsultationForRegistration(context.Context, uuid.UUID) (repository.ConsultationSnapshot, error) {
	return repository.ConsultationSnapshot{}, repository.ErrNotFound
}

func (f *fakeClientStore) Register(context.Context, repository.RegisterParams) (repository.Client, error) {
	return repository.Client{}, repository.ErrTokenConsumed
}

func (f *fakeClientStore) GetByID(_ context.Context, id uuid.UUID) (repository.Client, error) {
	if f.client.ID != id {
		return repository.Client{}, repository.ErrNotFound
	}
	return f.client, nil
}

func (f *fakeClientStore) GetByUserID(_ context.Context, userID uuid.UUID) (repository.Client, error) {
	if f.client.UserID != userID {
		return repository.Client{}, repository.ErrNotFound
	}
	return f.client, nil
}

func (f *fakeClientStore) List(context.Context) ([]repository.Client, error) {
	return []repository.Client{f.client}, nil
}

func (f *fakeClientStore) UpdateProfile(context.Context, uuid.UUID, repository.UpdateProfileParams) (repository.Client, error) {
	return repository.Client{}, errors.New("not expected in upload tests")
}

func (f *fakeClientStore) SubmitOnboarding(context.Context, uuid.UUID, []byte) (repository.Client, error) {
	return repository.Client{}, errors.New("not expected in upload tests")
}

func (f *fakeClientStore) ReplaceOnboardingAnswers(context.Context, uuid.UUID, []byte) (repository.Client, error) {
	return repository.Client{}, errors.New("not expected in upload tests")
}

func (f *fakeClientStore) UnlockProfile(context.Context, uuid.UUID, uuid.UUID) (repository.Client, error) {
	return repository.Client{}, errors.New("not expected in upload tests")
}

type fakeObjectStore struct {
	downloadKeys []string
	uploadCalls  int
}

func (f *fakeObjectStore) GenerateUploadURL(_ context.Context, _ storage.FileKind, folder, fileName, _ string, _ int64) (*storage.PresignedURL, error) {
	f.uploadCalls++
	return &storage.PresignedURL{
		URL:       "https://objects.test/put",
		FileKey:   folder + "/" + fileName,
		ExpiresAt: time.Now().Add(storage.PresignedURLTTL),
	}, nil
}

func (f *fakeObjectStore) GenerateDownloadURL(_ context.Context, _ storage.FileKind, fileKey string) (*storage.PresignedURL, error) {
	f.downloadKeys = append(f.downloadKeys, fileKey)
	return &storage.PresignedURL{
		URL:       "https://objects.test/get/" + fileKey,
		FileKey:   fileKey,
		ExpiresAt: time.Now().Add(storage.PresignedURLTTL),
	}, nil
}

func (f *fakeObjectStore) DownloadFile(context.Context, storage.FileKind, string) (io.ReadCloser, error) {
	return nil, errors.New("not expected in upload tests")
}

func (f *fakeObjectStore) DeleteObject(context.Context, storage.FileKind, string) error {
	return nil
}

func (f *fakeObjectStore) EnsureBuckets(context.Context) error { return nil }

func (f *fakeObjectStore) ValidateUpload(storage.FileKind, string, int64) error { return nil }

type noopBus struct{}

func (noopBus) Subscribe(string, events.Handler) {}

func (noopBus) Publish(context.Context, events.Event) {}

func (noopBus) PublishSync(context.Context, events.Event) error { return nil }

type noResubmitCfg struct{}

func (noResubmitCfg) GetOnboardingAllowResubmit() bool { return false }

func newUploadsRouter(t *testing.T, client repository.Client, objects *fakeObjectStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := regtoken.NewWithClock("test-secret-test-secret-test-1234", 72*time.Hour, 168*time.Hour, time.Now)
	svc := service.New(&fakeClientStore{client: client}, tokens, noopBus{}, noResubmitCfg{}, logger.New("test"))
	h := New(svc, validator.New(), objects)

	engine := gin.New()
	group := engine.Group("/api/v1")
	group.Use(func(c *gin.Context) { c.Set(httpkit.ContextUserIDKey, client.UserID) })
	h.RegisterUploadRoutes(group)
	return engine
}

func TestResumeDownloadURL(t *testing.T) {
	userID := uuid.New()
	fileKey := userID.String() + "/resume_1a2b3c4d.pdf"
	client := repository.Client{ID: uuid.New(), UserID: userID, Email: "client@example.com", ResumeURL: &fileKey}
	objects := &fakeObjectStore{}
	engine := newUploadsRouter(t, client, objects)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/resume/download-url", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var got storage.PresignedURL
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.FileKey != fileKey {
		t.Fatalf("fileKey = %s, want %s", got.FileKey, fileKey)
	}
	if len(objects.downloadKeys) != 1 || objects.downloadKeys[0] != fileKey {
		t.Fatalf("download requested for %v, want [%s]", objects.downloadKeys, fileKey)
	}
}

func TestResumeDownloadURLWithoutResume(t *testing.T) {
	client := repository.Client{ID: uuid.New(), UserID: uuid.New(), Email: "client@example.com"}
	objects := &fakeObjectStore{}
	engine := newUploadsRouter(t, client, objects)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile/resume/download-url", nil)
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if len(objects.downloadKeys) != 0 {
		t.Fatalf("no download URL may be generated without a stored resume")
	}
}

func TestResumeUploadURL(t *testing.T) {
	client := repository.Client{ID: uuid.New(), UserID: uuid.New(), Email: "client@example.com"}
	objects := &fakeObjectStore{}
	engine := newUploadsRouter(t, client, objects)

	body := strings.NewReader(`{"fileName":"cv.pdf","contentType":"application/pdf","sizeBytes":2048}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/resume/upload-url", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if objects.uploadCalls != 1 {
		t.Fatalf("upload URL calls = %d, want 1", objects.uploadCalls)
	}
}
