package image

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/youpai/platform/internal/middleware"
)

func multipartBody(t *testing.T, field string, payload io.Reader) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "photo.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.Copy(fw, payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, field string, payload io.Reader) *http.Request {
	t.Helper()
	body, contentType := multipartBody(t, field, payload)
	req := httptest.NewRequest(http.MethodPost, "/user/image", body)
	req.Header.Set("Content-Type", contentType)
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, "user-1")
	return req.WithContext(ctx)
}

func TestUploadReturnsDetail(t *testing.T) {
	up := &fakeUploader{}
	st := &fakeStore{}
	h := NewHandler(newTestPipeline(t, up, st))

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "image", jpegBytes(t, 1200, 900)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var envelope struct {
		Success bool   `json:"success"`
		Data    Detail `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Success {
		t.Error("success = false, want true")
	}
	if envelope.Data.Path == "" || envelope.Data.CompressedPath == "" || envelope.Data.CropedPath == "" {
		t.Errorf("detail has empty url fields: %+v", envelope.Data)
	}
}

func TestUploadMissingPartIs415(t *testing.T) {
	up := &fakeUploader{}
	st := &fakeStore{}
	h := NewHandler(newTestPipeline(t, up, st))

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "wrong_field", jpegBytes(t, 400, 400)))

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	if len(up.calls) != 0 {
		t.Errorf("got %d uploads for a malformed request, want 0", len(up.calls))
	}
}

func TestUploadCarriesStoreStatus(t *testing.T) {
	for _, status := range []int{400, 403, 500} {
		up := &fakeUploader{failAt: 1, status: status}
		st := &fakeStore{}
		h := NewHandler(newTestPipeline(t, up, st))

		rec := httptest.NewRecorder()
		h.Upload(rec, uploadRequest(t, "image", jpegBytes(t, 400, 400)))

		if rec.Code != status {
			t.Errorf("store status %d: response status = %d, want passthrough", status, rec.Code)
		}
		if len(st.created) != 0 {
			t.Errorf("store status %d: image row persisted despite upload failure", status)
		}
	}
}

type statusSource map[string]string

func (s statusSource) AccountStatus(_ context.Context, userID string) (string, bool, error) {
	return s[userID], false, nil
}

// The upload route admits confirmed and reviewed accounts only, checked
// against the persisted status rather than the token claim.
func TestUploadRouteStatusGate(t *testing.T) {
	const secret = "test-secret"
	src := statusSource{}
	r := chi.NewRouter()
	r.With(
		middleware.RequireAuth(secret),
		middleware.RequireCurrentStatus(src, "confirmed", "reviewed"),
	).Post("/user/image", NewHandler(newTestPipeline(t, &fakeUploader{}, &fakeStore{})).Upload)

	tests := []struct {
		status string
		want   int
	}{
		{"unconfirmed", http.StatusForbidden},
		{"confirmed", http.StatusCreated},
		{"reviewing", http.StatusForbidden},
		{"reviewed", http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			src["user-1"] = tt.status
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"sub":    "user-1",
				"status": tt.status,
				"exp":    time.Now().Add(time.Hour).Unix(),
			}).SignedString([]byte(secret))
			if err != nil {
				t.Fatalf("sign token: %v", err)
			}

			body, contentType := multipartBody(t, "image", jpegBytes(t, 400, 400))
			req := httptest.NewRequest(http.MethodPost, "/user/image", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+token)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status %s: response = %d, want %d", tt.status, rec.Code, tt.want)
			}
		})
	}
}

func TestUploadNonImageIs500(t *testing.T) {
	up := &fakeUploader{}
	st := &fakeStore{}
	h := NewHandler(newTestPipeline(t, up, st))

	rec := httptest.NewRecorder()
	h.Upload(rec, uploadRequest(t, "image", bytes.NewBufferString("not an image")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if len(up.calls) != 0 {
		t.Errorf("got %d uploads for undecodable payload, want 0", len(up.calls))
	}
}
