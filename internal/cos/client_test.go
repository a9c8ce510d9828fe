package cos

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	creds := Credentials{AppID: "app", Bucket: "bkt", SecretID: "id", SecretKey: "key"}
	return NewClient(url, "bkt", creds, time.Minute, 5*time.Second)
}

func TestUploadRequestShape(t *testing.T) {
	var (
		gotPath    string
		gotAuth    string
		gotOp      string
		gotInsert  string
		gotName    string
		gotContent []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("body is not multipart: %v", err)
			return
		}
		gotOp = r.FormValue("op")
		gotInsert = r.FormValue("insertOnly")
		file, header, err := r.FormFile("filecontent")
		if err != nil {
			t.Errorf("missing filecontent field: %v", err)
			return
		}
		defer file.Close()
		gotName = header.Filename
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotContent = buf[:n]
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	err := client.Upload(context.Background(), "sig-value", "comp_a.jpg", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if gotPath != "/bkt/image/comp_a.jpg" {
		t.Errorf("path = %q, want %q", gotPath, "/bkt/image/comp_a.jpg")
	}
	if gotAuth != "sig-value" {
		t.Errorf("Authorization = %q, want signed credential", gotAuth)
	}
	if gotOp != "upload" || gotInsert != "0" {
		t.Errorf("form fields op=%q insertOnly=%q, want upload/0", gotOp, gotInsert)
	}
	if gotName != "comp_a.jpg" {
		t.Errorf("filecontent filename = %q, want comp_a.jpg", gotName)
	}
	if string(gotContent) != "payload" {
		t.Errorf("filecontent body = %q, want payload", gotContent)
	}
}

func TestUploadSurfacesStoreStatus(t *testing.T) {
	for _, status := range []int{400, 403, 500} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := newTestClient(srv.URL)
		err := client.Upload(context.Background(), "sig", "a.jpg", strings.NewReader("x"))
		srv.Close()

		var ue *UploadError
		if !errors.As(err, &ue) {
			t.Fatalf("status %d: expected *UploadError, got %v", status, err)
		}
		if ue.StatusCode != status {
			t.Errorf("UploadError.StatusCode = %d, want %d", ue.StatusCode, status)
		}
		if ue.Key != "a.jpg" {
			t.Errorf("UploadError.Key = %q, want a.jpg", ue.Key)
		}
	}
}

func TestUploadHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := newTestClient(srv.URL)
	err := client.Upload(ctx, "sig", "a.jpg", strings.NewReader("x"))
	if err == nil {
		t.Fatal("expected error from canceled context")
	}
}
