package image

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/youpai/platform/internal/cos"
)

const testHost = "http://cdn.test/image/"

type fixedSigner struct{}

func (fixedSigner) Sign() string { return "test-credential" }

type uploadCall struct {
	auth string
	key  string
	data []byte
}

type fakeUploader struct {
	calls  []uploadCall
	failAt int // 1-based call number to reject, 0 = never
	status int
}

func (f *fakeUploader) Upload(_ context.Context, auth, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.calls = append(f.calls, uploadCall{auth: auth, key: key, data: data})
	if f.failAt == len(f.calls) {
		return &cos.UploadError{Key: key, StatusCode: f.status}
	}
	return nil
}

type fakeStore struct {
	created []string
	err     error
}

func (s *fakeStore) Create(_ context.Context, userID, filename string) (*Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, filename)
	return &Image{ID: "img-1", UserID: userID, Filename: filename, CreatedAt: time.Now()}, nil
}

func newTestPipeline(t *testing.T, up *fakeUploader, st *fakeStore) *Pipeline {
	t.Helper()
	tr, err := NewTransformer("youpai", "", 32)
	if err != nil {
		t.Fatalf("NewTransformer: %v", err)
	}
	return NewPipeline(tr, fixedSigner{}, up, st, testHost)
}

func jpegBytes(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 90, G: 120, B: 150, A: 255})
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		t.Fatalf("encode test jpeg: %v", err)
	}
	return &buf
}

func TestIngestEndToEnd(t *testing.T) {
	up := &fakeUploader{}
	st := &fakeStore{}
	p := newTestPipeline(t, up, st)

	detail, err := p.Ingest(context.Background(), "user-1", "photo.jpg", jpegBytes(t, 2000, 1000))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if len(st.created) != 1 {
		t.Fatalf("store.Create called %d times, want 1", len(st.created))
	}
	name := st.created[0]
	if !strings.HasSuffix(name, ".jpg") {
		t.Errorf("stored filename %q should keep the .jpg extension", name)
	}

	if len(up.calls) != 3 {
		t.Fatalf("got %d uploads, want 3", len(up.calls))
	}
	wantKeys := []string{"comp_" + name, "crop_comp_" + name, name}
	for i, call := range up.calls {
		if call.key != wantKeys[i] {
			t.Errorf("upload %d key = %q, want %q", i, call.key, wantKeys[i])
		}
		if call.auth != "test-credential" {
			t.Errorf("upload %d used credential %q, want the shared one", i, call.auth)
		}
	}

	comp, err := imaging.Decode(bytes.NewReader(up.calls[0].data))
	if err != nil {
		t.Fatalf("decode compressed upload: %v", err)
	}
	if comp.Bounds().Dx() != 1080 || comp.Bounds().Dy() != 540 {
		t.Errorf("compressed variant = %dx%d, want 1080x540",
			comp.Bounds().Dx(), comp.Bounds().Dy())
	}

	crop, err := imaging.Decode(bytes.NewReader(up.calls[1].data))
	if err != nil {
		t.Fatalf("decode cropped upload: %v", err)
	}
	if crop.Bounds().Dx() != 1000 || crop.Bounds().Dy() != 1000 {
		t.Errorf("cropped variant = %dx%d, want 1000x1000",
			crop.Bounds().Dx(), crop.Bounds().Dy())
	}

	if detail.Path != testHost+name {
		t.Errorf("path = %q, want %q", detail.Path, testHost+name)
	}
	if detail.CompressedPath != testHost+"comp_"+name {
		t.Errorf("compressed_path = %q, want %q", detail.CompressedPath, testHost+"comp_"+name)
	}
	if detail.CropedPath != testHost+"crop_comp_"+name {
		t.Errorf("croped_path = %q, want %q", detail.CropedPath, testHost+"crop_comp_"+name)
	}
}

func TestIngestNonImageNeverUploads(t *testing.T) {
	up := &fakeUploader{}
	st := &fakeStore{}
	p := newTestPipeline(t, up, st)

	_, err := p.Ingest(context.Background(), "user-1", "notes.jpg",
		strings.NewReader("this is not an image"))
	if err == nil {
		t.Fatal("expected error for non-image payload")
	}
	if len(up.calls) != 0 {
		t.Errorf("got %d uploads, want 0 before transform succeeds", len(up.calls))
	}
	if len(st.created) != 0 {
		t.Errorf("image row persisted despite transform failure")
	}
}

func TestIngestStoreFailureAbortsRemainingUploads(t *testing.T) {
	for failAt := 1; failAt <= 3; failAt++ {
		up := &fakeUploader{failAt: failAt, status: 500}
		st := &fakeStore{}
		p := newTestPipeline(t, up, st)

		_, err := p.Ingest(context.Background(), "user-1", "photo.jpg", jpegBytes(t, 1200, 900))
		if err == nil {
			t.Fatalf("failAt=%d: expected error", failAt)
		}

		var ue *cos.UploadError
		if !errors.As(err, &ue) || ue.StatusCode != 500 {
			t.Errorf("failAt=%d: error %v does not carry the store status", failAt, err)
		}
		if len(up.calls) != failAt {
			t.Errorf("failAt=%d: %d upload calls issued, want %d", failAt, len(up.calls), failAt)
		}
		if len(st.created) != 0 {
			t.Errorf("failAt=%d: image row persisted despite upload failure", failAt)
		}
	}
}

func TestIngestPersistFailureSurfaces(t *testing.T) {
	up := &fakeUploader{}
	st := &fakeStore{err: errors.New("unique violation")}
	p := newTestPipeline(t, up, st)

	_, err := p.Ingest(context.Background(), "user-1", "photo.jpg", jpegBytes(t, 800, 800))
	if err == nil {
		t.Fatal("expected persistence error to surface")
	}
	if len(up.calls) != 3 {
		t.Errorf("got %d uploads, want all 3 before the persist step", len(up.calls))
	}
}

func TestNewFilenameUniqueAndKeepsExtension(t *testing.T) {
	a := newFilename("IMG_2041.JPG")
	b := newFilename("IMG_2041.JPG")
	if a == b {
		t.Error("two generated filenames collide")
	}
	if !strings.HasSuffix(a, ".jpg") {
		t.Errorf("filename %q should keep a lowercased extension", a)
	}
}
