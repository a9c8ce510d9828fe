package image

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/youpai/platform/internal/cos"
)

// Signer produces one authorization credential covering a whole ingestion
// request.
type Signer interface {
	Sign() string
}

// Store persists the Image record once all uploads succeed.
type Store interface {
	Create(ctx context.Context, userID, filename string) (*Image, error)
}

// Pipeline sequences one ingestion: save the upload to transient storage,
// watermark it in place, derive the compressed and cropped variants, push
// all three blobs to the object store under one signed credential, then
// record the Image row. Stages run strictly in that order; the first
// failure aborts the rest. Already-uploaded blobs are not compensated.
type Pipeline struct {
	transformer *Transformer
	signer      Signer
	uploader    cos.Uploader
	store       Store
	imageHost   string
}

// NewPipeline wires the ingestion stages together.
func NewPipeline(t *Transformer, signer Signer, uploader cos.Uploader, store Store, imageHost string) *Pipeline {
	return &Pipeline{
		transformer: t,
		signer:      signer,
		uploader:    uploader,
		store:       store,
		imageHost:   imageHost,
	}
}

// Ingest runs the pipeline for one uploaded file and returns the created
// Image detail. Temp files are removed on every exit path.
func (p *Pipeline) Ingest(ctx context.Context, userID, clientName string, file io.Reader) (*Detail, error) {
	filename := newFilename(clientName)

	dir, err := os.MkdirTemp("", "ingest-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	origPath := filepath.Join(dir, filename)
	compPath := filepath.Join(dir, "comp_"+filename)
	cropPath := filepath.Join(dir, "crop_comp_"+filename)

	if err := saveUpload(origPath, file); err != nil {
		return nil, err
	}

	src, err := imaging.Open(origPath)
	if err != nil {
		return nil, fmt.Errorf("decode upload: %w", err)
	}

	stamped := p.transformer.Stamp(src)
	if err := imaging.Save(stamped, origPath); err != nil {
		return nil, fmt.Errorf("save watermarked original: %w", err)
	}
	if err := imaging.Save(Compress(stamped), compPath); err != nil {
		return nil, fmt.Errorf("save compressed variant: %w", err)
	}
	if err := imaging.Save(CropSquare(stamped), cropPath); err != nil {
		return nil, fmt.Errorf("save cropped variant: %w", err)
	}

	// One credential covers all three uploads. Order is part of the
	// contract: compressed, then cropped, then the watermarked original.
	auth := p.signer.Sign()
	for _, path := range []string{compPath, cropPath, origPath} {
		if err := p.uploadFile(ctx, auth, path); err != nil {
			return nil, err
		}
	}

	img, err := p.store.Create(ctx, userID, filename)
	if err != nil {
		return nil, fmt.Errorf("persist image: %w", err)
	}

	detail := img.Detail(p.imageHost)
	return &detail, nil
}

func (p *Pipeline) uploadFile(ctx context.Context, auth, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open variant: %w", err)
	}
	defer f.Close()
	return p.uploader.Upload(ctx, auth, filepath.Base(path), f)
}

func saveUpload(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("save upload: %w", err)
	}
	return nil
}

// newFilename builds the globally unique object key: a fresh UUID plus the
// client file's extension. Client-chosen basenames are never trusted.
func newFilename(clientName string) string {
	u := uuid.New()
	return hex.EncodeToString(u[:]) + strings.ToLower(filepath.Ext(clientName))
}
