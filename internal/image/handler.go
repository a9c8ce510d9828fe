package image

import (
	"errors"
	"net/http"

	"github.com/youpai/platform/internal/cos"
	"github.com/youpai/platform/internal/middleware"
	"github.com/youpai/platform/internal/response"
)

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	pipeline *Pipeline
}

// NewHandler creates a new image Handler.
func NewHandler(pipeline *Pipeline) *Handler {
	return &Handler{pipeline: pipeline}
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Accepts a multipart image, stores three variants (watermarked original, compressed, cropped) in the content bucket, and records the image for the current user.
//	@Tags			images
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			image	formData	file	true	"Image file"
//	@Success		201		{object}	response.Envelope{data=Detail}
//	@Failure		401		{object}	response.Envelope
//	@Failure		415		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/image [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("image")
	if err != nil {
		response.UnsupportedMediaType(w, "image file field required")
		return
	}
	defer file.Close()

	userID := middleware.UserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, "unauthorized")
		return
	}

	detail, err := h.pipeline.Ingest(r.Context(), userID, header.Filename, file)
	if err != nil {
		var ue *cos.UploadError
		if errors.As(err, &ue) {
			// Surface the store's own status code, per the upload contract.
			response.Error(w, ue.StatusCode, "object store rejected upload")
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, detail)
}
