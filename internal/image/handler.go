package image

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/medicuris/service/internal/response"
)

// Handler holds HTTP handlers for the image endpoints.
type Handler struct {
	svc       *Service
	maxMemory int64
	log       zerolog.Logger
}

// NewHandler creates a new image Handler. maxMemory is the multipart parser's
// in-memory threshold; larger parts spill to temporary files.
func NewHandler(svc *Service, maxMemory int64, log zerolog.Logger) *Handler {
	return &Handler{
		svc:       svc,
		maxMemory: maxMemory,
		log:       log.With().Str("component", "image-handler").Logger(),
	}
}

// Routes mounts the image endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Upload)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// Upload godoc
//
//	@Summary		Upload image
//	@Description	Store the file in the bucket under uploads/<uuid>-<filename> with a public-read ACL, then record its metadata.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Success		200		{object}	UploadResult
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Failure		502		{object}	response.ErrorBody
//	@Router			/images [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil {
		response.BadRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.log.Error().Err(err).Msg("read upload")
		response.InternalError(w)
		return
	}

	result, err := h.svc.Upload(r.Context(), File{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	switch {
	case errors.Is(err, ErrStorageWrite):
		response.BadGateway(w, "storage write failed")
		return
	case err != nil:
		response.InternalError(w)
		return
	}

	response.OK(w, result)
}

// List godoc
//
//	@Summary		List images
//	@Tags			images
//	@Produce		json
//	@Success		200	{array}		Image
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/images [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.svc.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list images")
		response.InternalError(w)
		return
	}
	response.OK(w, images)
}

// Get godoc
//
//	@Summary		Get image record
//	@Tags			images
//	@Produce		json
//	@Param			id	path		int	true	"Image ID"
//	@Success		200	{object}	Image
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/images/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid image id")
		return
	}

	img, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "image not found")
			return
		}
		h.log.Error().Err(err).Int64("image_id", id).Msg("get image")
		response.InternalError(w)
		return
	}
	response.OK(w, img)
}
