package medicine

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/medicuris/service/internal/response"
)

// Handler holds HTTP handlers for the medicine endpoints.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

// NewHandler creates a new medicine Handler.
func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log.With().Str("component", "medicine-handler").Logger()}
}

// Routes mounts the medicine endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// Create godoc
//
//	@Summary		Create medicine
//	@Description	Insert a new medicine. Fields are stored exactly as supplied.
//	@Tags			medicines
//	@Accept			json
//	@Produce		json
//	@Param			request	body		Fields	true	"Medicine fields"
//	@Success		200		{object}	Medicine
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/medicines [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req Fields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	m, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.log.Error().Err(err).Msg("create medicine")
		response.InternalError(w)
		return
	}

	response.OK(w, m)
}

// Update godoc
//
//	@Summary		Update medicine
//	@Description	Overwrite every field of an existing medicine.
//	@Tags			medicines
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int		true	"Medicine ID"
//	@Param			request	body		Fields	true	"Medicine fields"
//	@Success		200		{object}	Medicine
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		404		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/medicines/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req Fields
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	m, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err, "update medicine")
		return
	}

	response.OK(w, m)
}

// Get godoc
//
//	@Summary		Get medicine
//	@Tags			medicines
//	@Produce		json
//	@Param			id	path		int	true	"Medicine ID"
//	@Success		200	{object}	Medicine
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/medicines/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	m, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get medicine")
		return
	}

	response.OK(w, m)
}

// List godoc
//
//	@Summary		List medicines
//	@Description	Returns every medicine. With q, only those whose name or description contains q (case-insensitive).
//	@Tags			medicines
//	@Produce		json
//	@Param			q	query		string	false	"Search term"
//	@Success		200	{array}		Medicine
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/medicines [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.svc.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.log.Error().Err(err).Msg("list medicines")
		response.InternalError(w)
		return
	}

	response.OK(w, medicines)
}

// Delete godoc
//
//	@Summary		Delete medicine
//	@Description	Remove a medicine. Deleting an unknown id also returns 204.
//	@Tags			medicines
//	@Param			id	path	int	true	"Medicine ID"
//	@Success		204
//	@Failure		400	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/medicines/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.log.Error().Err(err).Int64("medicine_id", id).Msg("delete medicine")
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	if h.svc.IsNotFound(err) {
		response.NotFound(w, "medicine not found")
		return
	}
	h.log.Error().Err(err).Msg(op)
	response.InternalError(w)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "invalid medicine id")
		return 0, false
	}
	return id, true
}
