package movie

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/reelstack/catalog/internal/response"
)

// maxUploadBytes caps the in-memory portion of a multipart request.
const maxUploadBytes = 32 << 20

// Handler holds HTTP handlers for movie endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a new movie Handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes returns the router for the /movies resource.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	return r
}

// List godoc
//
//	@Summary		List and search movies
//	@Description	Lists movies with optional genre filter, sorting, limit, and a case-insensitive title search applied to the fetched page.
//	@Tags			movies
//	@Produce		json
//	@Param			q		query		string	false	"Substring to match against titles"
//	@Param			genre	query		string	false	"Exact genre filter"
//	@Param			sort	query		string	false	"Sort field: rating, title or createdAt"	default(createdAt)
//	@Param			order	query		string	false	"Sort direction: asc or desc"				default(desc)
//	@Param			limit	query		int		false	"Maximum records fetched"					default(20)
//	@Success		200		{object}	map[string][]Movie
//	@Failure		500		{object}	map[string]string
//	@Router			/movies [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := Query{
		Q:     r.URL.Query().Get("q"),
		Genre: r.URL.Query().Get("genre"),
		Sort:  r.URL.Query().Get("sort"),
		Order: r.URL.Query().Get("order"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			query.Limit = n
		}
	}
	if query.Sort == "" {
		query.Sort = "createdAt"
	}

	movies, err := h.svc.List(r.Context(), query)
	if err != nil {
		h.logger.Error("list movies", zap.Error(err))
		response.InternalError(w)
		return
	}

	response.Data(w, movies)
}

// Get godoc
//
//	@Summary	Get a movie
//	@Tags		movies
//	@Produce	json
//	@Param		id	path		string	true	"Movie ID"
//	@Success	200	{object}	Movie
//	@Failure	404	{object}	map[string]string
//	@Failure	500	{object}	map[string]string
//	@Router		/movies/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if h.svc.IsNotFound(err) {
			response.NotFound(w, "Not found")
			return
		}
		h.logger.Error("get movie", zap.Error(err))
		response.InternalError(w)
		return
	}

	response.OK(w, m)
}

// Create godoc
//
//	@Summary	Create a movie
//	@Tags		movies
//	@Accept		mpfd
//	@Produce	json
//	@Param		title		formData	string	true	"Title"
//	@Param		genre		formData	string	false	"Genre"
//	@Param		rating		formData	number	false	"Rating"
//	@Param		posterUrl	formData	string	false	"Poster URL, ignored when a file is uploaded"
//	@Param		poster		formData	file	false	"Poster image"
//	@Success	201			{object}	Movie
//	@Failure	400			{object}	map[string]string
//	@Failure	500			{object}	map[string]string
//	@Router		/movies [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		response.BadRequest(w, "Malformed form data")
		return
	}

	in := CreateInput{
		Title:     r.FormValue("title"),
		Genre:     r.FormValue("genre"),
		Rating:    r.FormValue("rating"),
		PosterURL: r.FormValue("posterUrl"),
	}
	poster, err := posterFile(r)
	if err != nil {
		response.BadRequest(w, "Malformed poster upload")
		return
	}

	m, err := h.svc.Create(r.Context(), in, poster)
	if err != nil {
		switch {
		case errors.Is(err, ErrTitleRequired):
			response.BadRequest(w, "Title is required")
		case errors.Is(err, ErrInvalidRating):
			response.BadRequest(w, "Rating must be a number")
		default:
			h.logger.Error("create movie", zap.Error(err))
			response.InternalError(w)
		}
		return
	}

	response.Created(w, m)
}

// Update godoc
//
//	@Summary	Update a movie
//	@Description	Partial update: only supplied form fields change. An uploaded file overrides posterUrl.
//	@Tags		movies
//	@Accept		mpfd
//	@Produce	json
//	@Param		id			path		string	true	"Movie ID"
//	@Param		title		formData	string	false	"Title"
//	@Param		genre		formData	string	false	"Genre, empty clears it"
//	@Param		rating		formData	string	false	"Rating, empty clears it"
//	@Param		posterUrl	formData	string	false	"Poster URL, empty clears it"
//	@Param		poster		formData	file	false	"Poster image"
//	@Success	200			{object}	Movie
//	@Failure	400			{object}	map[string]string
//	@Failure	404			{object}	map[string]string
//	@Failure	500			{object}	map[string]string
//	@Router		/movies/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		response.BadRequest(w, "Malformed form data")
		return
	}

	in := UpdateInput{
		Title:     formField(r, "title"),
		Genre:     formField(r, "genre"),
		Rating:    formField(r, "rating"),
		PosterURL: formField(r, "posterUrl"),
	}
	poster, err := posterFile(r)
	if err != nil {
		response.BadRequest(w, "Malformed poster upload")
		return
	}

	m, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), in, poster)
	if err != nil {
		switch {
		case h.svc.IsNotFound(err):
			response.NotFound(w, "Not found")
		case errors.Is(err, ErrInvalidRating):
			response.BadRequest(w, "Rating must be a number")
		default:
			h.logger.Error("update movie", zap.Error(err))
			response.InternalError(w)
		}
		return
	}

	response.OK(w, m)
}

// Delete godoc
//
//	@Summary	Delete a movie
//	@Description	Deleting an id that does not exist still reports success.
//	@Tags		movies
//	@Produce	json
//	@Param		id	path		string	true	"Movie ID"
//	@Success	200	{object}	map[string]bool
//	@Failure	500	{object}	map[string]string
//	@Router		/movies/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.logger.Error("delete movie", zap.Error(err))
		response.InternalError(w)
		return
	}

	response.Success(w)
}

// parseForm parses either a multipart or a urlencoded request body.
func parseForm(r *http.Request) error {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		return r.ParseMultipartForm(maxUploadBytes)
	}
	return r.ParseForm()
}

// formField returns a pointer to the first value of a form field, or nil
// when the field was not supplied at all. The distinction drives partial
// updates: absent fields stay untouched, empty ones clear the column.
func formField(r *http.Request, name string) *string {
	if vs, ok := r.Form[name]; ok && len(vs) > 0 {
		return &vs[0]
	}
	return nil
}

// posterFile reads the optional "poster" file field into memory.
func posterFile(r *http.Request) (*PosterUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, header, err := r.FormFile("poster")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &PosterUpload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}
