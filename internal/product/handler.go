package product

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/catalog/service/internal/response"
)

// maxImageSize caps uploaded image payloads at 5 MB.
const maxImageSize = 5 << 20

// allowedImageTypes maps the accepted declared MIME types for uploads,
// matching the {jpg, jpeg, png, gif, webp} extension allow-list.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Handler holds HTTP handlers for product endpoints.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

// NewHandler creates a product Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes mounts the product endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/image", h.UploadImage)
}

// deleteConfirmation is the payload returned after a successful deletion.
type deleteConfirmation struct {
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// List godoc
//
//	@Summary		List products
//	@Description	Lists catalog products. Soft-deleted products are excluded unless includeDeleted=true.
//	@Tags			products
//	@Produce		json
//	@Param			name			query		string	false	"Name substring filter"
//	@Param			inStock			query		bool	false	"Filter by stock availability"
//	@Param			minPrice		query		number	false	"Minimum price"
//	@Param			maxPrice		query		number	false	"Maximum price"
//	@Param			includeDeleted	query		bool	false	"Include soft-deleted products"
//	@Success		200				{object}	response.Envelope{data=[]Product}
//	@Failure		400				{object}	response.Envelope
//	@Failure		500				{object}	response.Envelope
//	@Router			/products [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r)
	if err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	products, err := h.svc.FindAll(r.Context(), f)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, products)
}

// Get godoc
//
//	@Summary		Get a product
//	@Tags			products
//	@Produce		json
//	@Param			id	path		int	true	"Product id"
//	@Success		200	{object}	response.Envelope{data=Product}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/products/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	p, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "product not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, p)
}

// Create godoc
//
//	@Summary		Create a product
//	@Description	Creates a product. A zero stockQuantity forces inStock to false.
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			product	body		CreateInput	true	"Product fields"
//	@Success		201		{object}	response.Envelope{data=Product}
//	@Failure		400		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/products [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(in); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	p, err := h.svc.Create(r.Context(), in)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, p)
}

// Update godoc
//
//	@Summary		Update a product
//	@Description	Partially updates a product. Patching stockQuantity recomputes inStock. Soft-deleted products cannot be updated.
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int			true	"Product id"
//	@Param			patch	body		UpdateInput	true	"Fields to update"
//	@Success		200		{object}	response.Envelope{data=Product}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/products/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	var patch UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		response.BadRequest(w, validationMessage(err))
		return
	}

	p, err := h.svc.Update(r.Context(), id, patch)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "product not found")
		case errors.Is(err, ErrDeleted):
			response.BadRequest(w, "cannot update a deleted product")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, p)
}

// Delete godoc
//
//	@Summary		Delete a product
//	@Description	Soft-deletes a product. The record is flagged, not removed; its stored image is left in place.
//	@Tags			products
//	@Produce		json
//	@Param			id	path		int	true	"Product id"
//	@Success		200	{object}	response.Envelope{data=deleteConfirmation}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/products/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Remove(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "product not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, deleteConfirmation{
		Message:   "product deleted",
		Status:    "success",
		Timestamp: time.Now().UTC(),
	})
}

// UploadImage godoc
//
//	@Summary		Upload a product image
//	@Description	Replaces the product's image. Multipart field "image", max 5 MB, jpeg/png/gif/webp only.
//	@Tags			products
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		int		true	"Product id"
//	@Param			image	formData	file	true	"Image file"
//	@Success		200		{object}	response.Envelope{data=Product}
//	@Failure		400		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/products/{id}/image [post]
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.productID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		response.BadRequest(w, "image file required (max 5 MB)")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "image file required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		response.BadRequest(w, "unsupported image type, allowed: jpg, jpeg, png, gif, webp")
		return
	}

	p, err := h.svc.UploadImage(r.Context(), id, file, header.Size, contentType)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "product not found")
		case errors.Is(err, ErrNoFile), errors.Is(err, ErrNotImage):
			response.BadRequest(w, err.Error())
		default:
			response.Error(w, http.StatusInternalServerError, "image upload failed")
		}
		return
	}
	response.OK(w, p)
}

// productID parses the {id} route parameter, writing a 400 on failure.
func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid product id")
		return 0, false
	}
	return id, true
}

// filterFromQuery builds a listing filter from query parameters.
func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	f := Filter{
		Name:           q.Get("name"),
		IncludeDeleted: q.Get("includeDeleted") == "true",
	}

	if v := q.Get("inStock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("invalid inStock value")
		}
		f.InStock = &b
	}
	if v := q.Get("minPrice"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, errors.New("invalid minPrice value")
		}
		f.MinPrice = &p
	}
	if v := q.Get("maxPrice"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, errors.New("invalid maxPrice value")
		}
		f.MaxPrice = &p
	}
	return f, nil
}

// validationMessage turns a validator error into a short human-readable
// message naming the first offending field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "gte":
			return fe.Field() + " must be at least " + fe.Param()
		case "min":
			return fe.Field() + " is too short"
		}
		return fe.Field() + " is invalid"
	}
	return "validation failed"
}
