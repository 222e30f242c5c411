package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"item-catalog-service/internal/catalog"
	"item-catalog-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// maxUploadSize bounds the multipart body of POST /items.
const maxUploadSize = 10 << 20

// Catalog is the set of catalog operations the transports expose.
// *catalog.Service implements it.
type Catalog interface {
	ListItems(ctx context.Context) ([]domain.ItemView, error)
	GetItem(ctx context.Context, in catalog.GetItemInput) (*domain.ItemView, error)
	AddItem(ctx context.Context, in catalog.AddItemInput) (*catalog.AddItemResult, error)
	SearchItems(ctx context.Context, in catalog.SearchInput) ([]domain.ItemView, error)
	FetchImage(ctx context.Context, in catalog.FetchImageInput) (*catalog.Image, error)
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog Catalog
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(c Catalog) *HTTPHandler {
	return &HTTPHandler{catalog: c}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"` // Set for malformed input
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

// respondWithCatalogError maps the catalog error taxonomy to HTTP statuses.
func respondWithCatalogError(w http.ResponseWriter, op string, err error) {
	var fieldErr *catalog.FieldError
	switch {
	case errors.As(err, &fieldErr):
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: fieldErr.Error(), Field: fieldErr.Field})
	case errors.Is(err, catalog.ErrMalformedInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, catalog.ErrStorageFault):
		log.Printf("ERROR: %s failed: %v", op, err)
		respondWithError(w, http.StatusServiceUnavailable, "Storage is temporarily unavailable")
	default:
		log.Printf("ERROR: %s failed: %v", op, err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// --- Responses ---

// HelloResponse is the body of GET /.
type HelloResponse struct {
	Message string `json:"message"`
}

// ItemResponse is one entry of a list or search response.
type ItemResponse struct {
	Name      string `json:"name"`
	Category  string `json:"category"`
	ImageName string `json:"image_name"`
}

// ItemsResponse wraps list and search results.
type ItemsResponse struct {
	Items []ItemResponse `json:"items"`
}

// GetItemResponse is the body of GET /items/{itemId}.
type GetItemResponse struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Image    string `json:"image"`
}

// AddItemResponse is the body of a successful POST /items.
type AddItemResponse struct {
	Message   string `json:"message"`
	ID        int64  `json:"id"`
	ImageName string `json:"image_name"`
}

func toItemsResponse(items []domain.ItemView) ItemsResponse {
	resp := ItemsResponse{Items: make([]ItemResponse, 0, len(items))}
	for _, it := range items {
		resp.Items = append(resp.Items, ItemResponse{Name: it.Name, Category: it.Category, ImageName: it.ImageName})
	}
	return resp
}

// --- Handlers ---

func (h *HTTPHandler) Hello(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, HelloResponse{Message: "Hello, world!"})
}

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListItems(r.Context())
	if err != nil {
		respondWithCatalogError(w, "ListItems", err)
		return
	}
	respondWithJSON(w, http.StatusOK, toItemsResponse(items))
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	in, err := catalog.ParseItemID(chi.URLParam(r, "itemId"))
	if err != nil {
		respondWithCatalogError(w, "GetItem", err)
		return
	}

	item, err := h.catalog.GetItem(r.Context(), in)
	if err != nil {
		respondWithCatalogError(w, "GetItem", err)
		return
	}
	respondWithJSON(w, http.StatusOK, GetItemResponse{Name: item.Name, Category: item.Category, Image: item.ImageName})
}

// AddItem reads a multipart form with name, category and image fields.
// Missing fields are left empty and reported by the catalog's validation.
func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		if errors.As(err, new(*http.MaxBytesError)) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Upload exceeds the size limit")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	in := catalog.AddItemInput{
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
	}

	file, _, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		in.Image, err = io.ReadAll(file)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Failed to read image: "+err.Error())
			return
		}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// Reported as a missing image by validation.
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid image upload: "+err.Error())
		return
	}

	res, err := h.catalog.AddItem(r.Context(), in)
	if err != nil {
		respondWithCatalogError(w, "AddItem", err)
		return
	}
	respondWithJSON(w, http.StatusOK, AddItemResponse{Message: res.Message, ID: res.ID, ImageName: res.ImageName})
}

func (h *HTTPHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.SearchItems(r.Context(), catalog.SearchInput{Keyword: r.URL.Query().Get("keyword")})
	if err != nil {
		respondWithCatalogError(w, "SearchItems", err)
		return
	}
	respondWithJSON(w, http.StatusOK, toItemsResponse(items))
}

// GetImage streams a stored image. A missing image is answered with the
// default image rather than an error.
func (h *HTTPHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.catalog.FetchImage(r.Context(), catalog.FetchImageInput{Name: chi.URLParam(r, "imageName")})
	if err != nil {
		respondWithCatalogError(w, "GetImage", err)
		return
	}
	defer img.Body.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img.Body); err != nil {
		log.Printf("WARN: Failed to stream image %s: %v", img.Name, err)
	}
}

// --- Route Registration ---

// CORS returns middleware allowing browser requests from frontURL.
func CORS(frontURL string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
	})
}

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Hello)
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.ListItems)       // GET /items
		r.Post("/", h.AddItem)        // POST /items
		r.Get("/{itemId}", h.GetItem) // GET /items/{itemId}
	})
	r.Get("/search", h.SearchItems)         // GET /search?keyword=
	r.Get("/image/{imageName}", h.GetImage) // GET /image/{imageName}
}
