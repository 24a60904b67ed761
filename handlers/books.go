package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/bookshop/backend/middleware"
	"github.com/bookshop/backend/service"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BooksHandler struct {
	Catalog  *service.CatalogService
	S3       *service.S3Service
	MaxBytes int64
}

func bookFiltersFromQuery(q url.Values) service.BookFilters {
	f := service.BookFilters{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if n, err := strconv.ParseInt(q.Get("page"), 10, 64); err == nil {
		f.Page = n
	}
	if n, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil {
		f.Limit = n
	}
	return f
}

func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Catalog.GetAllBooks(r.Context(), bookFiltersFromQuery(r.URL.Query()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func (h *BooksHandler) MyBooks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, err := h.Catalog.GetMyBooks(r.Context(), userID, bookFiltersFromQuery(r.URL.Query()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, page)
}

func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	book, err := h.Catalog.GetBookByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, book)
}

type createBookForm struct {
	Title           string `validate:"required,min=1"`
	Description     string
	Price           string `validate:"required"`
	PublicationYear int    `validate:"omitempty,gte=0"`
	AuthorID        string `validate:"required"`
	CategoryID      string `validate:"required"`
}

// Create accepts a multipart form so the cover image can ride along. The
// image goes to object storage first; only the resulting URL is persisted.
// No image is a valid state.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	form := createBookForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		AuthorID:    r.FormValue("authorId"),
		CategoryID:  r.FormValue("categoryId"),
	}
	if v := r.FormValue("publicationYear"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "publicationYear must be a number")
			return
		}
		form.PublicationYear = n
	}
	if err := validate.Struct(form); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	authorID, err := primitive.ObjectIDFromHex(form.AuthorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid author id")
		return
	}
	categoryID, err := primitive.ObjectIDFromHex(form.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}

	coverImage := ""
	if file, header, err := r.FormFile("thumbnail"); err == nil {
		defer file.Close()
		if h.S3 == nil {
			writeError(w, http.StatusServiceUnavailable, "image upload not configured")
			return
		}
		url, err := h.S3.UploadImage(r.Context(), "covers/", header.Filename, file, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload cover image")
			return
		}
		coverImage = url
	}

	book, err := h.Catalog.CreateBook(r.Context(), userID, service.CreateBookInput{
		Title:           form.Title,
		Description:     form.Description,
		Price:           form.Price,
		CoverImage:      coverImage,
		PublicationYear: form.PublicationYear,
		AuthorID:        authorID,
		CategoryID:      categoryID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusCreated, book)
}
