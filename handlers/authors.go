package handlers

import (
	"net/http"

	"github.com/bookshop/backend/models"
	"github.com/bookshop/backend/service"
	"github.com/bookshop/backend/store"
)

type AuthorsHandler struct {
	DB       *store.DB
	S3       *service.S3Service
	MaxBytes int64
}

func (h *AuthorsHandler) List(w http.ResponseWriter, r *http.Request) {
	authors, err := h.DB.ListAuthors(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list authors")
		return
	}
	writeData(w, http.StatusOK, authors)
}

// Create takes a multipart form with name, optional bio, and an optional
// image file that is uploaded before the record is persisted.
func (h *AuthorsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	name := r.FormValue("name")
	if len(name) < 2 {
		writeError(w, http.StatusBadRequest, "name must be at least 2 characters")
		return
	}

	image := ""
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if h.S3 == nil {
			writeError(w, http.StatusServiceUnavailable, "image upload not configured")
			return
		}
		url, err := h.S3.UploadImage(r.Context(), "authors/", header.Filename, file, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload author image")
			return
		}
		image = url
	}

	author := &models.Author{
		Name:  name,
		Bio:   r.FormValue("bio"),
		Image: image,
	}
	id, err := h.DB.CreateAuthor(r.Context(), author)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create author")
		return
	}
	author.ID = id
	writeData(w, http.StatusCreated, author)
}
