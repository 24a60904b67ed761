package handlers

import (
	"net/http"

	"github.com/bookshop/backend/models"
	"github.com/bookshop/backend/service"
	"github.com/bookshop/backend/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TagsHandler struct {
	DB      *store.DB
	Catalog *service.CatalogService
}

type TagRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}

type AssignTagRequest struct {
	BookID string `json:"bookId" validate:"required"`
	TagID  string `json:"tagId" validate:"required"`
}

func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.DB.ListTags(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tags")
		return
	}
	writeData(w, http.StatusOK, tags)
}

func (h *TagsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	tag := &models.Tag{Name: req.Name}
	id, err := h.DB.CreateTag(r.Context(), tag)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			writeError(w, http.StatusConflict, "tag already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create tag")
		return
	}
	tag.ID = id
	writeData(w, http.StatusCreated, tag)
}

// Assign links an existing tag to an existing book. Duplicate assignment is
// a no-op, so the endpoint can be retried freely.
func (h *TagsHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignTagRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	bookID, err := primitive.ObjectIDFromHex(req.BookID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	tagID, err := primitive.ObjectIDFromHex(req.TagID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tag id")
		return
	}
	if err := h.Catalog.AssignTag(r.Context(), bookID, tagID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Tag assigned successfully")
}
