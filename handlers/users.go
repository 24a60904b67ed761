package handlers

import (
	"net/http"

	"github.com/bookshop/backend/middleware"
	"github.com/bookshop/backend/service"
	"github.com/bookshop/backend/store"
)

type UsersHandler struct {
	DB       *store.DB
	Auth     *service.AuthService
	S3       *service.S3Service
	MaxBytes int64
}

type UpdatePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := h.DB.UserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeData(w, http.StatusOK, user)
}

// UpdateProfile takes a multipart form with an optional name and an optional
// avatar image.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
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

	var name, image *string
	if v := r.FormValue("name"); v != "" {
		if len(v) < 2 {
			writeError(w, http.StatusBadRequest, "name must be at least 2 characters")
			return
		}
		name = &v
	}
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if h.S3 == nil {
			writeError(w, http.StatusServiceUnavailable, "image upload not configured")
			return
		}
		url, err := h.S3.UploadImage(r.Context(), "avatars/", header.Filename, file, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to upload avatar")
			return
		}
		image = &url
	}

	if err := h.DB.UpdateUserProfile(r.Context(), userID, name, image); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	user, err := h.DB.UserByID(r.Context(), userID)
	if err != nil || user == nil {
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *UsersHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req UpdatePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.Auth.UpdatePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully")
}
