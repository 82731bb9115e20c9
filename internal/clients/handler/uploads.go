package handler

import (
	"net/http"

	"concierge_backend/internal/adapters/storage"
	"concierge_backend/internal/clients/transport"
	"concierge_backend/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RegisterUploadRoutes mounts the presigned-URL endpoints for profile files.
// Only called when object storage is configured.
func (h *Handler) RegisterUploadRoutes(rg *gin.RouterGroup) {
	rg.POST("/profile/resume/upload-url", h.uploadURL(storage.KindResume))
	rg.POST("/profile/photo/upload-url", h.uploadURL(storage.KindProfilePhoto))
	rg.GET("/profile/resume/download-url", h.ResumeDownloadURL)
}

func (h *Handler) uploadURL(kind storage.FileKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := h.userID(c)
		if !ok {
			return
		}

		var req transport.UploadURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			response.Error(c, http.StatusBadRequest, "validation failed", err.Error())
			return
		}

		presigned, err := h.storage.GenerateUploadURL(c.Request.Context(), kind, userID.String(), req.FileName, req.ContentType, req.SizeBytes)
		if err != nil {
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		response.OK(c, presigned)
	}
}

// ResumeDownloadURL returns a short-lived link to the caller's stored resume.
func (h *Handler) ResumeDownloadURL(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	profile, err := h.svc.GetProfileByUser(c.Request.Context(), userID)
	if err != nil {
		response.DomainError(c, err)
		return
	}
	resumeKey := profile.Client.ResumeURL
	if resumeKey == nil || *resumeKey == "" {
		response.Error(c, http.StatusNotFound, "no resume on file", nil)
		return
	}

	presigned, err := h.storage.GenerateDownloadURL(c.Request.Context(), storage.KindResume, *resumeKey)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "could not generate download link", nil)
		return
	}
	response.OK(c, presigned)
}
