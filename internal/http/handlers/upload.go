package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/casahub/casahub/internal/config"
	"github.com/casahub/casahub/internal/media"
	"github.com/casahub/casahub/internal/observability"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps a single image. The listing form uploads one file per
// request.
const maxUploadBytes = 5 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type UploadHandler struct {
	uploader media.Uploader
	prom     *observability.Prom
}

func NewUploadHandler(uploader media.Uploader, prom *observability.Prom) *UploadHandler {
	return &UploadHandler{
		uploader: uploader,
		prom:     prom,
	}
}

// Upload accepts a multipart form with a single "image" part, stores it and
// returns its public URL. The client then puts that URL on the listing or
// the avatar field.
func (h *UploadHandler) Upload(ctx *gin.Context) {
	file, err := ctx.FormFile("image")

	if err != nil {
		h.count("rejected")
		RespondBadRequest(ctx, "An image file is required", gin.H{"field": "image"})
		return
	}

	if file.Size > maxUploadBytes {
		h.count("rejected")
		RespondBadRequest(ctx, "Image exceeds the 5 MB limit", gin.H{"field": "image", "rule": "max_size"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]

	if !ok {
		h.count("rejected")
		RespondBadRequest(ctx, "Only JPEG, PNG and WebP images are accepted", gin.H{"field": "image", "rule": "content_type"})
		return
	}

	src, err := file.Open()

	if err != nil {
		h.count("error")
		RespondInternal(ctx, "Could not read upload")
		return
	}

	defer src.Close()

	// keep the original extension when it matches the declared type
	if origExt := strings.ToLower(filepath.Ext(file.Filename)); origExt == ".jpeg" {
		ext = ".jpeg"
	}

	cctx, cancel := config.WithTimeout(15 * time.Second)
	defer cancel()

	key := media.StorageKey(ext)

	url, err := h.uploader.Upload(cctx, key, contentType, src)

	if err != nil {
		h.count("error")
		RespondInternal(ctx, "Could not store image")
		return
	}

	h.count("ok")

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"url":     url,
		"key":     key,
	})
}

func (h *UploadHandler) count(result string) {
	if h.prom != nil {
		h.prom.UploadsTotal.WithLabelValues(result).Inc()
	}
}
