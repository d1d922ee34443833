package handler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxImageSize = 5 * 1024 * 1024

type UploadHandler struct {
	dir string
}

func NewUploadHandler(dir string) *UploadHandler {
	return &UploadHandler{dir: dir}
}

// UploadImage stores an uploaded image under the upload dir and returns its
// public URL.
func (h *UploadHandler) UploadImage(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		BadRequest(c, "failed to read upload: "+err.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		BadRequest(c, "only image files are accepted")
		return
	}
	if header.Size > maxImageSize {
		BadRequest(c, "image larger than 5MB")
		return
	}

	if err := os.MkdirAll(h.dir, 0755); err != nil {
		ServerError(c, "failed to create upload dir: "+err.Error())
		return
	}

	ext := filepath.Ext(header.Filename)
	filename := fmt.Sprintf("%s_%d%s", uuid.New().String(), time.Now().Unix(), ext)
	dst, err := os.Create(filepath.Join(h.dir, filename))
	if err != nil {
		ServerError(c, "failed to create file: "+err.Error())
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		ServerError(c, "failed to save file: "+err.Error())
		return
	}

	Success(c, gin.H{
		"url":      "/static/uploads/" + filename,
		"filename": header.Filename,
		"size":     header.Size,
	})
}
