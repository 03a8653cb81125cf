package handler

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-api/internal/middleware"
	"github.com/noah-isme/compliance-api/internal/service"
	appErrors "github.com/noah-isme/compliance-api/pkg/errors"
	"github.com/noah-isme/compliance-api/pkg/response"
)

func sessionFromContext(c *gin.Context) *service.Session {
	return middleware.SessionFromContext(c)
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

// formUpload reads the multipart field into a seekable upload. The caller
// must invoke the returned close func.
func formUpload(c *gin.Context, field string) (service.FileUpload, func(), error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return service.FileUpload{}, nil, appErrors.Clone(appErrors.ErrValidation, field+" is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return service.FileUpload{}, nil, appErrors.Internal(err, "failed to open file")
	}

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		_ = src.Close()
		if readErr != nil {
			return service.FileUpload{}, nil, appErrors.Internal(readErr, "failed to buffer file")
		}
		reader = bytes.NewReader(buf)
		src = nil
	}
	closer := func() {
		if src != nil {
			_ = src.Close()
		}
	}
	return service.FileUpload{
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  reader,
	}, closer, nil
}

func streamDownload(c *gin.Context, download *service.FileDownload, disposition string) {
	defer download.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, download.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, download.SizeBytes, download.MimeType, download.File, nil)
}
