package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"studymate/internal/app"
	"studymate/internal/store"
	"studymate/internal/transport/http/response"
)

type LibraryHandler struct {
	library      *app.LibraryService
	maxFileBytes int64
	maxFiles     int
}

type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type uploadPayload struct {
	Category app.CategorySummary   `json:"category"`
	Rejected []app.UploadRejection `json:"rejected"`
}

func NewLibraryHandler(library *app.LibraryService, maxFileBytes int64, maxFiles int) *LibraryHandler {
	return &LibraryHandler{library: library, maxFileBytes: maxFileBytes, maxFiles: maxFiles}
}

func (h *LibraryHandler) ListCategories(c *gin.Context) {
	response.OK(c, h.library.Categories())
}

func (h *LibraryHandler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	category, err := h.library.CreateCategory(req.Name)
	if err != nil {
		writeLibraryError(c, err, "create category failed")
		return
	}
	response.OK(c, category)
}

func (h *LibraryHandler) RenameCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	category, err := h.library.RenameCategory(c.Param("id"), req.Name)
	if err != nil {
		writeLibraryError(c, err, "rename category failed")
		return
	}
	response.OK(c, category)
}

func (h *LibraryHandler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")
	if err := h.library.DeleteCategory(id); err != nil {
		writeLibraryError(c, err, "delete category failed")
		return
	}
	response.OK(c, gin.H{"deleted_category_id": id})
}

func (h *LibraryHandler) ListDocuments(c *gin.Context) {
	category, err := h.library.Category(c.Param("id"))
	if err != nil {
		writeLibraryError(c, err, "list documents failed")
		return
	}
	response.OK(c, category.Documents)
}

func (h *LibraryHandler) UploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart payload")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeNoValidFiles, "no files in field \"files\"")
		return
	}
	if h.maxFiles > 0 && len(headers) > h.maxFiles {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, fmt.Sprintf("at most %d files per upload", h.maxFiles))
		return
	}

	files := make([]app.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
			return
		}
		var r io.Reader = f
		if h.maxFileBytes > 0 {
			// one byte past the limit is enough for the service to reject it
			r = io.LimitReader(f, h.maxFileBytes+1)
		}
		data, err := io.ReadAll(r)
		_ = f.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "read upload failed")
			return
		}
		files = append(files, app.UploadFile{Name: fh.Filename, Data: data})
	}

	category, rejected, err := h.library.Upload(c.Param("id"), files)
	if err != nil {
		if errors.Is(err, app.ErrNoValidFiles) {
			c.JSON(http.StatusBadRequest, response.APIResponse{
				Code:    response.CodeNoValidFiles,
				Message: err.Error(),
				Data:    uploadPayload{Rejected: rejected},
			})
			return
		}
		writeLibraryError(c, err, "upload failed")
		return
	}
	if rejected == nil {
		rejected = []app.UploadRejection{}
	}
	response.OK(c, uploadPayload{Category: category, Rejected: rejected})
}

func (h *LibraryHandler) DownloadDocument(c *gin.Context) {
	doc, err := h.library.Document(c.Param("id"), c.Param("name"))
	if err != nil {
		writeLibraryError(c, err, "fetch document failed")
		return
	}
	data, err := base64.StdEncoding.DecodeString(doc.Data)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stored document is corrupt")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename*=UTF-8''%s", url.PathEscape(doc.Name)))
	c.Data(http.StatusOK, doc.MimeType, data)
}

func (h *LibraryHandler) DeleteDocument(c *gin.Context) {
	name := c.Param("name")
	if err := h.library.RemoveDocument(c.Param("id"), name); err != nil {
		writeLibraryError(c, err, "delete document failed")
		return
	}
	response.OK(c, gin.H{"deleted_document": name})
}

func writeLibraryError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, store.ErrLastCategory):
		response.Error(c, http.StatusBadRequest, response.CodeLastCategory, err.Error())
	case errors.Is(err, app.ErrCategoryNotFound):
		response.Error(c, http.StatusNotFound, response.CodeCategoryNotFound, err.Error())
	case errors.Is(err, store.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
