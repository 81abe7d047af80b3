package rest

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dfryer1193/goplaces/api"
	"github.com/dfryer1193/goplaces/places/application"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) OpenSession(c *gin.Context) {
	session, err := h.places.OpenSession(c.Request.Context(), c.Param("placeId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toSession(session))
}

func (h *handlers) GetSession(c *gin.Context) {
	session, err := h.places.Session(c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(session))
}

func (h *handlers) DiscardSession(c *gin.Context) {
	if err := h.places.DiscardSession(c.Param("sessionId")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UploadImages reads every multipart "files" part into memory and uploads the batch.
// The response is sent once every file has succeeded or failed.
func (h *handlers) UploadImages(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	form, err := c.MultipartForm()
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid multipart form: %v", err))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		badRequest(c, "no files provided")
		return
	}

	files := make([]application.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			badRequest(c, fmt.Sprintf("failed to open %s: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			badRequest(c, fmt.Sprintf("failed to read %s: %v", fh.Filename, err))
			return
		}
		files = append(files, application.File{Name: fh.Filename, Data: data})
	}

	sessionID := c.Param("sessionId")
	tasks, err := h.places.UploadImages(sessionID, files)
	if err != nil {
		writeError(c, err)
		return
	}
	session, err := h.places.Session(sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, api.UploadResult{
		Tasks:   api.NewTasks(tasks),
		Working: refStrings(session.Working()),
	})
}

// RemoveImage drops ?url= from the working list. The asset delete it triggers is not awaited.
func (h *handlers) RemoveImage(c *gin.Context) {
	ref := c.Query("url")
	if ref == "" {
		badRequest(c, "url query parameter is required")
		return
	}

	sessionID := c.Param("sessionId")
	if err := h.places.RemoveImage(sessionID, domain.ImageReference(ref)); err != nil {
		writeError(c, err)
		return
	}
	session, err := h.places.Session(sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, toSession(session))
}

func (h *handlers) ClearTasks(c *gin.Context) {
	if err := h.places.ClearTasks(c.Param("sessionId")); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlers) SaveSession(c *gin.Context) {
	result, err := h.places.SaveSession(c.Request.Context(), c.Param("sessionId"))
	if result == nil {
		writeError(c, err)
		return
	}

	body := api.SaveResult{
		PlaceID: result.PlaceID,
		Images:  refStrings(result.Images),
		Deleted: outcomeStrings(result.Outcomes),
	}
	if err != nil {
		body.Warning = err.Error()
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			body.Missing = cfgErr.Missing
		}
	}

	c.JSON(http.StatusOK, body)
}

func (h *handlers) SessionEvents(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if _, err := h.places.Session(sessionID); err != nil {
		writeError(c, err)
		return
	}

	// ServeWS has already written an HTTP error when the upgrade fails.
	if err := h.hub.ServeWS(c.Writer, c.Request, sessionID); err != nil {
		_ = c.Error(err)
	}
}
