package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"civsandbox/internal/export"
	"civsandbox/internal/request"
	"civsandbox/internal/sandbox"
	"civsandbox/internal/sim"
)

const maxBodyBytes = 64 * 1024

type handler struct {
	orch     *sandbox.Orchestrator
	defaults sim.Parameters
	logger   *slog.Logger
	system   string
	now      func() time.Time
}

func (h *handler) banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"system": h.system,
		"status": "OPERATIONAL",
	})
}

func (h *handler) run(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) > maxBodyBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}

	p, err := request.Decode(body, h.defaults)
	if err != nil {
		h.writeError(c, err)
		return
	}
	rec, err := h.orch.Run(c.Request.Context(), p)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Status())
}

func (h *handler) listHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"runs": h.orch.History()})
}

func (h *handler) getRun(c *gin.Context) {
	rec, ok := h.find(c.Param("id"))
	if !ok {
		h.writeError(c, sandbox.ErrRunNotFound)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *handler) replay(c *gin.Context) {
	rec, err := h.orch.Replay(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	_, reproduced := h.orch.Reproduce(rec)
	c.JSON(http.StatusOK, gin.H{
		"record":     rec,
		"reproduced": reproduced,
	})
}

func (h *handler) exportRun(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatJSON)))
	if err != nil {
		h.writeError(c, err)
		return
	}
	rec, ok := h.find(c.Param("id"))
	if !ok {
		h.writeError(c, sandbox.ErrRunNotFound)
		return
	}
	data, err := export.Render(format, &rec.Result)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(format, h.now())+`"`)
	c.Data(http.StatusOK, export.ContentType(format), data)
}

func (h *handler) find(id string) (sandbox.RunRecord, bool) {
	for _, rec := range h.orch.History() {
		if rec.ID == id {
			return rec, true
		}
	}
	return sandbox.RunRecord{}, false
}

func (h *handler) writeError(c *gin.Context, err error) {
	var (
		verr      *sim.ValidationError
		exportErr *export.Error
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": verr.Field})
	case errors.Is(err, sandbox.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, sandbox.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &exportErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
