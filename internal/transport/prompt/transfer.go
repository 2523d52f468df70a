package prompt

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alanyang/prompt-vault/internal/service/export"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
)

// RegisterTransfer mounts the export and import endpoints.
func RegisterTransfer(rg *gin.RouterGroup, svc *promptsvc.Service) {
	rg.POST("/export", exportPrompts(svc))
	rg.POST("/import", importPrompts(svc))
}

type exportItemReq struct {
	ID             uuid.UUID `json:"id" binding:"required"`
	Version        string    `json:"version"`
	IncludeHistory bool      `json:"include_history"`
}

type exportReq struct {
	Items  []exportItemReq `json:"items"`
	Format string          `json:"format"`
}

func exportPrompts(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req exportReq
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if req.Format == "" {
			req.Format = string(export.FormatJSON)
		}
		format, err := export.ParseFormat(req.Format)
		if err != nil {
			fail(c, err)
			return
		}

		items := make([]promptsvc.ExportItem, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, promptsvc.ExportItem{ID: it.ID, Version: it.Version, IncludeHistory: it.IncludeHistory})
		}

		f, err := svc.Export(c.Request.Context(), promptsvc.ExportRequest{Items: items, Format: format})
		if err != nil {
			fail(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.Name))
		c.Data(http.StatusOK, f.ContentType, f.Data)
	}
}

// importFormat picks the bundle format from the format query parameter,
// falling back to the request content type.
func importFormat(c *gin.Context) (export.Format, error) {
	if v := c.Query("format"); v != "" {
		return export.ParseFormat(v)
	}
	if strings.Contains(c.ContentType(), "yaml") {
		return export.FormatYAML, nil
	}
	return export.FormatJSON, nil
}

func importPrompts(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := importFormat(c)
		if err != nil {
			fail(c, err)
			return
		}

		data, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		bundle, err := export.Decode(data, format)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		res, err := svc.Import(c.Request.Context(), bundle)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
