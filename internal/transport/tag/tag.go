package tag

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	tagsvc "github.com/alanyang/prompt-vault/internal/service/tag"
)

func Register(rg *gin.RouterGroup, svc *tagsvc.Service) {
	rg.GET("", listTags(svc))
	rg.POST("", saveTag(svc))
	rg.PUT("/:id", saveTag(svc))
	rg.DELETE("/:id", deleteTag(svc))
}

func listTags(svc *tagsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tags, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if tags == nil {
			tags = []domainprompt.Tag{}
		}
		c.JSON(http.StatusOK, tags)
	}
}

type saveTagReq struct {
	Name       string `json:"name" binding:"required"`
	Color      string `json:"color"`
	UsageCount int    `json:"usage_count"`
}

// saveTag serves both POST (new id) and PUT /:id (replace).
func saveTag(svc *tagsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req saveTagReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		saved, err := svc.Save(c.Request.Context(), domainprompt.Tag{
			ID:         c.Param("id"),
			Name:       req.Name,
			Color:      req.Color,
			UsageCount: req.UsageCount,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domainprompt.ErrInvalid) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		status := http.StatusOK
		if c.Request.Method == http.MethodPost {
			status = http.StatusCreated
		}
		c.JSON(status, saved)
	}
}

func deleteTag(svc *tagsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domainprompt.ErrTagNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
