package category

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	categorysvc "github.com/alanyang/prompt-vault/internal/service/category"
)

func Register(rg *gin.RouterGroup, svc *categorysvc.Service) {
	rg.GET("", listCategories(svc))
	rg.PUT("/:id", saveCategory(svc))
	rg.DELETE("/:id", deleteCategory(svc))
}

func listCategories(svc *categorysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cats, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cats == nil {
			cats = []domainprompt.Category{}
		}
		c.JSON(http.StatusOK, cats)
	}
}

type saveCategoryReq struct {
	Name     string `json:"name" binding:"required"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	ParentID string `json:"parent_id"`
	Order    int    `json:"order"`
}

func saveCategory(svc *categorysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req saveCategoryReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		saved, err := svc.Save(c.Request.Context(), domainprompt.Category{
			ID:       c.Param("id"),
			Name:     req.Name,
			Color:    req.Color,
			Icon:     req.Icon,
			ParentID: req.ParentID,
			Order:    req.Order,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domainprompt.ErrInvalid) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

func deleteCategory(svc *categorysvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domainprompt.ErrCategoryNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}
