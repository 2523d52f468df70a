package prompt

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainprompt "github.com/alanyang/prompt-vault/internal/domain/prompt"
	"github.com/alanyang/prompt-vault/internal/service/export"
	promptsvc "github.com/alanyang/prompt-vault/internal/service/prompt"
)

func Register(rg *gin.RouterGroup, svc *promptsvc.Service) {
	rg.POST("", createPrompt(svc))
	rg.GET("", listPrompts(svc))
	rg.GET("/:id", getPrompt(svc))
	rg.PUT("/:id", updatePrompt(svc))
	rg.DELETE("/:id", deletePrompt(svc))
	rg.POST("/:id/use", usePrompt(svc))
	rg.PUT("/:id/favorite", setFavorite(svc))
	rg.GET("/:id/versions", versionHistory(svc))
	rg.GET("/:id/versions/latest", latestVersion(svc))
	rg.PUT("/:id/versions/:version/label", labelVersion(svc))
	rg.GET("/:id/diff", compareVersions(svc))
	rg.POST("/:id/restore", restoreVersion(svc))
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainprompt.ErrNotFound),
		errors.Is(err, domainprompt.ErrVersionNotFound),
		errors.Is(err, domainprompt.ErrCategoryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainprompt.ErrInvalid),
		errors.Is(err, export.ErrUnknownFormat):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

type createPromptReq struct {
	Title       string   `json:"title" binding:"required"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author"`
	Source      string   `json:"source"`
}

func createPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPromptReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Create(c.Request.Context(), promptsvc.NewPrompt{
			Title:       req.Title,
			Content:     req.Content,
			Description: req.Description,
			Category:    req.Category,
			Tags:        req.Tags,
			Author:      req.Author,
			Source:      req.Source,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

var sortFields = map[string]domainprompt.SortField{
	"created_at":  domainprompt.SortCreatedAt,
	"updated_at":  domainprompt.SortUpdatedAt,
	"usage_count": domainprompt.SortUsageCount,
	"title":       domainprompt.SortTitle,
}

func listPrompts(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := domainprompt.ListFilters{
			Text:       c.Query("q"),
			Categories: c.QueryArray("category"),
			Tags:       c.QueryArray("tag"),
		}

		if v := c.Query("favorites"); v != "" {
			fav, err := strconv.ParseBool(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid favorites"})
				return
			}
			filters.Favorites = fav
		}
		for param, dst := range map[string]**time.Time{"from": &filters.From, "to": &filters.To} {
			v := c.Query(param)
			if v == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
				return
			}
			*dst = &t
		}
		if v := c.Query("sort"); v != "" {
			field, ok := sortFields[v]
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort"})
				return
			}
			filters.SortBy = field
		}
		switch c.DefaultQuery("order", "desc") {
		case "asc":
		case "desc":
			filters.Descending = true
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order"})
			return
		}

		prompts, err := svc.List(c.Request.Context(), filters)
		if err != nil {
			fail(c, err)
			return
		}
		if prompts == nil {
			prompts = []domainprompt.Prompt{}
		}
		c.JSON(http.StatusOK, prompts)
	}
}

func getPrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		p, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

type updatePromptReq struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	Changes     string    `json:"changes"`
}

func updatePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req updatePromptReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Update(c.Request.Context(), id, promptsvc.Edit{
			Title:       req.Title,
			Content:     req.Content,
			Description: req.Description,
			Category:    req.Category,
			Tags:        req.Tags,
			Changes:     req.Changes,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func deletePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		if err := svc.Delete(c.Request.Context(), id); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

func usePrompt(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		p, err := svc.RecordUsage(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

type favoriteReq struct {
	Favorite *bool `json:"favorite" binding:"required"`
}

func setFavorite(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req favoriteReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.SetFavorite(c.Request.Context(), id, *req.Favorite)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func versionHistory(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		versions, err := svc.History(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, versions)
	}
}

func latestVersion(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		v, err := svc.Latest(c.Request.Context(), id)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

type labelReq struct {
	Label string `json:"label"`
}

func labelVersion(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req labelReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Label(c.Request.Context(), id, c.Param("version"), req.Label)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func compareVersions(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		cmp, err := svc.Compare(c.Request.Context(), id, c.Query("from"), c.Query("to"))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, cmp)
	}
}

type restoreReq struct {
	Version string `json:"version" binding:"required"`
}

func restoreVersion(svc *promptsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var req restoreReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p, err := svc.Restore(c.Request.Context(), id, req.Version)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
