package jobs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/inkdrift/inkdrift/internal/config"
)

// RegisterRoutes mounts the job API under the given router group.
func RegisterRoutes(rg *gin.RouterGroup, store *Store, cfg *config.Config) {
	rg.POST("/jobs", createJobHandler(store, cfg))
	rg.GET("/jobs", listJobsHandler(store))
	rg.GET("/jobs/:id", getJobHandler(store))
	rg.PATCH("/jobs/:id", updateJobHandler(store, cfg))
	rg.POST("/jobs/:id/run", runJobHandler(store))
}

func createJobHandler(store *Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload Payload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		job, err := store.Create(c.Request.Context(), payload, cfg.Location())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create job"})
			return
		}
		c.JSON(http.StatusCreated, job)
	}
}

func listJobsHandler(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorID, _ := strconv.ParseUint(c.Query("author_id"), 10, 32)
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

		result, err := store.List(c.Request.Context(), ListFilter{
			Status:   c.Query("status"),
			AuthorID: uint(authorID),
			Search:   c.Query("q"),
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func getJobHandler(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		job, err := store.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
			}
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func updateJobHandler(store *Store, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		var payload Payload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}

		job, err := store.Update(c.Request.Context(), id, payload, cfg.Location())
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update job"})
			}
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func runJobHandler(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}

		if !store.RunNow(c.Request.Context(), id) {
			c.JSON(http.StatusConflict, gin.H{"ran": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ran": true})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return 0, false
	}
	return uint(id), true
}
