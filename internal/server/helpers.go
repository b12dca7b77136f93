package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jaki95/timeline-editor/internal/job"
)

// SanitizeFilename sanitizes a filename by removing invalid characters
func SanitizeFilename(name string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\n", "\r", "\t"}
	result := name
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}

	result = strings.Trim(result, " .")
	if result == "" {
		result = "untitled"
	}
	return result
}

// pagination reads page and pageSize query parameters, ignoring bad values
func pagination(c *gin.Context) (int, int) {
	page := 1
	pageSize := job.DefaultPageSize

	if p := c.Query("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if ps := c.Query("pageSize"); ps != "" {
		if parsed, err := strconv.Atoi(ps); err == nil && parsed > 0 && parsed <= job.MaxPageSize {
			pageSize = parsed
		}
	}
	return page, pageSize
}
