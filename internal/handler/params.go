package handler

import (
	"bytes"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-scores/internal/response"
)

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// pageQuery reads ?page and ?per_page with the envelope's bounds applied.
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return response.NormalizePage(page, perPage)
}

// boolQuery reads an optional boolean query parameter.
func boolQuery(c *gin.Context, name string) *bool {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// emptyBody reports whether the request body is missing or blank, leaving
// the body readable for binding afterwards.
func emptyBody(c *gin.Context) bool {
	if c.Request.Body == nil {
		return true
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return true
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(data))
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("null"))
}
