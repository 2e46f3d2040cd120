package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/innkeeper/internal/buffer"
	"github.com/yoockh/innkeeper/internal/cache"
	"github.com/yoockh/innkeeper/internal/utils"
)

// PatternDeleter clears keys from a shared cache tier.
type PatternDeleter interface {
	DeletePattern(ctx context.Context, pattern string) (int, error)
}

// BufferStatser is the part of buffer.Manager the admin API reads.
type BufferStatser interface {
	Stats() buffer.Stats
}

type CacheHandler struct {
	engine *cache.Engine
	shared PatternDeleter // optional
	buffer BufferStatser
}

func NewCacheHandler(engine *cache.Engine, shared PatternDeleter, buf BufferStatser) *CacheHandler {
	return &CacheHandler{engine: engine, shared: shared, buffer: buf}
}

func (h *CacheHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Stats())
}

func (h *CacheHandler) Keys(c *gin.Context) {
	pattern := strings.TrimSpace(c.Query("pattern"))
	if pattern == "" {
		pattern = "*"
	}
	keys := h.engine.FindKeys(pattern)
	c.JSON(http.StatusOK, gin.H{"pattern": pattern, "count": len(keys), "keys": keys})
}

// Purge deletes keys matching ?pattern= from the local engine and, when
// configured, from the shared tier. The pattern is mandatory so a bare
// DELETE never wipes everything.
func (h *CacheHandler) Purge(c *gin.Context) {
	const op = "CacheHandler.Purge"

	pattern := strings.TrimSpace(c.Query("pattern"))
	if pattern == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "pattern is required (use * to clear everything)", nil))
		return
	}

	resp := gin.H{"pattern": pattern, "deleted": h.engine.DeletePattern(pattern)}
	if h.shared != nil {
		n, err := h.shared.DeletePattern(c.Request.Context(), pattern)
		if err != nil {
			writeError(c, utils.E(utils.CodeUnavailable, op, "shared cache purge failed", err))
			return
		}
		resp["deleted_shared"] = n
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CacheHandler) BufferStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.buffer.Stats())
}
