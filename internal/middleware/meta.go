package middleware

import "github.com/gin-gonic/gin"

const responseMetaKey = "response_meta"

// Keys handlers may set on the envelope's meta object.
const (
	MetaCacheHit = "cache_hit"
	MetaAsOf     = "as_of"
)

// WithResponseMeta gives each request an empty metadata map for handlers to fill.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetMeta stores a value that ExtractMeta will hand to the response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta := metaOf(c)
	if meta == nil {
		meta = map[string]interface{}{}
		c.Set(responseMetaKey, meta)
	}
	meta[key] = value
}

// SetCacheHit records whether the payload came from the cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, MetaCacheHit, hit)
}

// ExtractMeta returns the collected metadata, or nil when nothing was set.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta := metaOf(c)
	if len(meta) == 0 {
		return nil
	}
	return meta
}

func metaOf(c *gin.Context) map[string]interface{} {
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, _ := value.(map[string]interface{})
	return meta
}
