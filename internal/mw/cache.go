package mw

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"laundry-branch-monitor/internal/cache"
)

type cachedResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body"`
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache is a middleware caching successful GET responses in store.
func Cache(store cache.Store, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := "http:" + c.Request.RequestURI
		if raw, found := store.Get(ctx, key); found {
			var cached cachedResponse
			if err := json.Unmarshal(raw, &cached); err == nil {
				for k, v := range cached.Headers {
					c.Writer.Header()[k] = v
				}
				c.Writer.Header().Set("X-Cache", "HIT")
				c.Writer.WriteHeader(cached.Status)
				c.Writer.Write(cached.Body)
				c.Abort()
				return
			}
			log.Printf("Warning: dropping undecodable cache entry %q", key)
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			response := cachedResponse{
				Status: blw.Status(),
				// Make a copy of the header map.
				Headers: blw.Header().Clone(),
				Body:    blw.body.Bytes(),
			}
			response.Headers.Del(RequestIDHeader)
			raw, err := json.Marshal(response)
			if err != nil {
				log.Printf("Warning: could not encode response for cache: %v", err)
				return
			}
			store.Set(ctx, key, raw, duration)
		}
	}
}
