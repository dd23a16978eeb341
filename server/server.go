// Package server implements the remote aggregator receiving the published
// price trees, keeping the latest document of each feed in memory.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Document is the latest payload received on a feed
type Document struct {
	LastUpdated float64         `json:"last_updated"`
	Items       json.RawMessage `json:"items"`
}

type feed struct {
	mtx sync.RWMutex
	doc *Document
}

func (f *feed) get() *Document {
	f.mtx.RLock()
	defer f.mtx.RUnlock()
	return f.doc
}

func (f *feed) set(doc *Document) {
	f.mtx.Lock()
	f.doc = doc
	f.mtx.Unlock()
}

type Server struct {
	// Required "key" query parameter on POST requests, if set
	Key string

	// Source of the last_updated field, defaults to time.Now
	Clock func() time.Time

	auction feed
	bazaar  feed
}

func NewServer(key string) *Server {
	srv := Server{}
	srv.Key = key
	srv.Clock = time.Now
	return &srv
}

// Router returns the gin engine serving all the routes
func (srv *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for path, f := range map[string]*feed{
		"/auction": &srv.auction,
		"/bazaar":  &srv.bazaar,
	} {
		handler := srv.handle(f)
		r.GET(path, handler)
		r.POST(path, handler)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}

func (srv *Server) handle(f *feed) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost {
			if srv.Key != "" && c.Query("key") != srv.Key {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
				return
			}

			var body struct {
				Items json.RawMessage `json:"items"`
			}
			err := c.ShouldBindJSON(&body)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			if len(body.Items) == 0 {
				body.Items = json.RawMessage(`""`)
			}

			now := time.Now()
			if srv.Clock != nil {
				now = srv.Clock()
			}
			f.set(&Document{
				LastUpdated: float64(now.Unix()) + float64(now.Nanosecond())/1e9,
				Items:       body.Items,
			})
		}

		doc := f.get()
		if doc == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, doc)
	}
}
