package crudtest

import (
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	goerrors "github.com/kbukum/crudkit/errors"
)

// Asset is the resource served by Server.
type Asset struct {
	ID   string   `json:"id"`
	Name string   `json:"name" binding:"required"`
	Tags []string `json:"tags,omitempty"`
}

// Server is an in-memory asset REST service:
//
//	GET    /assets       list
//	POST   /assets       create, 201 with Location
//	GET    /assets/:id   read
//	PUT    /assets/:id   replace or create
//	POST   /assets/:id   update the name and tags present in the body
//	DELETE /assets/:id   delete, 204
//
// Every response echoes X-Request-Id.
type Server struct {
	engine *gin.Engine

	mu       sync.Mutex
	assets   map[string]Asset
	failures []int
	requests []*http.Request
}

// NewServer returns an empty asset service.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{engine: gin.New(), assets: make(map[string]Asset)}
	s.engine.Use(requestID(), s.record(), s.injectFailures())

	g := s.engine.Group("/assets")
	g.GET("", s.list)
	g.POST("", s.create)
	g.GET("/:id", s.read)
	g.PUT("/:id", s.replace)
	g.POST("/:id", s.update)
	g.DELETE("/:id", s.remove)
	return s
}

// Start serves s on a loopback listener. The caller closes the returned
// server.
func (s *Server) Start() *httptest.Server {
	return httptest.NewServer(s.engine)
}

// Handler returns the gin engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Put stores a directly, bypassing HTTP.
func (s *Server) Put(a Asset) Asset {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
	return a
}

// Lookup returns the stored asset with id.
func (s *Server) Lookup(id string) (Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	return a, ok
}

// FailNext makes the next len(statuses) requests answer with those
// statuses, in order, without touching the store.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// Requests returns clones of the requests received so far.
func (s *Server) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.New().String()
		}
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

func (s *Server) record() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		s.requests = append(s.requests, c.Request.Clone(c.Request.Context()))
		s.mu.Unlock()
		c.Next()
	}
}

func (s *Server) injectFailures() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.mu.Lock()
		var status int
		if len(s.failures) > 0 {
			status, s.failures = s.failures[0], s.failures[1:]
		}
		s.mu.Unlock()
		if status != 0 {
			c.AbortWithStatusJSON(status, goerrors.FromStatus(status).ToResponse())
			return
		}
		c.Next()
	}
}

func (s *Server) list(c *gin.Context) {
	s.mu.Lock()
	out := make([]Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) create(c *gin.Context) {
	var a Asset
	if err := c.ShouldBindJSON(&a); err != nil {
		respondWithError(c, goerrors.Validation(err.Error()))
		return
	}
	a.ID = ""
	a = s.Put(a)
	c.Header("Location", "/assets/"+a.ID)
	c.JSON(http.StatusCreated, a)
}

func (s *Server) read(c *gin.Context) {
	a, ok := s.Lookup(c.Param("id"))
	if !ok {
		respondWithError(c, goerrors.NotFound("asset", c.Param("id")))
		return
	}
	c.Header("ETag", `"`+a.ID+`"`)
	c.JSON(http.StatusOK, a)
}

func (s *Server) replace(c *gin.Context) {
	var a Asset
	if err := c.ShouldBindJSON(&a); err != nil {
		respondWithError(c, goerrors.Validation(err.Error()))
		return
	}
	a.ID = c.Param("id")
	_, existed := s.Lookup(a.ID)
	s.Put(a)
	if existed {
		c.JSON(http.StatusOK, a)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (s *Server) update(c *gin.Context) {
	var patch struct {
		Name string   `json:"name"`
		Tags []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondWithError(c, goerrors.Validation(err.Error()))
		return
	}

	s.mu.Lock()
	a, ok := s.assets[c.Param("id")]
	if ok {
		if patch.Name != "" {
			a.Name = patch.Name
		}
		if patch.Tags != nil {
			a.Tags = patch.Tags
		}
		s.assets[a.ID] = a
	}
	s.mu.Unlock()

	if !ok {
		respondWithError(c, goerrors.NotFound("asset", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) remove(c *gin.Context) {
	s.mu.Lock()
	_, ok := s.assets[c.Param("id")]
	delete(s.assets, c.Param("id"))
	s.mu.Unlock()

	if !ok {
		respondWithError(c, goerrors.NotFound("asset", c.Param("id")))
		return
	}
	c.Status(http.StatusNoContent)
}

func respondWithError(c *gin.Context, err *goerrors.AppError) {
	c.JSON(err.HTTPStatus, err.ToResponse())
}
