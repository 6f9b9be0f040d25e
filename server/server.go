// Package server exposes the scheduling engine over HTTP.
package server

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sohamukute/CogScheduler/core/cogsched"
	"github.com/sohamukute/CogScheduler/core/engine"
	"github.com/sohamukute/CogScheduler/core/llm"
	"github.com/sohamukute/CogScheduler/core/memory"
)

// Server wraps the engine with gin handlers.
type Server struct {
	eng *engine.Engine
}

// New builds a server over the engine.
func New(eng *engine.Engine) *Server {
	return &Server{eng: eng}
}

// Router assembles the route table. CORS is open; the deployed frontends
// live on changing preview domains.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization", "X-User-ID"},
	}))

	r.GET("/health", s.health)
	r.POST("/schedule", s.schedule)
	r.POST("/converse", s.converse)
	r.POST("/chat", s.converse)
	r.POST("/tlx-feedback", s.tlxFeedback)
	r.GET("/config", s.getConfig)
	r.PUT("/config", s.putConfig)
	r.GET("/profile", s.getProfile)
	r.PUT("/profile", s.putProfile)
	r.GET("/calendar/export", s.calendarExport)

	return r
}

// userID reads the caller identity header; absent means the single local
// user.
func userID(c *gin.Context) string {
	if id := c.GetHeader("X-User-ID"); id != "" {
		return id
	}
	return "local"
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "cognitive-scheduler"})
}

type scheduleRequest struct {
	Profile       cogsched.Profile `json:"profile"`
	Tasks         []cogsched.Task  `json:"tasks"`
	AvailableFrom string           `json:"available_from"`
	AvailableTo   string           `json:"available_to"`
}

func (s *Server) schedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	res, err := s.eng.Schedule(c.Request.Context(), userID(c), cogsched.Request{
		Profile:       req.Profile,
		Tasks:         req.Tasks,
		AvailableFrom: req.AvailableFrom,
		AvailableTo:   req.AvailableTo,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type converseRequest struct {
	Message       string `json:"message"`
	AvailableFrom string `json:"available_from"`
	AvailableTo   string `json:"available_to"`
}

func (s *Server) converse(c *gin.Context) {
	var req converseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if req.AvailableFrom == "" {
		req.AvailableFrom = "09:00"
	}
	if req.AvailableTo == "" {
		req.AvailableTo = "21:00"
	}

	res, err := s.eng.Converse(c.Request.Context(), userID(c), req.Message, req.AvailableFrom, req.AvailableTo)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) tlxFeedback(c *gin.Context) {
	var entry cogsched.TLXEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	res, err := s.eng.SubmitTLX(c.Request.Context(), userID(c), entry)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) getConfig(c *gin.Context) {
	cfg, err := s.eng.EffectiveConfig(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg.Map())
}

func (s *Server) putConfig(c *gin.Context) {
	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	cfg, err := s.eng.UpdateConfig(c.Request.Context(), userID(c), updates)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg.Map())
}

func (s *Server) getProfile(c *gin.Context) {
	p, err := s.eng.Profile(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) putProfile(c *gin.Context) {
	var p cogsched.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.eng.SaveProfile(c.Request.Context(), userID(c), p); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// fail maps engine errors onto HTTP statuses. Validation and unknown-key
// errors are the caller's fault; everything else is ours.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cogsched.ErrUnknownConfigKey),
		errors.Is(err, cogsched.ErrMalformedTask),
		errors.Is(err, cogsched.ErrInvalidWindow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cogsched.ErrNoFreeTime):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, memory.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, llm.ErrParseFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, cogsched.ErrCancelled):
		c.JSON(499, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
