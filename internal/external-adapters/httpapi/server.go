// Package httpapi serves stored assessment results over a read-only HTTP API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ochairo/sbleedy/internal/domain/entities"
	"github.com/ochairo/sbleedy/internal/domain/interfaces"
	"github.com/ochairo/sbleedy/internal/domain/interfaces/repositories"
)

// ResultStore is the read side of the results directory
type ResultStore interface {
	Targets() ([]string, error)
	DoneExploits(target string) ([]string, error)
	LoadResult(target, exploit string) (*entities.ExploitRecord, error)
	LoadReport(target string) (*entities.MachineReport, error)
}

// Server is the report API
type Server struct {
	router   *gin.Engine
	exploits repositories.ExploitRepository
	store    ResultStore
	logger   interfaces.Logger
}

// exploitView is the API representation of a catalog entry
type exploitView struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Type         string   `json:"type"`
	CVE          string   `json:"cve"`
	Hardware     []string `json:"hardware"`
	Profile      string   `json:"profile"`
	BTVersionMin float64  `json:"bt_version_min"`
	BTVersionMax float64  `json:"bt_version_max"`
	MassTesting  bool     `json:"mass_testing"`
}

// resultView is one stored verdict
type resultView struct {
	Exploit string `json:"exploit"`
	Code    int    `json:"code"`
	Verdict string `json:"verdict"`
	Data    string `json:"data"`
	CVE     string `json:"cve"`
}

// NewServer creates the API server
func NewServer(exploits repositories.ExploitRepository, store ResultStore, logger interfaces.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:   gin.New(),
		exploits: exploits,
		store:    store,
		logger:   interfaces.OrNoOp(logger),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/exploits", s.handleListExploits)
		api.GET("/exploits/:name", s.handleGetExploit)
		api.GET("/targets", s.handleListTargets)
		api.GET("/targets/:target/results", s.handleListResults)
		api.GET("/targets/:target/results/:exploit", s.handleGetResult)
		api.GET("/targets/:target/report", s.handleGetReport)
	}
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Report API listening", interfaces.F("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("API request",
			interfaces.F("method", c.Request.Method),
			interfaces.F("path", c.Request.URL.Path),
			interfaces.F("status", c.Writer.Status()),
			interfaces.F("duration", time.Since(start).String()))
	}
}

func (s *Server) handleListExploits(c *gin.Context) {
	exploits, err := s.exploits.ListExploits(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	views := make([]exploitView, 0, len(exploits))
	for _, e := range exploits {
		views = append(views, toExploitView(e))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetExploit(c *gin.Context) {
	exploit, err := s.exploits.GetExploit(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toExploitView(exploit))
}

func (s *Server) handleListTargets(c *gin.Context) {
	targets, err := s.store.Targets()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"targets": targets})
}

func (s *Server) handleListResults(c *gin.Context) {
	target := c.Param("target")
	names, err := s.store.DoneExploits(target)
	if err != nil {
		s.fail(c, err)
		return
	}

	views := make([]resultView, 0, len(names))
	for _, name := range names {
		record, err := s.store.LoadResult(target, name)
		if err != nil {
			s.logger.Warn("Skipping unreadable result",
				interfaces.F("target", target),
				interfaces.F("exploit", name),
				interfaces.F("error", err))
			continue
		}
		views = append(views, toResultView(name, record))
	}
	c.JSON(http.StatusOK, views)
}

func (s *Server) handleGetResult(c *gin.Context) {
	exploit := c.Param("exploit")
	record, err := s.store.LoadResult(c.Param("target"), exploit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResultView(exploit, record))
}

func (s *Server) handleGetReport(c *gin.Context) {
	report, err := s.store.LoadReport(c.Param("target"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// fail maps domain errors to HTTP statuses
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, entities.ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("API request failed",
			interfaces.F("path", c.Request.URL.Path),
			interfaces.F("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func toExploitView(e *entities.Exploit) exploitView {
	hardware := e.HardwareList()
	if hardware == nil {
		hardware = []string{}
	}
	return exploitView{
		Name:         e.Name,
		Description:  e.Description,
		Type:         e.Type,
		CVE:          e.CVE,
		Hardware:     hardware,
		Profile:      e.Profile,
		BTVersionMin: e.BTVersionMin,
		BTVersionMax: e.BTVersionMax,
		MassTesting:  e.MassTesting,
	}
}

func toResultView(exploit string, record *entities.ExploitRecord) resultView {
	return resultView{
		Exploit: exploit,
		Code:    int(record.Code),
		Verdict: record.Code.String(),
		Data:    record.Data,
		CVE:     record.CVE,
	}
}
