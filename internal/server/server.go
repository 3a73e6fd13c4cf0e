// Package server exposes receipt issuing over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/cleared-dev/recibo/internal/collect"
	"github.com/cleared-dev/recibo/internal/directory"
	"github.com/cleared-dev/recibo/internal/model"
	"github.com/cleared-dev/recibo/internal/money"
)

// Directory lists the remote clients.
type Directory interface {
	Clients(ctx context.Context) ([]model.Client, error)
	Invalidate(ctx context.Context) error
}

// Issuer runs the receipt flow.
type Issuer interface {
	Issue(ctx context.Context, req collect.Request) (*collect.Result, error)
}

// Response headers set on a successful receipt.
const (
	HeaderStatus          = "X-Receipt-Status"
	HeaderNumber          = "X-Receipt-Number"
	HeaderSubmissionError = "X-Submission-Error"
)

// maxHeaderDetail caps the submission error echoed in a header; the full
// detail stays in the server log and the audit log.
const maxHeaderDetail = 512

// Options configures a Server.
type Options struct {
	Directory   Directory
	Accounts    func() []string
	Issuer      Issuer
	CheckSigner func(name string) error
	Logger      *slog.Logger
}

// Server is the HTTP surface.
type Server struct {
	dir         Directory
	accounts    func() []string
	issuer      Issuer
	checkSigner func(string) error
	logger      *slog.Logger
	now         func() time.Time
	engine      *gin.Engine
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	s := &Server{
		dir:         opts.Directory,
		accounts:    opts.Accounts,
		issuer:      opts.Issuer,
		checkSigner: opts.CheckSigner,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.checkSigner == nil {
		s.checkSigner = func(string) error { return nil }
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.GET("/healthz", s.health)
	api := r.Group("/api")
	{
		api.GET("/clients", s.listClients)
		api.GET("/accounts", s.listAccounts)
		api.POST("/totals", s.totals)
		api.POST("/receipts", s.issueReceipt)
	}
	s.engine = r
	return s
}

// Handler returns the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type clientView struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

func (s *Server) listClients(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("refresh") == "true" {
		if err := s.dir.Invalidate(ctx); err != nil {
			s.logger.Warn("invalidating client directory", "error", err)
		}
	}
	clients, err := s.dir.Clients(ctx)
	if err != nil {
		s.logger.Error("listing clients", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	labels := directory.Labels(clients)
	out := make([]clientView, len(clients))
	for i, cl := range clients {
		out[i] = clientView{ID: cl.ID, Label: labels[i]}
	}
	c.JSON(http.StatusOK, gin.H{"clients": out})
}

func (s *Server) listAccounts(c *gin.Context) {
	var names []string
	if s.accounts != nil {
		names = s.accounts()
	}
	c.JSON(http.StatusOK, gin.H{"accounts": names})
}

func (s *Server) totals(c *gin.Context) {
	var form collect.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := collect.RunningTotals(form.Concepts, form.Methods)
	c.JSON(http.StatusOK, gin.H{
		"concepts":           t.Concepts.StringFixed(2),
		"methods":            t.Payments.StringFixed(2),
		"concepts_formatted": money.Format(t.Concepts),
		"methods_formatted":  money.Format(t.Payments),
		"balanced":           t.Balanced(),
	})
}

func (s *Server) issueReceipt(c *gin.Context) {
	ctx := c.Request.Context()

	var form collect.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.checkSigner(form.Signer); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	clients, err := s.dir.Clients(ctx)
	if err != nil {
		s.logger.Error("listing clients", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	req, err := form.Request(clients, s.now())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	res, err := s.issuer.Issue(ctx, req)
	switch {
	case errors.Is(err, collect.ErrRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.logger.Error("issuing receipt", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+res.FileName)
	c.Header(HeaderStatus, string(res.Status()))
	c.Header(HeaderNumber, res.Number)
	if detail := res.SubmissionError(); detail != "" {
		c.Header(HeaderSubmissionError, headerDetail(detail))
	}
	c.Data(http.StatusOK, "application/pdf", res.Document)
}

// headerDetail folds an error onto one line and truncates it to
// maxHeaderDetail bytes without splitting a rune.
func headerDetail(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= maxHeaderDetail {
		return s
	}
	const ellipsis = "..."
	cut := maxHeaderDetail - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}
