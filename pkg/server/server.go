package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/YspCoder/menuctl/pkg/config"
	"github.com/YspCoder/menuctl/pkg/logger"
	"github.com/YspCoder/menuctl/pkg/richmenu"
	"github.com/YspCoder/menuctl/pkg/templates"
)

type Server struct {
	server    *http.Server
	config    *config.Config
	client    *richmenu.Client
	templates *templates.Store
	limiter   *clientLimiter
	startedAt time.Time
}

func NewServer(cfg *config.Config, client *richmenu.Client, store *templates.Store) *Server {
	return &Server{
		config:    cfg,
		client:    client,
		templates: store,
		limiter:   newClientLimiter(cfg.Gateway.RateLimitRPS, cfg.Gateway.RateLimitBurst),
		startedAt: time.Now(),
	}
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/richmenus", s.handleListMenus)
	mux.HandleFunc("POST /api/richmenus", s.handleCreateMenu)
	mux.HandleFunc("POST /api/richmenus/validate", s.handleValidateMenu)
	mux.HandleFunc("GET /api/richmenus/{id}", s.handleGetMenu)
	mux.HandleFunc("DELETE /api/richmenus/{id}", s.handleDeleteMenu)
	mux.HandleFunc("POST /api/richmenus/{id}/image", s.handleUploadImage)
	mux.HandleFunc("GET /api/richmenus/{id}/image", s.handleDownloadImage)
	mux.HandleFunc("POST /api/richmenus/bulk/link", s.handleBulkLink)
	mux.HandleFunc("POST /api/richmenus/bulk/unlink", s.handleBulkUnlink)

	mux.HandleFunc("GET /api/default-richmenu", s.handleGetDefault)
	mux.HandleFunc("DELETE /api/default-richmenu", s.handleClearDefault)
	mux.HandleFunc("POST /api/default-richmenu/{id}", s.handleSetDefault)

	mux.HandleFunc("GET /api/users/{userId}/richmenu", s.handleGetUserMenu)
	mux.HandleFunc("DELETE /api/users/{userId}/richmenu", s.handleUnlinkUser)
	mux.HandleFunc("POST /api/users/{userId}/richmenu/{id}", s.handleLinkUser)

	mux.HandleFunc("GET /api/aliases", s.handleListAliases)
	mux.HandleFunc("POST /api/aliases", s.handleCreateAlias)
	mux.HandleFunc("GET /api/aliases/{aliasId}", s.handleGetAlias)
	mux.HandleFunc("PUT /api/aliases/{aliasId}", s.handleUpdateAlias)
	mux.HandleFunc("DELETE /api/aliases/{aliasId}", s.handleDeleteAlias)

	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/templates/{name}", s.handleGetTemplate)

	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("POST /api/token", s.handleSetToken)

	mux.HandleFunc("/api/", s.handleAPINotFound)
	if dir := s.config.Gateway.StaticDir; dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	} else {
		mux.HandleFunc("/", s.handleRoot)
	}

	return Chain(mux,
		RequestID,
		AccessLog,
		Recovery,
		CORS(s.config.Gateway.AllowedOrigins),
		s.limiter.Middleware,
	)
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Gateway.Host, s.config.Gateway.Port)
}

func (s *Server) Start() error {
	addr := s.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.InfoCF("server", "Starting HTTP server", map[string]interface{}{
		"addr":       addr,
		"static_dir": s.config.Gateway.StaticDir,
	})

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("server", "HTTP server failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		logger.InfoC("server", "Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "menuctl gateway running\nStarted: %s", s.startedAt.Format(time.RFC3339))
}

func (s *Server) handleAPINotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{
		Error:  fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path),
		Status: http.StatusNotFound,
	})
}
