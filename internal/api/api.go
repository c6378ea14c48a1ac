// Package api serves the skiaicoach web application: upload a ski video, let
// a background worker analyze it, and present the coaching result.
package api

import (
	"fmt"
	"net/http"
	"net/http/pprof"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/analysis"
	"github.com/shelfeng/skiaicoach/internal/jobs"
	"github.com/shelfeng/skiaicoach/internal/logger"
	"github.com/shelfeng/skiaicoach/internal/options"
	"github.com/shelfeng/skiaicoach/internal/storage"
	"github.com/shelfeng/skiaicoach/internal/worker"
)

// Server is the skiaicoach HTTP server.
type Server struct {
	opts *options.Options

	jobs   *jobs.Store
	files  storage.Store
	worker *worker.Worker

	server *echo.Echo
}

// NewServer wires the server together from the resolved options.
func NewServer(opts *options.Options, files storage.Store) (*Server, error) {
	jobStore := jobs.NewStore()
	processor := analysis.NewProcessor(opts)

	s := &Server{
		opts:   opts,
		jobs:   jobStore,
		files:  files,
		worker: worker.New(jobStore, files, processor),
	}

	server := echo.New()
	server.Logger = logger.Echo()
	server.HidePort = true
	server.HideBanner = true
	server.Use(middleware.Recover())
	server.Pre(middleware.RemoveTrailingSlash())

	renderer, err := newRenderer()
	if err != nil {
		return nil, err
	}
	server.Renderer = renderer

	server.GET("/", s.index)
	server.POST("/upload", s.upload)
	server.GET("/result/:job_id", s.result)
	server.GET("/api/status/:job_id", s.status)
	server.GET("/api/healthz", s.healthz)
	server.Static("/static/frames", opts.FramesDir)

	if opts.Debug {
		server.Any("/debug/pprof/*", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
		server.Any("/debug/pprof/cmdline", echo.WrapHandler(http.HandlerFunc(pprof.Cmdline)))
		server.Any("/debug/pprof/profile", echo.WrapHandler(http.HandlerFunc(pprof.Profile)))
		server.Any("/debug/pprof/symbol", echo.WrapHandler(http.HandlerFunc(pprof.Symbol)))
		server.Any("/debug/pprof/trace", echo.WrapHandler(http.HandlerFunc(pprof.Trace)))
	}

	s.server = server
	return s, nil
}

// Serve blocks serving HTTP until the server is closed.
func (s *Server) Serve() error {
	bindAddr := fmt.Sprintf("%s:%d", s.opts.BindIP, s.opts.BindPort)
	log.Infof("starting skiaicoach server on [%s] with %s storage", bindAddr, s.files.Name())
	return s.server.Start(bindAddr)
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.server.Close()
}
