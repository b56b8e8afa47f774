package main

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/filebed/filebed_sdk_go/internal/filebedapi"
	"github.com/filebed/filebed_sdk_go/pkg/auth"
	"github.com/filebed/filebed_sdk_go/pkg/filebed"
	"github.com/filebed/filebed_sdk_go/pkg/filebed/mock"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type serverOptions struct {
	secret  string
	latency time.Duration
	fail    failConfig
	log     logrus.FieldLogger
}

type server struct {
	store    *mock.Store
	opts     serverOptions
	requests *prometheus.CounterVec
}

// newRouter serves every endpoint under its plain path and its ".json"
// fixture path, so clients work in both modes against the same sandbox.
func newRouter(store *mock.Store, opts serverOptions) *gin.Engine {
	if opts.log == nil {
		opts.log = logrus.StandardLogger()
	}
	s := &server{
		store: store,
		opts:  opts,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filebed",
			Subsystem: "sandbox",
			Name:      "requests_total",
			Help:      "Requests served, by route and HTTP status.",
		}, []string{"route", "code"}),
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(s.requests)

	r := gin.New()
	r.Use(gin.Recovery(), s.count, s.logRequest)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET(filebed.FilePathPrefix+"/*path", s.handleFile)

	api := r.Group("/", s.inject, s.authenticate)
	routes := []struct {
		method  string
		path    string
		handler gin.HandlerFunc
	}{
		{http.MethodPost, filebed.PingPath, s.handlePing},
		{http.MethodPost, filebed.AddURLPath, s.handleAddURL},
		{http.MethodPost, filebed.AddFilePath, s.handleAddFile},
		{http.MethodPost, filebed.RemoveFilePath, s.handleRemoveFile},
		{http.MethodGet, filebed.GetFileCompleteInfoPath, s.handleGetFileCompleteInfo},
		{http.MethodGet, filebed.ListFileSimpleInfoPath, s.handleListFileSimpleInfo},
		{http.MethodGet, filebed.ListFileCompleteInfoPath, s.handleListFileCompleteInfo},
		{http.MethodGet, filebed.ListLastFileInfoPath, s.handleListLastFileInfo},
		{http.MethodPost, filebed.PushSyncFilePath, s.handlePushSyncFile},
		{http.MethodPost, filebed.PullSyncFilePath, s.handlePullSyncFile},
	}
	for _, rt := range routes {
		api.Handle(rt.method, rt.path, rt.handler)
		api.Handle(rt.method, rt.path+".json", rt.handler)
	}
	return r
}

// inject applies the configured latency and random failures.
func (s *server) inject(c *gin.Context) {
	if s.opts.latency > 0 {
		time.Sleep(s.opts.latency)
	}
	if s.opts.fail.rate > 0 && rand.Float64() < s.opts.fail.rate {
		status := s.opts.fail.code
		if status == 0 {
			status = http.StatusInternalServerError
		}
		c.AbortWithStatusJSON(status, filebedapi.Failure("failure injected"))
		return
	}
	c.Next()
}

func (s *server) authenticate(c *gin.Context) {
	if s.opts.secret == "" {
		c.Next()
		return
	}
	token, ok := auth.BearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, filebedapi.Failure("missing bearer token"))
		return
	}
	if _, err := auth.Verify(token, s.opts.secret); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, filebedapi.Failure(err.Error()))
		return
	}
	c.Next()
}

func (s *server) count(c *gin.Context) {
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	s.requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
}

func (s *server) logRequest(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.opts.log.WithFields(logrus.Fields{
		"method":   c.Request.Method,
		"path":     c.Request.URL.Path,
		"status":   c.Writer.Status(),
		"duration": time.Since(start),
	}).Info("sandbox: request")
}

func (s *server) respond(c *gin.Context, data any, err error) {
	if err != nil {
		s.opts.log.WithFields(logrus.Fields{"path": c.Request.URL.Path, "err": err}).Warn("sandbox: request failed")
		c.JSON(http.StatusOK, filebedapi.Failure(filebed.Describe(err)))
		return
	}
	c.JSON(http.StatusOK, filebedapi.Success(data))
}

func (s *server) handlePing(c *gin.Context) {
	data, err := s.store.Ping(c.Request.Context())
	s.respond(c, data, err)
}

func (s *server) handleAddURL(c *gin.Context) {
	var req filebed.URLAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respond(c, nil, err)
		return
	}
	resp, err := s.store.AddURL(c.Request.Context(), req)
	s.respond(c, resp, err)
}

func (s *server) handleAddFile(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.respond(c, nil, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		s.respond(c, nil, err)
		return
	}
	defer file.Close()

	raw, _ := strconv.ParseBool(c.PostForm("raw"))
	resp, err := s.store.AddFile(c.Request.Context(), filebed.FileAddRequest{
		Path:     c.PostForm("path"),
		FileName: header.Filename,
		Data:     file,
		Raw:      raw,
	})
	s.respond(c, resp, err)
}

func (s *server) handleRemoveFile(c *gin.Context) {
	var req filebed.FileRemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respond(c, nil, err)
		return
	}
	resp, err := s.store.RemoveFile(c.Request.Context(), req)
	s.respond(c, resp, err)
}

func (s *server) handleGetFileCompleteInfo(c *gin.Context) {
	resp, err := s.store.GetFileCompleteInfo(c.Request.Context(), c.Query("path"))
	s.respond(c, resp, err)
}

func (s *server) handleListFileSimpleInfo(c *gin.Context) {
	resp, err := s.store.ListFileSimpleInfo(c.Request.Context(), c.Query("path"))
	s.respond(c, resp, err)
}

func (s *server) handleListFileCompleteInfo(c *gin.Context) {
	resp, err := s.store.ListFileCompleteInfo(c.Request.Context(), c.Query("path"))
	s.respond(c, resp, err)
}

func (s *server) handleListLastFileInfo(c *gin.Context) {
	resp, err := s.store.ListLastFileInfo(c.Request.Context())
	s.respond(c, resp, err)
}

func (s *server) handlePushSyncFile(c *gin.Context) {
	var req filebed.SyncFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respond(c, nil, err)
		return
	}
	resp, err := s.store.PushSyncFile(c.Request.Context(), req)
	s.respond(c, resp, err)
}

func (s *server) handlePullSyncFile(c *gin.Context) {
	var req filebed.SyncFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respond(c, nil, err)
		return
	}
	resp, err := s.store.PullSyncFile(c.Request.Context(), req)
	s.respond(c, resp, err)
}

// handleFile serves raw file contents; pull synchronisation downloads
// through it.
func (s *server) handleFile(c *gin.Context) {
	p := "/" + strings.TrimLeft(c.Param("path"), "/")
	data, err := s.store.ReadFile(c.Request.Context(), p)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}
