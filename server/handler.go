package server

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/tickerdesk/artifact"
	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/errcode"
	"github.com/KOMKZ/tickerdesk/httpx"
	"github.com/KOMKZ/tickerdesk/report"
	"github.com/KOMKZ/tickerdesk/table"
)

const (
	headerCache     = "X-Cache"
	headerCacheKey  = "X-Cache-Key"
	headerCreatedAt = "X-Created-At"
	headerStoreErr  = "X-Cache-Store-Error"

	contentHTML = "text/html; charset=utf-8"
)

// Handler report routes
type Handler struct {
	svc   *report.Service
	store *artifact.Store
}

// NewHandler creates the handler
func NewHandler(svc *report.Service) *Handler {
	return &Handler{svc: svc, store: svc.Cache().Store()}
}

// Register mounts the /api routes
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/report/:mode/:type", h.Report)
	api.GET("/file/:name", h.File)
	api.GET("/reports", h.Reports)
	api.GET("/cache/stats", h.CacheStats)
	api.GET("/artifact/:kind/:key", httpx.Wrap(h.Meta))
}

// ReportResponse json body of a report
type ReportResponse struct {
	Report    string       `json:"report"`
	Key       string       `json:"key"`
	FromCache bool         `json:"from_cache"`
	CreatedAt time.Time    `json:"created_at"`
	Table     *table.Frame `json:"table"`
}

// Report GET /api/report/:mode/:type
// html: the rendered page, or an inline error fragment
// json: the table inside the httpx envelope
func (h *Handler) Report(c *gin.Context) {
	var q report.Query
	bindErr := c.ShouldBindQuery(&q)
	asJSON := strings.EqualFold(strings.TrimSpace(c.Query("format")), string(report.FormatJSON))
	if bindErr != nil {
		h.fail(c, asJSON, ErrBadQuery.Wrap(bindErr))
		return
	}

	out, err := h.svc.Render(c.Request.Context(), c.Param("mode"), c.Param("type"), q)
	if err != nil {
		h.fail(c, asJSON, err)
		return
	}

	c.Header(headerCacheKey, out.Key)
	if out.Failed() {
		if out.Kind == artifact.KindTable {
			httpx.HandleError(c, out.Err)
			return
		}
		// provider failures stay inline so the page embedding the fragment keeps working
		page, _ := out.Value.(string)
		c.Data(http.StatusOK, contentHTML, []byte(page))
		return
	}

	if out.FromCache {
		c.Header(headerCache, "HIT")
	} else {
		c.Header(headerCache, "MISS")
	}
	if !out.CreatedAt.IsZero() {
		c.Header(headerCreatedAt, out.CreatedAt.Format(time.RFC3339))
	}
	if out.StoreErr != nil {
		c.Header(headerStoreErr, cache.UserMessage(out.StoreErr))
	}

	switch v := out.Value.(type) {
	case string:
		c.Data(http.StatusOK, contentHTML, []byte(v))
	case *table.Frame:
		httpx.OkJson(c, ReportResponse{
			Report:    out.Report.Name(),
			Key:       out.Key,
			FromCache: out.FromCache,
			CreatedAt: out.CreatedAt,
			Table:     v,
		})
	default:
		httpx.HandleError(c, report.ErrRender.WithMsgf("unexpected %s payload", out.Kind))
	}
}

// fail renders a request-level failure: validation, unknown report, contract
func (h *Handler) fail(c *gin.Context, asJSON bool, err error) {
	if asJSON {
		httpx.HandleError(c, err)
		return
	}
	status := http.StatusInternalServerError
	if le, ok := errcode.As(err); ok {
		status = le.HTTPStatus()
	}
	frag, _ := cache.ErrorFragment(artifact.KindHTML, err).(string)
	c.Data(status, contentHTML, []byte(frag))
}

// parseFileName splits "<key>.<ext>" into key and kind
func parseFileName(name string) (string, artifact.Kind, error) {
	ext := path.Ext(name)
	key := strings.TrimSuffix(name, ext)
	kind, ok := artifact.KindForExt(strings.ToLower(ext))
	if !ok || key == "" || strings.ContainsAny(key, `/\`) {
		return "", "", ErrBadFileName.WithData("name", name)
	}
	return key, kind, nil
}

// File GET /api/file/:name serves a stored artifact by its structured file name
// e.g. daily_history_INFY_03-03-2024_02-04-2024.png
func (h *Handler) File(c *gin.Context) {
	name := c.Param("name")
	key, kind, err := parseFileName(name)
	if err != nil {
		httpx.HandleError(c, err)
		return
	}

	a, ok := h.store.Load(c.Request.Context(), key, kind)
	if !ok || a.Empty() {
		httpx.HandleError(c, ErrFileNotFound.WithData("name", name))
		return
	}
	if a.Timestamped {
		c.Header("Last-Modified", a.CreatedAt.UTC().Format(http.TimeFormat))
	}

	switch v := a.Value.(type) {
	case string:
		c.Data(http.StatusOK, contentHTML, []byte(v))
	case *table.Frame:
		c.JSON(http.StatusOK, v)
	case []byte:
		c.Data(http.StatusOK, "image/png", v)
	}
}

// Reports GET /api/reports
func (h *Handler) Reports(c *gin.Context) {
	defs := h.svc.Registry().List()
	infos := make([]report.Info, 0, len(defs))
	for _, d := range defs {
		infos = append(infos, d.Info())
	}
	httpx.OkJson(c, infos)
}

// StatsResponse cache and store counters
type StatsResponse struct {
	Cache   cache.Stats         `json:"cache"`
	Store   artifact.StoreStats `json:"store"`
	Backend string              `json:"backend"`
}

// CacheStats GET /api/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	httpx.OkJson(c, StatsResponse{
		Cache:   h.svc.Cache().Stats(),
		Store:   h.store.Stats(),
		Backend: h.store.Backend().Name(),
	})
}

// MetaRequest path of GET /api/artifact/:kind/:key
type MetaRequest struct {
	Kind string `uri:"kind"`
	Key  string `uri:"key"`
}

// Validate implements validator.Validatable
func (r *MetaRequest) Validate() error {
	kinds := make([]any, 0, len(artifact.Kinds()))
	for _, k := range artifact.Kinds() {
		kinds = append(kinds, string(k))
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.Kind, validation.Required, validation.In(kinds...)),
		validation.Field(&r.Key, validation.Required),
	)
}

// Meta GET /api/artifact/:kind/:key, the stored header without the payload
func (h *Handler) Meta(c *gin.Context, req *MetaRequest) (*artifact.Meta, error) {
	meta, ok := h.store.Stat(c.Request.Context(), req.Key, artifact.Kind(req.Kind))
	if !ok {
		return nil, ErrFileNotFound.WithMsgf("no %s artifact stored for %s", req.Kind, req.Key)
	}
	return &meta, nil
}
