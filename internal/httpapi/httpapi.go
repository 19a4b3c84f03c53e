// Package httpapi serves the small REST surface next to the socket
// transport: health, session snapshots, join QR codes and host creation.
package httpapi

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kiliankoe/parodyparty/internal/game"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320 // mobile-friendly size

type Options struct {
	// PublicURL is the address players open to join. When empty it is
	// derived from the request.
	PublicURL string
	HostUser  string
	HostPass  string
}

type API struct {
	svc  *game.Service
	opts Options
	now  func() time.Time
}

func New(svc *game.Service, opts Options) *API {
	return &API{svc: svc, opts: opts, now: time.Now}
}

func (a *API) Register(r gin.IRouter) {
	r.GET("/health", a.health)

	r.GET("/api/session/:code", a.snapshot)
	r.GET("/api/session/:code/qr.png", a.qr)
	r.POST("/api/session/:code/advance", a.advance)

	// Host-protected routes
	if a.opts.HostUser != "" && a.opts.HostPass != "" {
		auth := gin.BasicAuth(gin.Accounts{a.opts.HostUser: a.opts.HostPass})
		r.POST("/api/host/create", auth, a.create)
	}
}

func (a *API) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": a.now().UTC()})
}

func (a *API) snapshot(c *gin.Context) {
	sess, err := a.svc.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (a *API) qr(c *gin.Context) {
	sess, err := a.svc.Snapshot(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	png, err := qrcode.Encode(joinURL(a.baseURL(c.Request), sess.Code), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("code", sess.Code).Msg("qr generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": game.CodeInternal})
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/png", png)
}

func (a *API) advance(c *gin.Context) {
	advanced, err := a.svc.AdvanceIfReady(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"advanced": advanced})
}

type createReq struct {
	HostID      string `json:"hostId"`
	Name        string `json:"name"`
	DisplayOnly bool   `json:"displayOnly"`
	Difficulty  string `json:"difficulty"`
}

func (a *API) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if req.HostID == "" {
		req.HostID = uuid.NewString()
	}
	code, err := a.svc.CreateSession(c.Request.Context(), game.CreateRequest{
		HostID:            req.HostID,
		HostName:          req.Name,
		HostIsDisplayOnly: req.DisplayOnly,
		Difficulty:        req.Difficulty,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sessionCode": code, "hostId": req.HostID})
}

// baseURL prefers the configured public address and otherwise rebuilds one
// from the request, respecting X-Forwarded-Proto.
func (a *API) baseURL(r *http.Request) string {
	if a.opts.PublicURL != "" {
		return strings.TrimSuffix(a.opts.PublicURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func joinURL(base, code string) string {
	return base + "/?code=" + url.QueryEscape(code)
}

func writeError(c *gin.Context, err error) {
	code := game.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case game.CodeSessionNotFound:
		status = http.StatusNotFound
	case game.CodeValidation:
		status = http.StatusUnprocessableEntity
	case game.CodeBusy:
		status = http.StatusServiceUnavailable
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	body := gin.H{"error": code}
	if code == game.CodeValidation {
		body["message"] = err.Error()
	}
	c.JSON(status, body)
}
