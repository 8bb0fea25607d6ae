package main

import (
	"errors"
	"net/http"
	"time"

	"desaweb/models"
	"desaweb/pkg/events"
	"desaweb/pkg/logger"
	"desaweb/pkg/reconcile"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func (a *app) setupRoutes(r *gin.Engine) {
	r.Use(requestLogger())
	r.GET("/health", a.healthHandler)
	if a.cfg.ObjectStore == "local" {
		r.Static("/uploads", a.cfg.UploadBase)
	}

	api := r.Group("/api")
	api.POST("/auth/login", a.loginHandler)
	api.POST("/auth/refresh", a.refreshHandler)
	api.POST("/auth/logout", a.logoutHandler)
	api.GET("/auth/session", a.requireRole(), a.sessionHandler)

	api.GET("/berita", a.publishedNewsHandler)
	api.GET("/berita/:slug", a.newsBySlugHandler)
	api.GET("/umkm", a.approvedBusinessesHandler)
	api.POST("/umkm", a.rateLimit(), a.registerBusinessHandler)
	api.GET("/umkm/:id", a.approvedBusinessHandler)
	api.GET("/umkm/:id/reviews", a.listReviewsHandler)
	api.POST("/umkm/:id/reviews", a.rateLimit(), a.addReviewHandler)
	api.POST("/visitors/track", a.trackVisitorHandler)
	api.GET("/visitors", a.visitorStatsHandler)
	api.POST("/kontak", a.rateLimit(), a.contactHandler)
	api.GET("/kategori", a.categoriesHandler)
	api.GET("/events", a.pollEventsHandler(false))
	api.GET("/events/stream", a.streamEventsHandler(false))
	api.POST("/uploads", a.requireRole(), a.uploadFileHandler)
	api.POST("/delete-berita", a.requireRole(models.RoleAdministrator), a.deleteBeritaHandler)

	admin := api.Group("/admin", a.requireRole())
	admin.GET("/dashboard", a.dashboardHandler)
	admin.GET("/berita", a.listNewsHandler)
	admin.POST("/berita", a.createNewsHandler)
	admin.GET("/berita/:id", a.getNewsHandler)
	admin.PATCH("/berita/:id", a.updateNewsHandler)
	admin.PUT("/berita/:id/status", a.newsStatusHandler)
	admin.DELETE("/berita/:id", a.deleteNewsHandler)
	admin.GET("/uploads", a.listUploadsHandler)
	admin.GET("/events", a.pollEventsHandler(true))
	admin.GET("/events/stream", a.streamEventsHandler(true))

	moderate := admin.Group("", a.requireRole(models.RoleAdministrator))
	moderate.GET("/umkm", a.listBusinessesHandler)
	moderate.GET("/umkm/:id", a.getBusinessHandler)
	moderate.PATCH("/umkm/:id", a.updateBusinessHandler)
	moderate.PUT("/umkm/:id/status", a.businessStatusHandler)
	moderate.DELETE("/umkm/:id", a.deleteBusinessHandler)
	moderate.POST("/sync", a.syncHandler)
}

// requestLogger tags every request with an X-Request-ID and logs it when done.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Set("request_id", reqID)
		c.Header("X-Request-ID", reqID)
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"client_ip":  c.ClientIP(),
			"request_id": reqID,
			"duration":   time.Since(start).Milliseconds(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Info("HTTP request")
	}
}

// rateLimit throttles the public forms per client address.
func (a *app) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		var lim *rate.Limiter
		if v, ok := a.limits.Get(key); ok {
			lim = v.(*rate.Limiter)
		} else {
			lim = rate.NewLimiter(rate.Limit(a.cfg.RateLimitRPS), a.cfg.RateLimitBurst)
			a.limits.Set(key, lim, cache.DefaultExpiration)
		}
		if !lim.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "terlalu banyak permintaan, coba lagi nanti"})
			return
		}
		c.Next()
	}
}

// requireRole accepts a valid bearer token whose role is one of roles. With
// no roles any staff role (administrator or editor) passes.
func (a *app) requireRole(roles ...string) gin.HandlerFunc {
	if len(roles) == 0 {
		roles = []string{models.RoleAdministrator, models.RoleEditor}
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			return
		}
		p, err := a.auth.parseAccess(authHeader[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		allowed := false
		for _, r := range roles {
			if p.Role == r {
				allowed = true
				break
			}
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Set("principal", p)
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) principal {
	v, _ := c.Get("principal")
	p, _ := v.(principal)
	return p
}

// respondError maps service errors to status codes.
func respondError(c *gin.Context, err error) {
	var v *reconcile.ValidationError
	switch {
	case errors.As(err, &v):
		c.JSON(http.StatusBadRequest, gin.H{"error": v.Message, "field": v.Field})
	case errors.Is(err, reconcile.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, reconcile.ErrTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, reconcile.ErrNoRemote):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case reconcile.IsRemote(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// partial adds the record store failure and any conflicts to a response.
func partial(h gin.H, remoteErr error, conflicts []reconcile.Conflict) gin.H {
	if remoteErr != nil {
		h["remote_error"] = remoteErr.Error()
	}
	if len(conflicts) > 0 {
		h["conflicts"] = conflicts
	}
	return h
}

func result[T any](c *gin.Context, status int, res reconcile.Result[T]) {
	var conflicts []reconcile.Conflict
	if res.Conflict != nil {
		conflicts = []reconcile.Conflict{*res.Conflict}
	}
	c.JSON(status, partial(gin.H{"data": res.Item}, res.RemoteErr, conflicts))
}

func (a *app) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"record_store": a.svc.HasRemote(),
		"mirror":       a.cfg.MirrorDriver,
		"object_store": a.cfg.ObjectStore,
	})
}

func (a *app) publish(c *gin.Context, typ string, data any) {
	if err := a.bus.Publish(c.Request.Context(), events.Event{Type: typ, Data: data}); err != nil {
		logger.WithField("type", typ).Warnf("publish event: %v", err)
	}
}

func (a *app) loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := a.auth.authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := a.auth.issueAccess(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	refreshToken, err := a.auth.issueRefresh(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	a.publish(c, events.SignedIn, p)
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken, "user": p})
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func (a *app) refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, newRT, err := a.auth.rotate(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, err := a.auth.issueAccess(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

func (a *app) logoutHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := a.auth.revoke(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	a.publish(c, events.SignedOut, p)
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

func (a *app) sessionHandler(c *gin.Context) {
	p := currentPrincipal(c)
	c.JSON(http.StatusOK, gin.H{"user": p, "can_moderate": p.isAdmin()})
}
