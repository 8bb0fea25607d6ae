package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"desaweb/models"
	"desaweb/pkg/events"
	"desaweb/pkg/logger"
	"desaweb/pkg/objectstore"
	"desaweb/pkg/record"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const pingInterval = 25 * time.Second

// listReviewsHandler shows reviews of approved businesses only.
func (a *app) listReviewsHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := a.svc.Businesses().GetApproved(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	reviews, err := a.svc.Reviews().List(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	rating, err := a.svc.Reviews().Rating(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": reviews, "rating": rating})
}

// addReviewHandler accepts reviews for approved businesses only.
func (a *app) addReviewHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Nama     string `json:"nama" binding:"required"`
		Rating   int    `json:"rating" binding:"required,min=1,max=5"`
		Komentar string `json:"komentar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	if _, err := a.svc.Businesses().GetApproved(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	stored, err := a.svc.Reviews().Add(ctx, id, record.Review{Nama: req.Nama, Rating: req.Rating, Komentar: req.Komentar})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": stored})
}

// trackVisitorHandler counts a visitor once per visit window, keyed by
// address and user agent.
func (a *app) trackVisitorHandler(c *gin.Context) {
	ctx := c.Request.Context()
	key := c.ClientIP() + "|" + c.Request.UserAgent()
	if err := a.visits.Add(key, struct{}{}, cache.DefaultExpiration); err != nil {
		st, err := a.svc.Visitors().Stats(ctx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": st, "counted": false})
		return
	}
	st, err := a.svc.Visitors().Track(ctx)
	if err != nil {
		a.visits.Delete(key)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st, "counted": true})
}

func (a *app) visitorStatsHandler(c *gin.Context) {
	st, err := a.svc.Visitors().Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": st})
}

type contactMessage struct {
	Nama    string `json:"nama" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Telepon string `json:"telepon"`
	Subjek  string `json:"subjek" binding:"required"`
	Pesan   string `json:"pesan" binding:"required"`
}

var bulan = [...]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli",
	"Agustus", "September", "Oktober", "November", "Desember"}

func tanggalIndonesia(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), bulan[t.Month()-1], t.Year())
}

// mailto builds the link the contact page opens in the visitor's mail client.
func (m contactMessage) mailto(to string, now time.Time) (subject, body, link string) {
	telepon := m.Telepon
	if strings.TrimSpace(telepon) == "" {
		telepon = "Tidak disertakan"
	}
	subject = "[Website Desa] " + m.Subjek
	body = "PESAN DARI WEBSITE Desa Karangampel\n" +
		"================================\n\n" +
		"Nama Pengirim: " + m.Nama + "\n" +
		"Email: " + m.Email + "\n" +
		"Telepon: " + telepon + "\n" +
		"Subjek: " + m.Subjek + "\n\n" +
		"PESAN:\n" + m.Pesan + "\n\n" +
		"================================\n" +
		"Dikirim melalui website resmi Desa Karangampel\n" +
		"Tanggal: " + tanggalIndonesia(now)
	escape := func(s string) string { return strings.ReplaceAll(url.QueryEscape(s), "+", "%20") }
	link = "mailto:" + to + "?subject=" + escape(subject) + "&body=" + escape(body)
	return subject, body, link
}

func (a *app) contactHandler(c *gin.Context) {
	var msg contactMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	subject, body, link := msg.mailto(a.cfg.ContactEmail, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"mailto":  link,
		"to":      a.cfg.ContactEmail,
		"subject": subject,
		"body":    body,
	})
}

func (a *app) categoriesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"berita": record.NewsCategories(),
		"umkm":   record.BusinessCategories(),
	})
}

// pollEventsHandler is the fallback for clients that cannot hold a stream
// open: it returns the retained events after ?since. last follows the full
// sequence so filtered events are not scanned again.
func (a *app) pollEventsHandler(staff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		since, _ := strconv.ParseUint(c.Query("since"), 10, 64)
		evs := a.bus.Since(since)
		last := since
		if n := len(evs); n > 0 {
			last = evs[n-1].Seq
		}
		if !staff {
			evs = events.PublicSince(evs)
		}
		c.JSON(http.StatusOK, gin.H{"events": evs, "last": last})
	}
}

// streamEventsHandler pushes events as server-sent events. A reconnecting
// client gets what it missed through Last-Event-ID.
func (a *app) streamEventsHandler(staff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ch, err := a.bus.Subscribe(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		var backlog []events.Event
		if id, err := strconv.ParseUint(c.GetHeader("Last-Event-ID"), 10, 64); err == nil {
			backlog = a.bus.Since(id)
		}
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		send := func(ev events.Event) {
			if !staff {
				var ok bool
				if ev, ok = events.Public(ev); !ok {
					return
				}
			}
			c.Render(-1, sseEvent(ev))
		}
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		seen := uint64(0)
		c.Stream(func(w io.Writer) bool {
			if len(backlog) > 0 {
				for _, ev := range backlog {
					send(ev)
					seen = ev.Seq
				}
				backlog = nil
				return true
			}
			select {
			case <-ctx.Done():
				return false
			case ev, ok := <-ch:
				if !ok {
					return false
				}
				if ev.Seq > seen {
					send(ev)
				}
				return true
			case <-ticker.C:
				c.SSEvent("ping", time.Now().Unix())
				return true
			}
		})
	}
}

func sseEvent(ev events.Event) sse.Event {
	return sse.Event{Id: strconv.FormatUint(ev.Seq, 10), Event: ev.Type, Data: ev}
}

// uploadFileHandler stores an image for use in articles and registrations.
func (a *app) uploadFileHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file wajib diunggah"})
		return
	}
	up, err := a.storeFormFile(c.Request.Context(), fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if a.db != nil {
		rec := models.Upload{
			FileName:    fh.Filename,
			ObjectKey:   up.Key,
			URL:         up.URL,
			ContentType: up.ContentType,
			Size:        up.Size,
			Cached:      up.Cached,
			CacheID:     up.CacheID,
			UploadedBy:  currentPrincipal(c).Username,
		}
		if err := a.db.Create(&rec).Error; err != nil {
			logger.WithField("file", fh.Filename).Warnf("failed to record upload: %v", err)
		}
	}
	c.JSON(http.StatusCreated, gin.H{"data": up})
}

// listUploadsHandler lists recorded uploads, or the mirror's image cache
// when there is no database.
func (a *app) listUploadsHandler(c *gin.Context) {
	if a.db != nil {
		var uploads []models.Upload
		if err := a.db.Order("created_at desc").Find(&uploads).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": uploads})
		return
	}
	imgs, err := a.mirror.Images().GetAllImages(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]objectstore.Uploaded, 0, len(imgs))
	for _, img := range imgs {
		out = append(out, objectstore.Uploaded{
			URL:         img.Data,
			ContentType: img.Type,
			Size:        img.Size,
			Cached:      true,
			CacheID:     img.ID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (a *app) dashboardHandler(c *gin.Context) {
	d, err := a.svc.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partial(gin.H{
		"stats":      d.Stats,
		"activities": d.Activities,
	}, d.RemoteErr, d.Conflicts))
}
