package main

import (
	"net/http"
	"strconv"
	"strings"

	"desaweb/pkg/reconcile"
	"desaweb/pkg/record"

	"github.com/gin-gonic/gin"
)

type newsInput struct {
	Judul     string            `json:"judul" binding:"required"`
	Kategori  string            `json:"kategori"`
	Ringkasan string            `json:"ringkasan"`
	Konten    string            `json:"konten"`
	Penulis   string            `json:"penulis"`
	Tanggal   string            `json:"tanggal"`
	Status    record.NewsStatus `json:"status"`
	GambarURL string            `json:"gambarUrl"`
}

func (in newsInput) record() record.News {
	return record.News{
		Judul:     strings.TrimSpace(in.Judul),
		Kategori:  in.Kategori,
		Ringkasan: in.Ringkasan,
		Konten:    in.Konten,
		Penulis:   in.Penulis,
		Tanggal:   in.Tanggal,
		Status:    in.Status,
		GambarURL: in.GambarURL,
	}
}

func newsFilter(c *gin.Context) reconcile.NewsFilter {
	f := reconcile.NewsFilter{
		Status:   record.NewsStatus(c.Query("status")),
		Kategori: c.Query("kategori"),
		Query:    c.Query("q"),
	}
	f.Upcoming, _ = strconv.ParseBool(c.Query("upcoming"))
	return f
}

func pathID(c *gin.Context) (record.ID, bool) {
	id := record.ParseID(c.Param("id"))
	if id.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID tidak diberikan"})
		return id, false
	}
	return id, true
}

// publishedNewsHandler serves the public news page: published articles,
// newest first.
func (a *app) publishedNewsHandler(c *gin.Context) {
	list, err := a.svc.News().Published(c.Request.Context(), newsFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partial(gin.H{"data": list.Items}, list.RemoteErr, list.Conflicts))
}

func (a *app) newsBySlugHandler(c *gin.Context) {
	res, err := a.svc.News().GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Item.Status != record.NewsPublished {
		c.JSON(http.StatusNotFound, gin.H{"error": reconcile.ErrNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, partial(gin.H{
		"data":       res.Item,
		"paragraphs": res.Item.Paragraphs(),
	}, res.RemoteErr, nil))
}

func (a *app) listNewsHandler(c *gin.Context) {
	list, err := a.svc.News().List(c.Request.Context(), newsFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partial(gin.H{"data": list.Items}, list.RemoteErr, list.Conflicts))
}

func (a *app) getNewsHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := a.svc.News().Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	result(c, http.StatusOK, res)
}

// createNewsHandler writes to the record store when one is configured.
// ?local=1 keeps the article in the mirror only.
func (a *app) createNewsHandler(c *gin.Context) {
	var in newsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n := in.record()
	if n.Penulis == "" {
		n.Penulis = currentPrincipal(c).Username
	}
	ctx := c.Request.Context()
	var res reconcile.Result[reconcile.NewsView]
	var err error
	if local, _ := strconv.ParseBool(c.Query("local")); local {
		res, err = a.svc.News().CreateLocal(ctx, n)
	} else {
		res, err = a.svc.News().Create(ctx, n)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	result(c, http.StatusCreated, res)
}

func (a *app) updateNewsHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch record.NewsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.svc.News().Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	result(c, http.StatusOK, res)
}

func (a *app) newsStatusHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Status record.NewsStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.svc.News().SetStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	result(c, http.StatusOK, res)
}

func (a *app) deleteNewsHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := a.svc.News().Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partial(gin.H{"success": true, "id": res.Item}, res.RemoteErr, nil))
}

// deleteBeritaHandler is the privileged deletion endpoint. It uses the
// deletion client, which may hold stronger record store credentials than
// the regular one.
func (a *app) deleteBeritaHandler(c *gin.Context) {
	var req struct {
		ID any `json:"id"`
	}
	_ = c.ShouldBindJSON(&req)
	var raw string
	switch v := req.ID.(type) {
	case string:
		raw = v
	case float64:
		raw = strconv.FormatInt(int64(v), 10)
	}
	id := record.ParseID(raw)
	if id.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID tidak diberikan"})
		return
	}
	if _, err := a.svc.News().DeleteWith(c.Request.Context(), a.deleter, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
