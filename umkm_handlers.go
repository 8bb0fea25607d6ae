package main

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"desaweb/pkg/logger"
	"desaweb/pkg/objectstore"
	"desaweb/pkg/ocr"
	"desaweb/pkg/reconcile"
	"desaweb/pkg/record"

	"github.com/gin-gonic/gin"
)

type businessInput struct {
	NamaUsaha      string `json:"namaUsaha"`
	Kategori       string `json:"kategori"`
	Deskripsi      string `json:"deskripsi"`
	Alamat         string `json:"alamat"`
	Telepon        string `json:"telepon"`
	Email          string `json:"email"`
	Website        string `json:"website"`
	JamOperasional string `json:"jamOperasional"`
	HargaMin       *int64 `json:"hargaMin"`
	HargaMax       *int64 `json:"hargaMax"`
	ProdukUtama    string `json:"produkUtama"`
	NamaOwner      string `json:"namaOwner"`
	NikOwner       string `json:"nikOwner"`
	FotoURL        string `json:"fotoUrl"`
	FotoTempatURL  string `json:"fotoTempatUrl"`
}

func (in businessInput) record() record.Business {
	return record.Business{
		NamaUsaha:      in.NamaUsaha,
		Kategori:       in.Kategori,
		Deskripsi:      in.Deskripsi,
		Alamat:         in.Alamat,
		Telepon:        in.Telepon,
		Email:          in.Email,
		Website:        in.Website,
		JamOperasional: in.JamOperasional,
		HargaMin:       in.HargaMin,
		HargaMax:       in.HargaMax,
		ProdukUtama:    in.ProdukUtama,
		NamaOwner:      in.NamaOwner,
		NikOwner:       in.NikOwner,
		FotoURL:        in.FotoURL,
		FotoTempatURL:  in.FotoTempatURL,
	}
}

// businessFromForm reads a multipart registration. Prices that are empty or
// not numbers are left unset.
func businessFromForm(c *gin.Context) businessInput {
	price := func(name string) *int64 {
		v, err := strconv.ParseInt(strings.TrimSpace(c.PostForm(name)), 10, 64)
		if err != nil {
			return nil
		}
		return &v
	}
	return businessInput{
		NamaUsaha:      c.PostForm("namaUsaha"),
		Kategori:       c.PostForm("kategori"),
		Deskripsi:      c.PostForm("deskripsi"),
		Alamat:         c.PostForm("alamat"),
		Telepon:        c.PostForm("telepon"),
		Email:          c.PostForm("email"),
		Website:        c.PostForm("website"),
		JamOperasional: c.PostForm("jamOperasional"),
		HargaMin:       price("hargaMin"),
		HargaMax:       price("hargaMax"),
		ProdukUtama:    c.PostForm("produkUtama"),
		NamaOwner:      c.PostForm("namaOwner"),
		NikOwner:       c.PostForm("nikOwner"),
	}
}

func businessFilter(c *gin.Context) reconcile.BusinessFilter {
	return reconcile.BusinessFilter{
		Status:   record.BusinessStatus(c.Query("status")),
		Kategori: c.Query("kategori"),
		Query:    c.Query("q"),
	}
}

// public hides the owner's identity from visitors.
func public(v reconcile.BusinessView) reconcile.BusinessView {
	v.NikOwner = ""
	v.KTP = nil
	return v
}

func (a *app) approvedBusinessesHandler(c *gin.Context) {
	f := businessFilter(c)
	list, err := a.svc.Businesses().Approved(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	for i := range list.Items {
		list.Items[i] = public(list.Items[i])
	}
	c.JSON(http.StatusOK, partial(gin.H{"data": list.Items}, list.RemoteErr, nil))
}

func (a *app) approvedBusinessHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := a.svc.Businesses().GetApproved(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	res.Item = public(res.Item)
	c.JSON(http.StatusOK, partial(gin.H{"data": res.Item}, res.RemoteErr, nil))
}

// registerBusinessHandler takes a JSON body or a multipart form. The form
// may carry the photos "foto" and "fotoTempat" and an id card scan "ktp";
// the scan is only read for the NIK check and never stored.
func (a *app) registerBusinessHandler(c *gin.Context) {
	ctx := c.Request.Context()
	var in businessInput
	multipartForm := strings.HasPrefix(c.ContentType(), "multipart/")
	if multipartForm {
		in = businessFromForm(c)
	} else if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := a.svc.Businesses().Validate(in.record())
	if err != nil {
		respondError(c, err)
		return
	}

	var photos []objectstore.Uploaded
	if multipartForm {
		for field, dst := range map[string]*string{"foto": &b.FotoURL, "fotoTempat": &b.FotoTempatURL} {
			fh, err := c.FormFile(field)
			if err != nil {
				continue
			}
			up, err := a.storeFormFile(ctx, fh)
			if err != nil {
				a.discardUploads(ctx, photos)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": field})
				return
			}
			photos = append(photos, up)
			*dst = up.URL
		}
		if fh, err := c.FormFile("ktp"); err == nil && a.cfg.OCREnabled {
			b.KTP = verifyKTP(fh, b.NikOwner)
		}
	}

	res, err := a.svc.Businesses().Register(ctx, b)
	if err != nil {
		a.discardUploads(ctx, photos)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, partial(gin.H{
		"data":    public(res.Item),
		"message": "Pendaftaran UMKM berhasil dikirim dan menunggu persetujuan admin",
	}, res.RemoteErr, nil))
}

// discardUploads removes photos of a registration that was not stored.
func (a *app) discardUploads(ctx context.Context, uploads []objectstore.Uploaded) {
	for _, up := range uploads {
		if err := a.uploader.Remove(ctx, up); err != nil {
			logger.WithField("key", up.Key).Warnf("remove orphaned upload: %v", err)
		}
	}
}

func (a *app) storeFormFile(ctx context.Context, fh *multipart.FileHeader) (objectstore.Uploaded, error) {
	if fh.Size > objectstore.MaxUploadBytes {
		return objectstore.Uploaded{}, objectstore.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return objectstore.Uploaded{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, objectstore.MaxUploadBytes+1))
	if err != nil {
		return objectstore.Uploaded{}, err
	}
	return a.uploader.Upload(ctx, fh.Filename, fh.Header.Get("Content-Type"), data)
}

// verifyKTP runs the NIK check on an uploaded scan. Failures only produce
// an unreadable result.
func verifyKTP(fh *multipart.FileHeader, nik string) *record.KTPCheck {
	unreadable := &record.KTPCheck{Result: ocr.Unreadable}
	tmp, err := os.CreateTemp("", "ktp-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return unreadable
	}
	defer os.Remove(tmp.Name())
	src, err := fh.Open()
	if err != nil {
		tmp.Close()
		return unreadable
	}
	_, err = io.Copy(tmp, io.LimitReader(src, objectstore.MaxUploadBytes))
	src.Close()
	tmp.Close()
	if err != nil {
		return unreadable
	}
	check := ocr.Verify(tmp.Name(), nik)
	logger.WithField("result", check.Result).WithField("confidence", check.Confidence).Info("ktp checked")
	return &check
}

func (a *app) listBusinessesHandler(c *gin.Context) {
	list, err := a.svc.Businesses().List(c.Request.Context(), businessFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partial(gin.H{"data": list.Items}, list.RemoteErr, list.Conflicts))
}

func (a *app) getBusinessHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := a.svc.Businesses().Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	result(c, http.StatusOK, res)
}

func (a *app) updateBusinessHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch record.BusinessPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.svc.Businesses().Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	result(c, http.StatusOK, res)
}

// businessStatusHandler approves or rejects a registration. Changing an
// already moderated business needs "force": true.
func (a *app) businessStatusHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Status record.BusinessStatus `json:"status" binding:"required"`
		Force  bool                  `json:"force"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := a.svc.Businesses().SetStatus(c.Request.Context(), id, req.Status, req.Force)
	if err != nil {
		respondError(c, err)
		return
	}
	result(c, http.StatusOK, res)
}

func (a *app) deleteBusinessHandler(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := a.svc.Businesses().Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partial(gin.H{"success": true, "id": res.Item}, res.RemoteErr, nil))
}

func (a *app) syncHandler(c *gin.Context) {
	report, err := a.svc.PushLocal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}
