package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"desaweb/pkg/events"
	"desaweb/pkg/logger"
	"desaweb/pkg/mirror"
	"desaweb/pkg/normalize"
	"desaweb/pkg/record"
	"desaweb/pkg/recordstore"
)

type BusinessView struct {
	record.Business
	KategoriLabel string         `json:"kategoriLabel"`
	Rating        *record.Rating `json:"rating,omitempty"`
	Source        string         `json:"source"`
}

type BusinessFilter struct {
	Status   record.BusinessStatus
	Kategori string
	// Query matches name, owner, description and main product.
	Query string
}

func (f BusinessFilter) match(b record.Business) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Kategori != "" && f.Kategori != "all" && b.Kategori != f.Kategori {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return containsAny(q, b.NamaUsaha, b.NamaOwner, b.Deskripsi, b.ProdukUtama)
	}
	return true
}

type BusinessService struct {
	s *Service
}

func (bs *BusinessService) view(b record.Business, source string) BusinessView {
	return BusinessView{Business: b, KategoriLabel: record.BusinessCategoryLabel(b.Kategori), Source: source}
}

// List returns the reconciled directory, newest registration first for the
// record store part.
func (bs *BusinessService) List(ctx context.Context, f BusinessFilter) (Listing[BusinessView], error) {
	s := bs.s
	remote, local, remoteErr, err := fetch(ctx, s, recordstore.Businesses,
		recordstore.Query{OrderBy: "created_at", Desc: true}, normalize.Business, s.mirror.Businesses().GetAll)
	if err != nil {
		return Listing[BusinessView]{}, err
	}
	merged, conflicts := merge(remote, local, remoteErr == nil && s.remote != nil, businessID, diffBusiness)
	out := Listing[BusinessView]{Items: []BusinessView{}, Conflicts: conflicts, RemoteErr: remoteErr}
	for _, m := range merged {
		if f.match(m.rec) {
			out.Items = append(out.Items, bs.view(m.rec, m.source))
		}
	}
	return out, nil
}

// Approved is the public directory: approved businesses only, each with its
// average rating.
func (bs *BusinessService) Approved(ctx context.Context, f BusinessFilter) (Listing[BusinessView], error) {
	f.Status = record.BusinessApproved
	l, err := bs.List(ctx, f)
	if err != nil {
		return l, err
	}
	reviews, err := bs.s.mirror.Reviews().GetAll(ctx)
	if err != nil {
		return l, err
	}
	byBusiness := map[string][]record.Review{}
	for _, r := range reviews {
		byBusiness[r.UmkmID] = append(byBusiness[r.UmkmID], r)
	}
	for i := range l.Items {
		rating := mirror.AverageRating(byBusiness[l.Items[i].ID.String()])
		l.Items[i].Rating = &rating
	}
	return l, nil
}

func (bs *BusinessService) Get(ctx context.Context, id record.ID) (Result[BusinessView], error) {
	b, src, conflict, remoteErr, err := lookup(ctx, bs.s, recordstore.Businesses, id, normalize.Business,
		bs.s.mirror.Businesses().GetByID, diffBusiness)
	if err != nil {
		return Result[BusinessView]{RemoteErr: remoteErr}, err
	}
	return Result[BusinessView]{Item: bs.view(b, src), Conflict: conflict, RemoteErr: remoteErr}, nil
}

// GetApproved resolves a business for the public detail page. Anything not
// approved is reported as not found.
func (bs *BusinessService) GetApproved(ctx context.Context, id record.ID) (Result[BusinessView], error) {
	res, err := bs.Get(ctx, id)
	if err != nil {
		return res, err
	}
	if res.Item.Status != record.BusinessApproved {
		return Result[BusinessView]{}, ErrNotFound
	}
	rating, err := bs.s.mirror.Reviews().GetAverageRating(ctx, id.String())
	if err != nil {
		return res, err
	}
	res.Item.Rating = &rating
	return res, nil
}

// Validate trims and checks a registration without storing anything.
func (bs *BusinessService) Validate(b record.Business) (record.Business, error) {
	b.Status = record.BusinessPending
	b.NamaUsaha = strings.TrimSpace(b.NamaUsaha)
	b.NikOwner = strings.TrimSpace(b.NikOwner)
	b.Email = strings.TrimSpace(b.Email)
	return b, validateBusiness(b)
}

// Register validates a public registration and stores it as pending, in the
// record store when it is reachable and in the mirror otherwise.
func (bs *BusinessService) Register(ctx context.Context, b record.Business) (Result[BusinessView], error) {
	s := bs.s
	b, err := bs.Validate(b)
	if err != nil {
		return Result[BusinessView]{}, err
	}
	var remoteErr error
	if s.remote != nil {
		row, err := s.remote.Insert(ctx, recordstore.Businesses, normalize.BusinessRow(b))
		if err == nil {
			stored := normalize.Business(row)
			if err := s.mirror.Businesses().Put(ctx, stored); err != nil {
				logger.WithField("id", stored.ID.String()).Warnf("cache business copy: %v", err)
			}
			s.publish(ctx, events.BusinessRegistered, stored.ID, map[string]any{"namaUsaha": stored.NamaUsaha})
			return Result[BusinessView]{Item: bs.view(stored, SourceRemote)}, nil
		}
		remoteErr = &RemoteError{Op: "insert umkm", Err: err}
		logger.WithField("namaUsaha", b.NamaUsaha).Warnf("record store insert failed, keeping the registration in the mirror: %v", err)
	}
	stored, err := s.mirror.Businesses().Add(ctx, b)
	if err != nil {
		return Result[BusinessView]{RemoteErr: remoteErr}, err
	}
	s.publish(ctx, events.BusinessRegistered, stored.ID, map[string]any{"namaUsaha": stored.NamaUsaha})
	return Result[BusinessView]{Item: bs.view(stored, SourceLocal), RemoteErr: remoteErr}, nil
}

// Update edits the descriptive fields. Status, owner identity and the
// registration date are not editable here.
func (bs *BusinessService) Update(ctx context.Context, id record.ID, patch record.BusinessPatch) (Result[BusinessView], error) {
	cur, err := bs.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	next := patch.Apply(cur.Item.Business)
	if err := validateBusiness(next); err != nil {
		return Result[BusinessView]{}, err
	}
	return bs.write(ctx, id, next, cur.RemoteErr, events.BusinessUpdated)
}

// SetStatus moderates a business. Moving a business that is no longer
// pending needs force; setting the status it already has changes nothing.
func (bs *BusinessService) SetStatus(ctx context.Context, id record.ID, status record.BusinessStatus, force bool) (Result[BusinessView], error) {
	if !status.Valid() {
		return Result[BusinessView]{}, invalid("status", "status tidak dikenal")
	}
	cur, err := bs.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	from := cur.Item.Status
	if from == status {
		return cur, nil
	}
	if from != record.BusinessPending {
		if !force {
			return Result[BusinessView]{}, ErrTransition
		}
		logger.WithFields(logrus.Fields{"id": id.String(), "from": from, "to": status}).
			Warn("forced status change of a moderated business")
	}
	next := cur.Item.Business
	next.Status = status
	return bs.write(ctx, id, next, cur.RemoteErr, events.BusinessStatus)
}

func (bs *BusinessService) write(ctx context.Context, id record.ID, next record.Business, readErr error, event string) (Result[BusinessView], error) {
	s := bs.s
	res := Result[BusinessView]{RemoteErr: readErr}
	source := SourceLocal
	if key, ok := id.RemoteKey(); ok && s.remote != nil {
		source = SourceRemote
		if readErr == nil {
			if err := s.remote.Update(ctx, recordstore.Businesses, key, normalize.BusinessRow(next)); err != nil {
				res.RemoteErr = remoteFailed("update umkm", id, err)
			}
		}
		if res.RemoteErr != nil {
			source = SourceCache
		}
	}
	if err := s.mirror.Businesses().Put(ctx, next); err != nil {
		return res, err
	}
	res.Item = bs.view(next, source)
	s.publish(ctx, event, id, map[string]any{"status": next.Status})
	return res, nil
}

// Delete removes the business from every store holding it. Its reviews stay
// in the mirror so a re-registration under the same id keeps them.
func (bs *BusinessService) Delete(ctx context.Context, id record.ID) (Result[record.ID], error) {
	s := bs.s
	res := Result[record.ID]{Item: id}
	remoteDeleted := false
	if key, ok := id.RemoteKey(); ok && s.remote != nil {
		err := s.remote.Delete(ctx, recordstore.Businesses, key)
		switch {
		case err == nil:
			remoteDeleted = true
		case !errors.Is(err, recordstore.ErrNotFound):
			res.RemoteErr = remoteFailed("delete umkm", id, err)
		}
	}
	localDeleted, err := s.mirror.Businesses().Delete(ctx, id)
	if err != nil {
		return res, err
	}
	if !remoteDeleted && !localDeleted {
		if res.RemoteErr != nil {
			return res, res.RemoteErr
		}
		return res, ErrNotFound
	}
	s.publish(ctx, events.BusinessDeleted, id, nil)
	return res, nil
}

func businessID(b record.Business) record.ID { return b.ID }

func diffBusiness(a, b record.Business) []string {
	var out []string
	add := func(name string, differ bool) {
		if differ {
			out = append(out, name)
		}
	}
	add("namaUsaha", a.NamaUsaha != b.NamaUsaha)
	add("kategori", a.Kategori != b.Kategori)
	add("deskripsi", a.Deskripsi != b.Deskripsi)
	add("alamat", a.Alamat != b.Alamat)
	add("telepon", a.Telepon != b.Telepon)
	add("email", a.Email != b.Email)
	add("website", a.Website != b.Website)
	add("jamOperasional", a.JamOperasional != b.JamOperasional)
	add("hargaMin", !sameInt(a.HargaMin, b.HargaMin))
	add("hargaMax", !sameInt(a.HargaMax, b.HargaMax))
	add("produkUtama", a.ProdukUtama != b.ProdukUtama)
	add("namaOwner", a.NamaOwner != b.NamaOwner)
	add("nikOwner", a.NikOwner != b.NikOwner)
	add("status", a.Status != b.Status)
	add("fotoUrl", a.FotoURL != b.FotoURL)
	add("fotoTempatUrl", a.FotoTempatURL != b.FotoTempatURL)
	return out
}

func sameInt(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
