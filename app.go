package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"desaweb/pkg/config"
	"desaweb/pkg/events"
	"desaweb/pkg/kv"
	"desaweb/pkg/logger"
	"desaweb/pkg/mirror"
	"desaweb/pkg/objectstore"
	"desaweb/pkg/reconcile"
	"desaweb/pkg/recordstore"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// app holds everything the commands and handlers share.
type app struct {
	cfg      *config.Config
	db       *gorm.DB // nil for mirror-only deployments
	mirror   *mirror.Mirror
	svc      *reconcile.Service
	deleter  recordstore.Client
	bus      events.Bus
	uploader *objectstore.Uploader
	auth     *accounts
	visits   *cache.Cache
	limits   *cache.Cache
	rdb      *redis.Client
	closers  []func() error
}

// deps are the pieces newApp builds from configuration; tests pass their own.
type deps struct {
	db      *gorm.DB
	remote  recordstore.Client
	deleter recordstore.Client
	store   kv.Store
	bus     events.Bus
	objects objectstore.Store
}

func assemble(cfg *config.Config, d deps) *app {
	m := mirror.New(d.store)
	a := &app{
		cfg:     cfg,
		db:      d.db,
		mirror:  m,
		deleter: d.deleter,
		bus:     d.bus,
		svc: reconcile.New(reconcile.Options{
			Remote: d.remote,
			Mirror: m,
			Bus:    d.bus,
		}),
		uploader: objectstore.NewUploader(d.objects, m.Images()),
		auth:     newAccounts(d.db, cfg.JWTSecret, cfg.AdminUsername, cfg.AdminPasswordHash),
		visits:   cache.New(cfg.VisitWindow, 10*time.Minute),
		limits:   cache.New(10*time.Minute, 10*time.Minute),
	}
	if a.deleter == nil {
		a.deleter = d.remote
	}
	return a
}

// newApp connects every backend the configuration names.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	var d deps
	var closers []func() error
	fail := func(err error) (*app, error) {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	var rdb *redis.Client
	if cfg.MirrorDriver == "redis" || cfg.EventsDriver == "redis" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect redis at %s: %w", cfg.RedisAddr, err)
		}
		closers = append(closers, rdb.Close)
	}

	switch cfg.MirrorDriver {
	case "memory":
		d.store = kv.NewMemory()
	case "sqlite":
		if dir := filepath.Dir(cfg.MirrorPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fail(fmt.Errorf("failed to create mirror dir %s: %w", dir, err))
			}
		}
		store, err := kv.OpenSQLite(cfg.MirrorPath)
		if err != nil {
			return fail(err)
		}
		d.store = store
		closers = append(closers, store.Close)
	case "redis":
		// the client is closed through closers, not through the store
		d.store = kv.NewRedis(rdb, "desaweb:")
	}

	switch cfg.EventsDriver {
	case "redis":
		d.bus = events.NewRedis(rdb, cfg.EventsChannel)
	default:
		d.bus = events.NewMemory(events.DefaultRetain)
	}

	if cfg.HasRecordStore() {
		store, err := openRecordStore(cfg.DBDSN, cfg.DBAutoMigrate)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, store.Close)
		d.db = store.DB()
		d.remote = store
		d.deleter = store
		if dsn := cfg.DeletionDSN(); dsn != cfg.DBDSN {
			privileged, err := recordstore.OpenPostgres(dsn)
			if err != nil {
				return fail(fmt.Errorf("deletion client: %w", err))
			}
			closers = append(closers, privileged.Close)
			d.deleter = privileged
		}
	} else {
		logger.Log.Warn("DB_DSN is not set; serving from the local mirror only")
	}

	switch cfg.ObjectStore {
	case "local":
		d.objects = objectstore.NewLocal(cfg.UploadBase, "/uploads")
	case "minio":
		store, err := objectstore.NewMinio(objectstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return fail(err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			logger.WithField("bucket", cfg.MinioBucket).Warnf("object store unavailable, images fall back to the mirror: %v", err)
		}
		d.objects = store
	}

	a := assemble(cfg, d)
	a.rdb = rdb
	a.closers = closers
	return a, nil
}

// run starts the background relays: the Redis event subscription and the
// mirror file watcher. They stop with ctx.
func (a *app) run(ctx context.Context) {
	if r, ok := a.bus.(*events.Redis); ok {
		go func() {
			if err := r.Run(ctx); err != nil {
				logger.Log.Errorf("event relay stopped: %v", err)
			}
		}()
	}
	if a.cfg.MirrorDriver == "sqlite" {
		go func() {
			if err := events.WatchFile(ctx, a.cfg.MirrorPath, a.bus); err != nil {
				logger.WithField("path", a.cfg.MirrorPath).Warnf("mirror watcher stopped: %v", err)
			}
		}()
	}
}

func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
