package disease

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shandysiswandi/epimap/internal/disease/geometry"
	"github.com/shandysiswandi/epimap/internal/disease/inbound"
	"github.com/shandysiswandi/epimap/internal/disease/store"
	"github.com/shandysiswandi/epimap/internal/disease/usecase"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgdb"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/epimap/internal/pkg/pkguid"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
}

// New wires the module and registers its HTTP endpoints.
func New(dep Dependency) (func(context.Context) error, error) {
	if dep.Router == nil {
		return nil, errors.New("disease module: router is required")
	}

	uc, closer, err := Build(dep)
	if err != nil {
		return nil, err
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Config.GetInt("server.max_upload_bytes"))

	return closer, nil
}

// Build creates the usecase with the storage backend and geometry source
// selected by configuration. The returned closer releases database handles.
func Build(dep Dependency) (*usecase.Usecase, func(context.Context) error, error) {
	if dep.Config == nil {
		return nil, nil, errors.New("disease module: config is required")
	}
	if dep.Context == nil {
		dep.Context = context.Background()
	}
	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}

	r := &resources{}

	recordStore, err := r.recordStore(dep.Context, dep.Config)
	if err != nil {
		return nil, nil, errors.Join(err, r.close(dep.Context))
	}

	reference, err := r.referenceStore(dep.Context, dep.Config)
	if err != nil {
		return nil, nil, errors.Join(err, r.close(dep.Context))
	}

	defaultDate := usecase.DefaultDate
	if raw := dep.Config.GetString("ingest.default_date"); raw != "" {
		defaultDate, err = time.Parse(time.DateOnly, raw)
		if err != nil {
			return nil, nil, errors.Join(fmt.Errorf("invalid ingest.default_date: %w", err), r.close(dep.Context))
		}
	}

	dependency := usecase.Dependency{
		Store:        recordStore,
		Records:      recordStore,
		Reference:    reference,
		ID:           dep.ID,
		BatchSize:    int(dep.Config.GetInt("ingest.batch_size")),
		DefaultDate:  defaultDate,
		StreamBuffer: int(dep.Config.GetInt("ingest.stream_buffer")),
	}
	if dep.Goroutine != nil {
		dependency.Runner = dep.Goroutine
	}

	return usecase.New(dependency), r.close, nil
}

type resources struct {
	postgres    *sql.DB
	postgresDSN string
	closers     []func() error
}

type recordBackend interface {
	usecase.RecordStore
	usecase.RecordReader
}

func (r *resources) recordStore(ctx context.Context, cfg pkgconfig.Config) (recordBackend, error) {
	driver := cfg.GetString("storage.driver")
	slog.InfoContext(ctx, "disease storage", "driver", driver)

	switch driver {
	case "", "memory":
		ids, err := pkguid.NewSnowflake()
		if err != nil {
			return nil, fmt.Errorf("snowflake: %w", err)
		}
		return store.NewInMemoryStore(ids), nil

	case "postgres":
		db, err := r.openPostgres(ctx, cfg.GetString("storage.postgres.dsn"))
		if err != nil {
			return nil, err
		}
		s := store.NewPostgresStore(db)
		if cfg.GetBool("storage.postgres.migrate") {
			if err := s.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		return s, nil

	case "sqlite":
		db, err := pkgdb.OpenSQLite(cfg.GetString("storage.sqlite.path"))
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, sqlDB.Close)
		return store.NewSQLiteStore(db)

	default:
		return nil, fmt.Errorf("unknown storage.driver %q", driver)
	}
}

// referenceStore returns nil when geometry lookups are disabled.
func (r *resources) referenceStore(ctx context.Context, cfg pkgconfig.Config) (geometry.ReferenceStore, error) {
	source := cfg.GetString("geometry.source")
	tolerance := cfg.GetFloat("geometry.tolerance")
	slog.InfoContext(ctx, "disease geometry source", "source", source, "tolerance", tolerance)

	switch source {
	case "", "none":
		return nil, nil

	case "postgis":
		dsn := cfg.GetString("geometry.postgis.dsn")
		if dsn == "" {
			dsn = cfg.GetString("storage.postgres.dsn")
		}
		db, err := r.openPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		ref, err := geometry.NewPostGIS(db,
			geometry.WithTable(cfg.GetString("geometry.postgis.table")),
			geometry.WithTolerance(tolerance),
		)
		if err != nil {
			return nil, err
		}
		return ref, nil

	case "geojson":
		ref, err := geometry.LoadGeoJSON(cfg.GetString("geometry.geojson.path"),
			geometry.WithGeoJSONTolerance(tolerance),
			geometry.WithProperties(
				cfg.GetString("geometry.geojson.properties.admin"),
				cfg.GetString("geometry.geojson.properties.name_en"),
				cfg.GetString("geometry.geojson.properties.iso"),
			),
		)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "geojson boundaries loaded", "countries", ref.Len())
		return ref, nil

	default:
		return nil, fmt.Errorf("unknown geometry.source %q", source)
	}
}

// openPostgres shares one pool between the record store and the reference
// store when both point at the same database.
func (r *resources) openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if r.postgres != nil && r.postgresDSN == dsn {
		return r.postgres, nil
	}

	db, err := pkgdb.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, db.Close)
	if r.postgres == nil {
		r.postgres, r.postgresDSN = db, dsn
	}
	return db, nil
}

func (r *resources) close(context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	return errors.Join(errs...)
}
