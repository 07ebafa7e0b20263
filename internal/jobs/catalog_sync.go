// File: internal/jobs/catalog_sync.go
package jobs

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"jazz_picker_backend/internal/catalog"
	"jazz_picker_backend/internal/config"
	"jazz_picker_backend/internal/filestorage"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const reindexBatchSize = 100

// SyncReport describes one run of the catalog sync job.
type SyncReport struct {
	Imported      bool
	SongsImported int
	Version       string
	Index         catalog.IndexResult
}

// CatalogSyncJob keeps the served catalog current. Each run imports a new snapshot from
// object storage when its checksum changed, recomputes the catalog ETag and re-indexes the
// search index.
type CatalogSyncJob struct {
	catalogService catalog.Service
	store          filestorage.ObjectStore
	logger         *zap.Logger
	cfg            *config.Config
	cronScheduler  *cron.Cron

	mu       sync.Mutex
	lastETag string
}

// NewCatalogSyncJob creates a new CatalogSyncJob. store may be nil, in which case only the
// version and index are refreshed.
func NewCatalogSyncJob(
	catalogService catalog.Service,
	store filestorage.ObjectStore,
	logger *zap.Logger,
	cfg *config.Config,
) *CatalogSyncJob {
	cl := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	return &CatalogSyncJob{
		catalogService: catalogService,
		store:          store,
		logger:         logger.Named("CatalogSyncJob"),
		cfg:            cfg,
		cronScheduler:  scheduler,
	}
}

// MarkImported records the checksum of a snapshot that is already loaded, so the next run
// does not import it again.
func (j *CatalogSyncJob) MarkImported(etag string) {
	j.mu.Lock()
	j.lastETag = etag
	j.mu.Unlock()
}

// SetupAndStart schedules and starts the cron job.
func (j *CatalogSyncJob) SetupAndStart() error {
	jobSpec := j.cfg.CatalogSyncSchedule
	if jobSpec == "" {
		j.logger.Warn("Catalog sync job schedule not defined (CATALOG_SYNC_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule catalog sync job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Catalog sync job scheduled", zap.String("spec", jobSpec), zap.Any("jobID", jobID))
	j.cronScheduler.Start()
	return nil
}

func (j *CatalogSyncJob) runJob() {
	j.logger.Info("Starting catalog sync job run...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := j.RunOnce(ctx)
	if err != nil {
		j.logger.Error("Catalog sync job run failed", zap.Error(err))
		return
	}
	j.logger.Info("Catalog sync job run completed",
		zap.Bool("imported", report.Imported),
		zap.Int("songs_imported", report.SongsImported),
		zap.String("etag", report.Version),
		zap.Int("indexed", report.Index.Indexed),
		zap.Int("index_failed", report.Index.Failed),
	)
}

// RunOnce performs a single sync.
func (j *CatalogSyncJob) RunOnce(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	if j.store != nil {
		n, imported, err := j.importIfChanged(ctx)
		if err != nil {
			return report, err
		}
		report.Imported, report.SongsImported = imported, n
	}

	version, err := j.catalogService.RefreshVersion(ctx)
	if err != nil {
		return report, err
	}
	report.Version = version

	if j.catalogService.SearchConfigured() {
		res, err := j.catalogService.ReindexSearch(ctx, reindexBatchSize)
		report.Index = res
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

func (j *CatalogSyncJob) importIfChanged(ctx context.Context) (int, bool, error) {
	key := j.cfg.CatalogObjectKey
	attrs, err := j.store.Attrs(ctx, key)
	if errors.Is(err, filestorage.ErrObjectNotFound) {
		j.logger.Debug("No catalog snapshot in object storage", zap.String("key", key))
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	checksum := attrs.Checksum()
	j.mu.Lock()
	unchanged := checksum != "" && checksum == j.lastETag
	j.mu.Unlock()
	if unchanged {
		return 0, false, nil
	}

	tmp, err := os.CreateTemp("", "catalog-snapshot-*.db")
	if err != nil {
		return 0, false, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := filestorage.Download(ctx, j.store, key, tmpPath); err != nil {
		return 0, false, err
	}
	n, err := j.catalogService.ImportSnapshot(ctx, tmpPath)
	if err != nil {
		return 0, false, err
	}
	j.MarkImported(checksum)
	return n, true, nil
}

// Stop gracefully stops the cron scheduler.
func (j *CatalogSyncJob) Stop() {
	if j.cronScheduler != nil {
		j.logger.Info("Stopping catalog sync job scheduler...")
		stopCtx := j.cronScheduler.Stop()
		select {
		case <-stopCtx.Done():
			j.logger.Info("Catalog sync job scheduler stopped gracefully.")
		case <-time.After(10 * time.Second):
			j.logger.Warn("Catalog sync job scheduler stop timed out.")
		}
	}
}
