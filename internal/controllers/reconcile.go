package controllers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/seriarr/seriarr/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrStorageNotFound reports a series whose local storage directory is
// missing. A series without a real storage location is a configuration
// problem, not an empty collection.
var ErrStorageNotFound = errors.New("storage directory not found")

// StorageLister lists local files matching a glob pattern.
type StorageLister interface {
	List(pattern string) ([]string, error)
}

// Resolver turns a rendered search name into a torrent ID, and a torrent ID
// into a fetch URL. An empty ID means the name is unknown upstream.
type Resolver interface {
	GetIDFromName(ctx context.Context, name string) (string, error)
	GetURLFromID(id string) string
}

// QueueServer is the download queue resolved entries are sent to.
type QueueServer interface {
	AddTorrent(ctx context.Context, directory, torrentURL string) (bool, error)
	GetAllTorrents(ctx context.Context) ([]string, error)
}

// SeriesSummary is a point-in-time snapshot of one series' timeline,
// published after each pass for reporting.
type SeriesSummary struct {
	Name      string `json:"name"`
	Owned     int    `json:"owned"`
	Queued    int    `json:"queued"`
	Pending   int    `json:"pending"`
	MaxNumber int    `json:"max_number"`
}

// ReconcileController rebuilds each series' timeline from local storage, the
// download queue and the remote index, then requests what is missing.
type ReconcileController struct {
	storage  StorageLister
	resolver Resolver
	queue    QueueServer
	db       *models.Database
	skipScan bool
	logger   *logrus.Logger

	mu      sync.RWMutex
	summary []SeriesSummary
}

// NewReconcileController creates a new reconcile controller.
func NewReconcileController(storage StorageLister, resolver Resolver, queue QueueServer, db *models.Database, skipScan bool, logger *logrus.Logger) *ReconcileController {
	return &ReconcileController{
		storage:  storage,
		resolver: resolver,
		queue:    queue,
		db:       db,
		skipScan: skipScan,
		logger:   logger,
	}
}

// Reconcile runs a full pass for one series: the entry collection is
// rebuilt from local storage, then the queue listing, then remote probing.
// The order is an invariant; each stage only adds filenames the previous
// stages have not claimed.
func (c *ReconcileController) Reconcile(ctx context.Context, series *models.Series) error {
	torrents, err := c.queue.GetAllTorrents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queue downloads: %w", err)
	}
	return c.reconcile(ctx, series, torrents)
}

// ReconcileAll reconciles every series, fetching the queue listing once. A
// failing series is logged and does not stop its siblings.
func (c *ReconcileController) ReconcileAll(ctx context.Context, series []*models.Series) {
	torrents, err := c.queue.GetAllTorrents(ctx)
	if err != nil {
		c.logger.WithError(err).Error("Failed to list queue downloads, skipping pass")
		return
	}

	for _, s := range series {
		if err := c.reconcile(ctx, s, torrents); err != nil {
			c.logger.WithError(err).WithField("series", s.Name).Error("Reconcile failed")
		}
	}
}

func (c *ReconcileController) reconcile(ctx context.Context, series *models.Series, torrents []string) error {
	series.ClearEntries()

	if !c.skipScan {
		if err := c.populateFromStorage(series); err != nil {
			return err
		}
	}
	c.populateFromQueue(series, torrents)
	return c.probeRemote(ctx, series)
}

// populateFromStorage records every file in the series directory matching
// the pattern as owned. Files that share the directory but not the naming
// convention are skipped.
func (c *ReconcileController) populateFromStorage(series *models.Series) error {
	info, err := os.Stat(series.Directory)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrStorageNotFound, series.Directory)
	}

	files, err := c.storage.List(filepath.Join(series.Directory, series.Pattern.Glob()))
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", series.Directory, err)
	}

	for _, file := range files {
		name := filepath.Base(file)
		number, ok := series.Pattern.Extract(name)
		if !ok {
			c.logger.WithFields(logrus.Fields{
				"series": series.Name,
				"file":   name,
			}).Debug("File does not match series pattern, skipping")
			continue
		}

		series.AddEntry(&models.Entry{
			Number:   number,
			FileName: name,
			Status:   models.StatusOwned,
		})
	}

	return nil
}

// populateFromQueue records queue items matching the pattern as queued. The
// queue is shared infrastructure; most of its items belong to other things
// and fail extraction, which is not an error.
func (c *ReconcileController) populateFromQueue(series *models.Series, torrents []string) {
	for _, name := range torrents {
		number, ok := series.Pattern.Extract(name)
		if !ok {
			continue
		}

		series.AddEntry(&models.Entry{
			Number:   number,
			FileName: name,
			Status:   models.StatusQueued,
		})
	}
}

// probeRemote asks the resolver for episode numbers above the current
// maximum, up to the series lookahead. If number n is unknown upstream,
// n+1 cannot exist either, so the first miss stops the probe.
func (c *ReconcileController) probeRemote(ctx context.Context, series *models.Series) error {
	start := series.MaxNumber() + 1

	for i := 0; series.MaxAhead == models.LookaheadUnbounded || i < series.MaxAhead; i++ {
		number := start + i
		name := series.Pattern.Query(number)

		id, err := c.resolver.GetIDFromName(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to resolve %q: %w", name, err)
		}
		if id == "" {
			return nil
		}

		c.logger.WithFields(logrus.Fields{
			"series": series.Name,
			"number": number,
		}).Debug("New entry found upstream")

		series.AddEntry(&models.Entry{
			Number:    number,
			FileName:  name,
			Status:    models.StatusPending,
			TorrentID: id,
		})
	}

	return nil
}

// ResolvePending asks the queue server to download every pending entry,
// targeted at the series' remote directory, and returns how many requests
// were accepted. A rejected or failed request leaves the entry pending for
// the next pass. In simulate mode every pending entry is marked queued
// without contacting the server.
func (c *ReconcileController) ResolvePending(ctx context.Context, series *models.Series, simulate bool) (int, error) {
	count := 0

	for _, entry := range series.PendingEntries() {
		if simulate {
			entry.Status = models.StatusQueued
			count++
			continue
		}

		torrentURL := c.resolver.GetURLFromID(entry.TorrentID)
		accepted, err := c.queue.AddTorrent(ctx, series.RemoteDirectory, torrentURL)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"series": series.Name,
				"number": entry.Number,
			}).Warn("Download request failed, entry stays pending")
			continue
		}
		if !accepted {
			c.logger.WithFields(logrus.Fields{
				"series": series.Name,
				"number": entry.Number,
			}).Warn("Download request not accepted")
			continue
		}

		entry.Status = models.StatusQueued
		count++

		if c.db != nil {
			record := &models.GrabRecord{
				Series:    series.Name,
				Number:    entry.Number,
				FileName:  entry.FileName,
				TorrentID: entry.TorrentID,
			}
			if err := c.db.RecordGrab(record); err != nil {
				c.logger.WithError(err).Warn("Failed to record grab in history")
			}
		}
	}

	return count, nil
}

// RunPass reconciles every series and requests their missing entries,
// logging a per-series count of what was sent to the queue.
func (c *ReconcileController) RunPass(ctx context.Context, series []*models.Series, simulate bool) {
	c.ReconcileAll(ctx, series)

	for _, s := range series {
		count, err := c.ResolvePending(ctx, s, simulate)
		if err != nil {
			c.logger.WithError(err).WithField("series", s.Name).Error("Failed to resolve pending entries")
			continue
		}
		if count > 0 {
			c.logger.WithFields(logrus.Fields{
				"series": s.Name,
				"count":  count,
			}).Info("New entries requested")
		}
	}

	c.publishSummary(series)
}

// publishSummary snapshots the per-series counts so the status endpoint can
// read them without touching the series while a pass mutates them.
func (c *ReconcileController) publishSummary(series []*models.Series) {
	summary := make([]SeriesSummary, 0, len(series))
	for _, s := range series {
		counts := s.CountByStatus()
		summary = append(summary, SeriesSummary{
			Name:      s.Name,
			Owned:     counts[models.StatusOwned],
			Queued:    counts[models.StatusQueued],
			Pending:   counts[models.StatusPending],
			MaxNumber: s.MaxNumber(),
		})
	}

	c.mu.Lock()
	c.summary = summary
	c.mu.Unlock()
}

// Summary returns the snapshot published by the last completed pass.
func (c *ReconcileController) Summary() []SeriesSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]SeriesSummary, len(c.summary))
	copy(out, c.summary)
	return out
}
