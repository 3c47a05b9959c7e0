// Package service sequences the reconciliation of the three partitions.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/Ning0612/prscatalog/internal/adapter/local"
	"github.com/Ning0612/prscatalog/internal/catalog"
	"github.com/Ning0612/prscatalog/internal/core/diff"
	"github.com/Ning0612/prscatalog/internal/core/ids"
	"github.com/Ning0612/prscatalog/internal/core/order"
	"github.com/Ning0612/prscatalog/internal/core/playlist"
	"github.com/Ning0612/prscatalog/internal/core/scan"
	"github.com/Ning0612/prscatalog/internal/core/transfer"
	"github.com/Ning0612/prscatalog/internal/domain"
	"github.com/Ning0612/prscatalog/internal/logger"
	"github.com/Ning0612/prscatalog/internal/progress"
	"github.com/Ning0612/prscatalog/internal/state"
)

// Options describes one run over all partitions
type Options struct {
	// Partitions maps each role to its mount point. All three are required.
	Partitions map[domain.Role]string

	// Root is the media subpath shared by all partitions
	Root string

	// SyncFrom optionally holds body, ms and sd directories mirrored
	// onto the partitions before reconciling
	SyncFrom string

	Ops domain.OpSet
}

// PartitionResult summarizes the work done on one partition
type PartitionResult struct {
	Role domain.Role

	Copied       int
	Added        int
	Removed      int
	TitlesFixed  int
	StaleRemoved int

	// Items is the final item count
	Items int

	SourceID int
	LastID   int

	// Renumbered is false when lastId came from the catalog file
	Renumbered bool

	// Playlists are the auto playlists synthesized this run
	Playlists []domain.Playlist

	Saved bool

	// PreviousRun is the id of the partition's last successful run, if the
	// history knows one
	PreviousRun string
}

// RunResult is the outcome of a full run
type RunResult struct {
	RunID      string
	Partitions []*PartitionResult
}

// LastID returns the highest identifier used by the final partition
func (r *RunResult) LastID() int {
	if len(r.Partitions) == 0 {
		return 0
	}
	return r.Partitions[len(r.Partitions)-1].LastID
}

// Service reconciles partition catalogs on a filesystem
type Service struct {
	fs       afero.Fs
	reporter progress.Reporter
	history  *state.Manager
}

// New creates a service working on fs
func New(fs afero.Fs) *Service {
	return &Service{fs: fs}
}

// SetProgressReporter sets the reporter for file copies
func (s *Service) SetProgressReporter(reporter progress.Reporter) {
	s.reporter = reporter
}

// SetHistory enables recording each partition's outcome
func (s *Service) SetHistory(history *state.Manager) {
	s.history = history
}

func (s *Service) getReporter() progress.Reporter {
	if s.reporter != nil {
		return s.reporter
	}
	return progress.NullReporter{}
}

// Run processes body, memory stick and SD in that order, threading the
// last identifier of each partition into the next. The first failure
// aborts the run; partitions already saved stay saved.
func (s *Service) Run(ctx context.Context, opts Options) (*RunResult, error) {
	for _, role := range domain.Roles {
		if opts.Partitions[role] == "" {
			return nil, fmt.Errorf("%w: %s path is required", domain.ErrConfigInvalid, role)
		}
	}

	result := &RunResult{RunID: uuid.NewString()}
	log := logger.With("run", result.RunID)
	log.Info("run started", "operations", opts.Ops.String(), "root", opts.Root)

	var prev *int
	for _, role := range domain.Roles {
		p := domain.NewPartition(role, opts.Partitions[role], opts.Root)
		if opts.SyncFrom != "" {
			p.Source = filepath.Join(opts.SyncFrom, string(role))
		}

		last := s.lastSuccess(role)
		if last != nil {
			log.Info("previous successful run", "partition", role, "previous_run", last.RunID,
				"finished", last.EndTime, "last_id", last.LastID)
		}

		start := time.Now()
		res, err := s.ProcessPartition(ctx, p, prev, opts.Ops.For(role))
		if last != nil {
			res.PreviousRun = last.RunID
		}
		s.record(result.RunID, role, !opts.Ops.Has(domain.Operation(role)), res, err, start)
		if err != nil {
			log.Error("run aborted", "partition", role, "error", err)
			return result, fmt.Errorf("partition %s: %w", role, err)
		}

		result.Partitions = append(result.Partitions, res)
		lastID := res.LastID
		prev = &lastID
	}

	log.Info("run completed", "last_id", result.LastID())
	return result, nil
}

// ProcessPartition runs the enabled phases on one partition. prev is the
// last identifier of the previous partition, nil for the first one.
func (s *Service) ProcessPartition(ctx context.Context, p domain.Partition, prev *int, ops domain.OpSet) (*PartitionResult, error) {
	log := logger.With("partition", p.Role)
	res := &PartitionResult{Role: p.Role}
	catalogFile := p.CatalogFile()

	log.Info("processing partition", "root", p.Root, "catalog", catalogFile)

	cat, err := catalog.Load(s.fs, catalogFile, p.Vocab)
	if err != nil {
		return res, err
	}

	if ops.Has(domain.OpCopy) && p.Source != "" {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if res.Copied, err = s.copyFiles(ctx, p); err != nil {
			return res, fmt.Errorf("copying files: %w", err)
		}
	}

	if ops.Has(domain.OpSync) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.synchronize(ctx, p, cat, res); err != nil {
			return res, fmt.Errorf("synchronizing items: %w", err)
		}
		log.Info("items synchronized", "added", res.Added, "removed", res.Removed)
	}

	if ops.Has(domain.OpTitle) {
		res.TitlesFixed = order.FixTitles(cat)
		log.Debug("titles fixed", "count", res.TitlesFixed)
	}

	if ops.Has(domain.OpSort) {
		order.ByAuthorTitle(cat)
	}

	res.StaleRemoved = playlist.RemoveAuto(cat)
	log.Debug("stale playlists removed", "count", res.StaleRemoved)

	var alloc *ids.Allocation
	if ops.Has(domain.OpRenumber) {
		if alloc, err = ids.Allocate(cat, prev); err != nil {
			return res, err
		}
		res.Renumbered = true
		res.SourceID = alloc.SourceID
		res.LastID = alloc.LastID
		log.Info("identifiers reassigned",
			"base", alloc.Base,
			"source_id", alloc.SourceID,
			"last_id", alloc.LastID,
		)
	}

	if ops.Has(domain.OpPlaylist) {
		if alloc == nil {
			log.Warn("playlist synthesis needs identifier reassignment, skipped")
		} else {
			res.LastID, res.Playlists = playlist.Synthesize(cat, p.Dest, alloc.SourceID, alloc.LastID)
			log.Info("playlists synthesized", "playlists", len(res.Playlists), "last_id", res.LastID)
		}
	}

	if ops.Has(domain.OpSave) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := catalog.Save(s.fs, cat, catalogFile); err != nil {
			return res, err
		}
		res.Saved = true
		log.Info("catalog saved", "path", catalogFile, "backup", catalog.BackupPath(catalogFile))
	}

	if !res.Renumbered {
		if err := s.lastIDFromFile(prev, catalogFile, res); err != nil {
			return res, err
		}
		log.Info("last identifier read from catalog", "last_id", res.LastID)
	}

	res.Items = len(cat.Items)
	return res, nil
}

// synchronize adds items for new files under the destination and drops
// items whose file is gone
func (s *Service) synchronize(ctx context.Context, p domain.Partition, cat *domain.Catalog, res *PartitionResult) error {
	adp, err := local.New(s.fs, p.Root)
	if err != nil {
		return err
	}

	files, err := scan.Files(ctx, adp, p.Dest)
	if err != nil {
		return err
	}

	result := diff.Compute(diff.CataloguedPaths(cat, p.Dest), files)
	for _, f := range result.Added {
		logger.Get().Debug("item added", "partition", p.Role, "path", f.Path)
	}
	for _, r := range result.Removed {
		logger.Get().Debug("item removed", "partition", p.Role, "path", r)
	}

	removed, err := diff.Apply(cat, result)
	if err != nil {
		return err
	}
	res.Added = len(result.Added)
	res.Removed = removed
	return nil
}

// copyFiles mirrors the partition's source directory into its destination
func (s *Service) copyFiles(ctx context.Context, p domain.Partition) (int, error) {
	log := logger.With("partition", p.Role)

	info, err := s.fs.Stat(p.Source)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("sync source missing, copy skipped", "source", p.Source)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%s: %w", p.Source, domain.ErrNotDirectory)
	}

	src, err := local.New(s.fs, p.Source)
	if err != nil {
		return 0, err
	}
	dst, err := local.New(s.fs, p.Root)
	if err != nil {
		return 0, err
	}

	plan, err := transfer.PlanCopy(ctx, src, dst, p.Dest)
	if err != nil {
		return 0, err
	}
	log.Info("copy planned",
		"scanned", plan.Scanned,
		"to_copy", len(plan.Actions),
		"bytes", progress.FormatBytes(plan.Bytes),
	)

	copied, err := transfer.Execute(ctx, plan, src, dst, s.getReporter())
	if err != nil {
		return copied, err
	}
	log.Info("files copied", "synced", copied)
	return copied, nil
}

// lastIDFromFile derives lastId from the catalog on disk when the
// partition was not renumbered
func (s *Service) lastIDFromFile(prev *int, catalogFile string, res *PartitionResult) error {
	_, sourceID := ids.Range(prev)
	res.SourceID = sourceID

	maxID, ok, err := catalog.MaxID(s.fs, catalogFile)
	if err != nil {
		return err
	}
	if !ok {
		res.LastID = sourceID
		return nil
	}
	res.LastID = maxID
	return nil
}

// lastSuccess returns the partition's last successful run, or nil when there
// is none or no history is attached
func (s *Service) lastSuccess(role domain.Role) *state.PartitionRecord {
	if s.history == nil {
		return nil
	}
	rec, err := s.history.GetLastSuccess(string(role))
	if err != nil {
		logger.Get().Warn("failed to read run history", "partition", role, "error", err)
		return nil
	}
	return rec
}

// record stores a partition outcome in the history, if enabled
func (s *Service) record(runID string, role domain.Role, skipped bool, res *PartitionResult, runErr error, start time.Time) {
	if s.history == nil {
		return
	}

	rec := state.PartitionRecord{
		RunID:     runID,
		Partition: string(role),
		Status:    state.StatusSuccess,
		StartTime: start,
		EndTime:   time.Now(),
	}
	if res != nil {
		rec.Copied = res.Copied
		rec.Added = res.Added
		rec.Removed = res.Removed
		rec.Items = res.Items
		rec.Playlists = len(res.Playlists)
		rec.SourceID = res.SourceID
		rec.LastID = res.LastID
	}
	if skipped {
		rec.Status = state.StatusSkipped
	}
	if runErr != nil {
		rec.Status = state.StatusFailed
		rec.Error = runErr.Error()
	}

	if err := s.history.SaveRun(rec); err != nil {
		logger.Get().Warn("failed to record run history", "partition", role, "error", err)
	}
}
