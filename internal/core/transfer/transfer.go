// Package transfer copies media from an external source tree onto a
// partition before the catalog is reconciled.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/Ning0612/prscatalog/internal/adapter"
	"github.com/Ning0612/prscatalog/internal/core/scan"
	"github.com/Ning0612/prscatalog/internal/domain"
	"github.com/Ning0612/prscatalog/internal/progress"
)

// Action is one file to copy
type Action struct {
	// Source is the file in the source tree, relative to its root
	Source domain.FileInfo

	// Target is the partition-relative destination path
	Target string

	// Reason explains why the file is copied
	Reason string
}

// Plan lists the copies needed to bring a partition up to date
type Plan struct {
	Actions []Action

	// Scanned counts files seen in the source tree
	Scanned int

	// Bytes is the total size of all planned copies
	Bytes int64
}

// PlanCopy compares every file under the source root with the partition
// at dest. A file is copied when it is missing on the partition or its
// size differs; modification times are ignored.
func PlanCopy(ctx context.Context, src, dst adapter.Adapter, dest string) (*Plan, error) {
	files, err := scan.Files(ctx, src, "")
	if err != nil {
		return nil, fmt.Errorf("listing source files: %w", err)
	}

	// A fresh partition has no media root yet; everything is missing
	destExists, err := dst.Exists(ctx, dest)
	if err != nil {
		return nil, fmt.Errorf("checking %s: %w", dest, err)
	}

	plan := &Plan{Scanned: len(files)}
	for _, f := range files {
		target := path.Join(dest, f.Path)
		if !destExists {
			plan.add(Action{Source: f, Target: target, Reason: "file does not exist"})
			continue
		}

		info, err := dst.Stat(ctx, target)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			plan.add(Action{Source: f, Target: target, Reason: "file does not exist"})
		case err != nil:
			return nil, fmt.Errorf("stat %s: %w", target, err)
		case !info.IsFile():
			return nil, fmt.Errorf("%s: %w", target, domain.ErrNotFile)
		case info.Size != f.Size:
			plan.add(Action{Source: f, Target: target, Reason: "size differs"})
		}
	}

	return plan, nil
}

func (p *Plan) add(a Action) {
	p.Actions = append(p.Actions, a)
	p.Bytes += a.Source.Size
}

// Execute performs every copy in the plan and returns how many files were
// copied. It stops at the first failure.
func Execute(ctx context.Context, plan *Plan, src, dst adapter.Adapter, reporter progress.Reporter) (int, error) {
	if reporter == nil {
		reporter = progress.NullReporter{}
	}
	reporter.SetTotal(len(plan.Actions), plan.Bytes)

	copied := 0
	for _, action := range plan.Actions {
		select {
		case <-ctx.Done():
			return copied, ctx.Err()
		default:
		}

		if err := copyFile(ctx, action, src, dst, reporter); err != nil {
			reporter.Error(err)
			return copied, fmt.Errorf("copy %s: %w", action.Target, err)
		}
		copied++
	}
	return copied, nil
}

func copyFile(ctx context.Context, action Action, src, dst adapter.Adapter, reporter progress.Reporter) error {
	reporter.Start(action.Target, action.Source.Size)

	reader, err := src.Read(ctx, action.Source.Path)
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := dst.Write(ctx, action.Target, progress.NewProgressReader(reader, reporter)); err != nil {
		return err
	}

	reporter.Complete()
	return nil
}
