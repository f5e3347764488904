// Package maintenance lists and wipes everything an owner has stored.
package maintenance

import (
	"context"
	"errors"
	"fmt"

	"resumaid/internal/resumes"
	"resumaid/internal/shared/metrics"
	"resumaid/internal/shared/storage/kv"
	"resumaid/internal/shared/storage/object"
	"resumaid/internal/shared/telemetry"
)

// File is a stored blob with a display size.
type File struct {
	object.Object
	Size string `json:"size"`
}

// WipeResult summarizes a bulk wipe.
type WipeResult struct {
	DeletedFiles int      `json:"deletedFiles"`
	FailedFiles  []string `json:"failedFiles,omitempty"`
	FlushedKV    bool     `json:"flushedKv"`
}

// Service performs bulk maintenance over one owner's storage.
type Service struct {
	Store object.ObjectStore
	KV    kv.Gateway
}

// ListFiles returns every blob in the owner's namespace.
func (s *Service) ListFiles(ctx context.Context, owner string) ([]File, error) {
	objs, err := s.Store.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	files := make([]File, 0, len(objs))
	for _, o := range objs {
		files = append(files, File{Object: o, Size: resumes.FormatSize(o.SizeBytes)})
	}
	return files, nil
}

// Wipe deletes each listed blob in turn, then flushes the owner's key-value
// namespace. A blob that is already gone counts as deleted; other delete
// failures are reported but do not stop the wipe.
func (s *Service) Wipe(ctx context.Context, owner string) (WipeResult, error) {
	var res WipeResult
	objs, err := s.Store.List(ctx, owner)
	if err != nil {
		return res, fmt.Errorf("list files: %w", err)
	}

	for _, o := range objs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := s.Store.Delete(ctx, o.Key); err != nil && !errors.Is(err, object.ErrNotFound) {
			telemetry.Warn("maintenance.delete_failed", map[string]any{"user_id": owner, "key": o.Key, "error": err})
			res.FailedFiles = append(res.FailedFiles, o.Key)
			continue
		}
		res.DeletedFiles++
	}

	if err := s.KV.Namespace(owner).Flush(ctx); err != nil {
		return res, fmt.Errorf("flush kv: %w", err)
	}
	res.FlushedKV = true
	metrics.IncWipe()
	telemetry.Info("maintenance.wiped", map[string]any{"user_id": owner, "deleted": res.DeletedFiles, "failed": len(res.FailedFiles)})
	return res, nil
}
