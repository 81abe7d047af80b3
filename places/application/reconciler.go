package application

import (
	"context"
	"fmt"

	"github.com/dfryer1193/goplaces/internal/metrics"
	"github.com/dfryer1193/goplaces/places/assets"
	"github.com/dfryer1193/goplaces/places/domain"
	"github.com/rs/zerolog/log"
)

// OrphanReconciler deletes remote assets that an edit removed from a place.
type OrphanReconciler struct {
	codec   *assets.Codec
	deleter domain.AssetDeleter
}

func NewOrphanReconciler(codec *assets.Codec, deleter domain.AssetDeleter) *OrphanReconciler {
	return &OrphanReconciler{codec: codec, deleter: deleter}
}

// Orphans returns the identifiers referenced by original but not by final, in original's
// order. Identity is by identifier, so a reference whose URL changed but whose identifier
// survives in final is kept. References outside the application folder are ignored.
func (r *OrphanReconciler) Orphans(original, final []domain.ImageReference) []string {
	keep := make(map[string]struct{}, len(final))
	for _, ref := range final {
		if id, ok := r.codec.ExtractIdentifier(ref); ok {
			keep[id] = struct{}{}
		}
	}

	seen := make(map[string]struct{}, len(original))
	orphans := make([]string, 0)
	for _, ref := range original {
		id, ok := r.codec.ExtractIdentifier(ref)
		if !ok {
			continue
		}
		if _, ok := keep[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		orphans = append(orphans, id)
	}
	return orphans
}

// Reconcile deletes the orphans between original and final. It must only be called after
// the record holding final has been committed. No delete call is made when nothing was removed.
func (r *OrphanReconciler) Reconcile(ctx context.Context, original, final []domain.ImageReference) (map[string]domain.DeleteOutcome, error) {
	orphans := r.Orphans(original, final)
	if len(orphans) == 0 {
		return map[string]domain.DeleteOutcome{}, nil
	}

	results, err := r.deleter.Delete(ctx, orphans)
	if err != nil {
		return nil, fmt.Errorf("failed to delete orphaned assets: %w", err)
	}
	metrics.RecordDeletes(results)

	for id, outcome := range results {
		if outcome == domain.OutcomeError {
			log.Warn().Str("publicID", id).Msg("Orphaned asset was not deleted")
		}
	}
	return results, nil
}
