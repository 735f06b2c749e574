package recon

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/internal/usecase/similarity"
)

// Engine turns a validated contract plus the project's current entities into
// an ordered operation plan. Planning never touches storage; the plan is
// committed atomically by the reconciliation repository.
type Engine struct {
	similarity *similarity.Service
	logger     *zap.Logger
}

func NewEngine(sim *similarity.Service, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		similarity: sim,
		logger:     logger,
	}
}

// Plan produces the operation set for one meeting's contract. The second
// return value counts close requests that resolved to nothing and were
// dropped as no-ops.
func (e *Engine) Plan(ctx context.Context, contract *entities.RecapContract, snap *Snapshot) ([]entities.ReconOp, int, error) {
	if snap == nil {
		snap = &Snapshot{}
	}

	var (
		ops     []entities.ReconOp
		skipped int
	)
	for _, adapter := range kindAdapters {
		items := contract.ByKind(adapter.Kind())
		if len(items) == 0 {
			continue
		}
		kindOps, kindSkipped, err := e.planKind(ctx, adapter, items, adapter.Candidates(snap))
		if err != nil {
			return nil, 0, err
		}
		ops = append(ops, kindOps...)
		skipped += kindSkipped
	}
	return ops, skipped, nil
}

func (e *Engine) planKind(ctx context.Context, adapter KindAdapter, items []entities.ExtractedItem, cands []Candidate) ([]entities.ReconOp, int, error) {
	merged := mergeRun(items)

	if adapter.Kind() == entities.KindDecision {
		if err := checkSupersedeRun(merged); err != nil {
			return nil, 0, err
		}
	}

	runRefs := runExternalIDs(merged)

	var (
		ops      = make([]entities.ReconOp, 0, len(merged))
		deferred []entities.ReconOp
		skipped  int
	)
	for _, item := range merged {
		op, ok, err := e.planItem(ctx, adapter, item, cands, runRefs)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			skipped++
			continue
		}
		if op.TargetExternalID != nil {
			// The predecessor is created by this same run; its create must
			// commit before the supersede resolves it.
			deferred = append(deferred, op)
			continue
		}
		ops = append(ops, op)
	}
	return append(ops, deferred...), skipped, nil
}

func (e *Engine) planItem(ctx context.Context, adapter KindAdapter, item entities.ExtractedItem, cands []Candidate, runRefs map[string]bool) (entities.ReconOp, bool, error) {
	kind := adapter.Kind()
	target := matchExternal(cands, item.ExternalID)

	switch item.Operation {
	case entities.OpCreate, entities.OpUpdate:
		vec := e.similarity.Vector(ctx, matchText(item))
		score := 0.0
		if target == nil {
			target, score = e.bestMatch(vec, cands)
		}
		if target == nil {
			if item.Operation == entities.OpUpdate {
				// The referenced entity is gone or was never persisted.
				// Treating the payload as new keeps the information instead
				// of dropping it.
				e.logger.Info("update target not found, creating instead",
					zap.String("kind", string(kind)),
					zap.String("title", item.Title))
			}
			return entities.ReconOp{Kind: kind, Type: entities.OpCreate, Item: item, Embedding: vec}, true, nil
		}
		if item.Operation == entities.OpCreate {
			e.logger.Info("duplicate detected, converting create to update",
				zap.String("kind", string(kind)),
				zap.String("target_id", target.ID.String()),
				zap.Float64("score", score))
		}
		id := target.ID
		return entities.ReconOp{Kind: kind, Type: entities.OpUpdate, TargetID: &id, Item: item, Embedding: vec, MatchScore: score}, true, nil

	case entities.OpClose:
		if target == nil {
			vec := e.similarity.Vector(ctx, matchText(item))
			target, _ = e.bestMatch(vec, cands)
		}
		if target == nil || target.Resolved {
			// Closing something absent or already resolved is a no-op, not
			// an error; re-runs of the same transcript stay idempotent.
			return entities.ReconOp{}, false, nil
		}
		id := target.ID
		return entities.ReconOp{Kind: kind, Type: entities.OpClose, TargetID: &id, Item: item}, true, nil

	case entities.OpSupersede:
		if item.Supersedes == nil {
			return entities.ReconOp{}, false, apperrors.ErrReconciliationConflict("supersede without a predecessor reference")
		}
		ref := strings.TrimSpace(*item.Supersedes)
		vec := e.similarity.Vector(ctx, matchText(item))
		if runRefs[ref] {
			// Same-run correlation: the predecessor is another item of this
			// run, so it resolves by external id once its create commits.
			return entities.ReconOp{Kind: kind, Type: entities.OpSupersede, TargetExternalID: &ref, Item: item, Embedding: vec}, true, nil
		}
		pred, err := resolvePredecessor(ref, cands)
		if err != nil {
			return entities.ReconOp{}, false, err
		}
		id := pred.ID
		return entities.ReconOp{Kind: kind, Type: entities.OpSupersede, TargetID: &id, Item: item, Embedding: vec}, true, nil
	}

	return entities.ReconOp{}, false, apperrors.ErrReconciliationConflict("unsupported operation " + string(item.Operation))
}

// bestMatch returns the open candidate with the highest cosine score at or
// above the duplicate threshold. Ties break on score, then on most recent
// update.
func (e *Engine) bestMatch(vec []float32, cands []Candidate) (*Candidate, float64) {
	if len(vec) == 0 {
		return nil, 0
	}
	var (
		best      *Candidate
		bestScore float64
	)
	for i := range cands {
		c := &cands[i]
		if c.Resolved {
			continue
		}
		score := similarity.Cosine(vec, c.Embedding)
		if !e.similarity.IsDuplicate(score) {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && c.UpdatedAt.After(best.UpdatedAt)) {
			best = c
			bestScore = score
		}
	}
	return best, bestScore
}

// mergeRun collapses items sharing an external id within one extraction run
// into a single logical entity. Evidence accumulates; a close or supersede
// requested by any duplicate wins over create/update.
func mergeRun(items []entities.ExtractedItem) []entities.ExtractedItem {
	merged := make([]entities.ExtractedItem, 0, len(items))
	byExt := make(map[string]int)
	for _, item := range items {
		if item.ExternalID == nil {
			merged = append(merged, item)
			continue
		}
		idx, seen := byExt[*item.ExternalID]
		if !seen {
			byExt[*item.ExternalID] = len(merged)
			merged = append(merged, item)
			continue
		}
		dst := &merged[idx]
		dst.Evidence = entities.MergeEvidence(dst.Evidence, item.Evidence)
		if len(item.Description) > len(dst.Description) {
			dst.Description = item.Description
		}
		if terminalOp(item.Operation) && !terminalOp(dst.Operation) {
			dst.Operation = item.Operation
			dst.Supersedes = item.Supersedes
		}
	}
	return merged
}

func terminalOp(op entities.OpKind) bool {
	return op == entities.OpClose || op == entities.OpSupersede
}

// checkSupersedeRun rejects self-references and reference cycles formed by
// supersede operations within a single run, before any storage lookup.
func checkSupersedeRun(items []entities.ExtractedItem) error {
	refs := make(map[string]string)
	for _, item := range items {
		if item.Operation != entities.OpSupersede || item.Supersedes == nil {
			continue
		}
		if item.ExternalID != nil {
			if *item.ExternalID == *item.Supersedes {
				return apperrors.ErrSupersedeCycle(*item.Supersedes)
			}
			refs[*item.ExternalID] = *item.Supersedes
		}
	}
	for start := range refs {
		seen := map[string]bool{start: true}
		cur := start
		for {
			next, ok := refs[cur]
			if !ok {
				break
			}
			if seen[next] {
				return apperrors.ErrSupersedeCycle(next)
			}
			seen[next] = true
			cur = next
		}
	}
	return nil
}

// runExternalIDs lists the external ids introduced by create/update items of
// one run; a supersede may name these as its predecessor before they are
// persisted.
func runExternalIDs(items []entities.ExtractedItem) map[string]bool {
	refs := make(map[string]bool)
	for _, it := range items {
		if it.ExternalID == nil || terminalOp(it.Operation) {
			continue
		}
		refs[*it.ExternalID] = true
	}
	return refs
}

// resolvePredecessor finds the decision a supersede names, by persisted
// external id or by entity UUID. The predecessor must exist and must not be
// superseded already.
func resolvePredecessor(ref string, cands []Candidate) (*Candidate, error) {
	pred := matchExternal(cands, &ref)
	if pred == nil {
		if id, err := uuid.Parse(ref); err == nil {
			for i := range cands {
				if cands[i].ID == id {
					pred = &cands[i]
					break
				}
			}
		}
	}
	if pred == nil {
		return nil, apperrors.ErrReconciliationConflict("supersede predecessor not found: " + ref)
	}
	if pred.Resolved {
		return nil, apperrors.ErrReconciliationConflict("supersede predecessor already superseded: " + ref)
	}
	return pred, nil
}

func matchExternal(cands []Candidate, extID *string) *Candidate {
	if extID == nil || *extID == "" {
		return nil
	}
	for i := range cands {
		if cands[i].ExternalID != nil && *cands[i].ExternalID == *extID {
			return &cands[i]
		}
	}
	return nil
}

// matchText is the text embedded for duplicate detection.
func matchText(item entities.ExtractedItem) string {
	if item.Description == "" {
		return item.Title
	}
	return item.Title + "\n" + item.Description
}
