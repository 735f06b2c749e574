package similarity

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/recapcrew/recap-engine/pkg/ai"
)

// DefaultThreshold classifies a candidate pair as a probable duplicate.
const DefaultThreshold = 0.85

// Service wraps an embedding provider and scores text similarity for
// duplicate detection. The provider is allowed to be degraded or absent; a
// nil or failing embedder means duplicate detection is skipped, and callers
// must never treat that as a reconciliation failure.
type Service struct {
	embedder  ai.Embedder
	threshold float64
	logger    *zap.Logger
}

// NewService creates a similarity service. A zero threshold falls back to the
// default; a nil embedder yields a permanently degraded service.
func NewService(embedder ai.Embedder, threshold float64, logger *zap.Logger) *Service {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Service{
		embedder:  embedder,
		threshold: threshold,
		logger:    logger,
	}
}

// Threshold returns the configured duplicate threshold.
func (s *Service) Threshold() float64 {
	return s.threshold
}

// Vector embeds text. Returns nil (and no error) when the provider is absent
// or fails; degraded behavior is logged, not propagated.
func (s *Service) Vector(ctx context.Context, text string) []float32 {
	if s.embedder == nil || text == "" {
		return nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("embedding unavailable, duplicate detection skipped",
				zap.Error(err),
			)
		}
		return nil
	}
	return vec
}

// IsDuplicate reports whether a similarity score crosses the threshold.
func (s *Service) IsDuplicate(score float64) bool {
	return score >= s.threshold
}

// Cosine returns the cosine similarity of two vectors normalized to [0, 1].
// Mismatched or empty vectors score zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	// Cosine lands in [-1, 1]; negative scores carry no duplicate signal and
	// clamp to zero so the result stays in [0, 1].
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	return cos
}
