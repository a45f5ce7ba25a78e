package topic

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

// DefaultThreshold is used when configuration supplies no usable value.
const DefaultThreshold = 0.75

var ErrSimilarityUnavailable = errors.New("topic: semantic similarity unavailable")

// Embedder is satisfied by the OpenAI client.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// LexicalSimilarity is the overlap coefficient of the two labels' stem sets:
// |A ∩ B| / min(|A|, |B|). Labels made only of stop words compare by folded equality.
func LexicalSimilarity(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		if Fold(a) != "" && Fold(a) == Fold(b) {
			return 1
		}
		return 0
	}
	small, large := ta, tb
	if len(small) > len(large) {
		small, large = large, small
	}
	shared := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

// Cosine returns the cosine similarity of two equal-length vectors, clamped to [0, 1].
func Cosine(a, b []float32) (float64, error) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, fmt.Errorf("cosine: dimension mismatch %d vs %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	c := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return math.Max(0, math.Min(1, c)), nil
}

// Judge scores two labels, consulting the embedder only when the lexical score is
// below the threshold. The final score is the larger of the two.
type Judge struct {
	embedder  Embedder
	threshold float64
	log       *logger.Logger
}

// NewJudge accepts a nil embedder, in which case scoring is lexical only.
func NewJudge(log *logger.Logger, embedder Embedder, threshold float64) *Judge {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Judge{embedder: embedder, threshold: threshold, log: log.With("service", "TopicJudge")}
}

func (j *Judge) Threshold() float64 { return j.threshold }

func (j *Judge) Score(ctx context.Context, a, b string) float64 {
	lexical := LexicalSimilarity(a, b)
	if lexical >= j.threshold || j.embedder == nil {
		return lexical
	}
	semantic, err := j.semantic(ctx, a, b)
	if err != nil {
		j.log.Warn("semantic similarity degraded to lexical", "error", err)
		return lexical
	}
	return math.Max(lexical, semantic)
}

func (j *Judge) semantic(ctx context.Context, a, b string) (float64, error) {
	vecs, err := j.embedder.Embed(ctx, []string{Fold(a), Fold(b)})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSimilarityUnavailable, err)
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("%w: expected 2 vectors, got %d", ErrSimilarityUnavailable, len(vecs))
	}
	return Cosine(vecs[0], vecs[1])
}
