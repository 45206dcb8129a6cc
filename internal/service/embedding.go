package service

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/resepia/backend/internal/models"
)

// GenerateEmbedding returns a deterministic bag-of-words embedding.
// Every token is hashed into one of EmbeddingDimensions buckets and the
// result is L2-normalized, so recipes sharing words sit close together.
func GenerateEmbedding(text string) pgvector.Vector {
	vec := make([]float32, models.EmbeddingDimensions)

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%models.EmbeddingDimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		// the zero vector has no direction; pin empty text to one axis
		vec[0] = 1
		return pgvector.NewVector(vec)
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return pgvector.NewVector(vec)
}

func recipeEmbeddingText(r *models.Recipe) string {
	return r.Name + " " + r.Description + " " + strings.Join(r.Ingredients, " ")
}
