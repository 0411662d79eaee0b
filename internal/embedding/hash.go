package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hash is a deterministic local embedder based on signed feature hashing of
// word unigrams, word bigrams and character trigrams. It needs no model or
// network and gives lexical rather than semantic similarity.
type Hash struct {
	dim int
}

func NewHash(dim int) *Hash {
	if dim <= 0 {
		dim = 384
	}
	return &Hash{dim: dim}
}

func (h *Hash) Dimensions() int { return h.dim }

func (h *Hash) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return nil, ErrEmptyInput
	}

	vec := make([]float64, h.dim)
	add := func(feature string, weight float64) {
		f := fnv.New64a()
		_, _ = f.Write([]byte(feature))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dim))
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[idx] += weight
	}
	for i, tok := range tokens {
		add("w:"+tok, 1)
		if i > 0 {
			add("b:"+tokens[i-1]+" "+tok, 0.5)
		}
		runes := []rune(tok)
		for j := 0; j+3 <= len(runes); j++ {
			add("c:"+string(runes[j:j+3]), 0.25)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return nil, ErrEmptyInput
	}
	norm = math.Sqrt(norm)
	out := make([]float32, h.dim)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}
