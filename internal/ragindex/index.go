package ragindex

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/diffcouncil/diffcouncil/internal/types"
)

// DefaultDimension is the fixed embedding dimensionality D used when a
// caller does not request a different size.
const DefaultDimension = 128

var tokenRe = regexp.MustCompile(`[^\w]+`)

// tokenize lowercases and splits on non-word characters, dropping tokens of
// length <=2.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	raw := tokenRe.Split(lower, -1)
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if len(t) > 2 {
			out = append(out, t)
		}
	}
	return out
}

// Stats is the opaque aggregate structure returned by Build/Query for an
// agent to format into its prompt.
type Stats struct {
	FilesChanged  int
	Additions     int
	Deletions     int
	DocumentCount int
}

// DiffIndex is an immutable-after-Build, per-evaluation chunked index of a
// unified diff. All Query calls are read-only; no locking is required
// since nothing mutates after Build returns.
type DiffIndex struct {
	dimension int
	chunks    []types.DiffChunk
	idf       map[string]float64 // token -> idf(t), fixed after Build
	stats     Stats
}

// Dimension returns D, the fixed embedding width this index was built with.
func (idx *DiffIndex) Dimension() int { return idx.dimension }

// Stats returns the aggregate diff statistics computed during Build.
func (idx *DiffIndex) Stats() Stats { return idx.stats }

// Chunks returns the index's chunks in build order. Callers must not mutate
// the returned slice's backing array.
func (idx *DiffIndex) Chunks() []types.DiffChunk { return idx.chunks }

// Build parses diff into deduplicated chunks, builds the TF-IDF vocabulary
// and embeds every chunk. dimension<=0 uses DefaultDimension.
func Build(diff string, dimension int) (*DiffIndex, error) {
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	raws := dedupe(chunkDiff(diff))

	stats := Stats{DocumentCount: len(raws)}
	filesSeen := make(map[string]struct{})
	for _, c := range raws {
		if c.metadata.File != "" {
			filesSeen[c.metadata.File] = struct{}{}
		}
		stats.Additions += c.metadata.AddedLines
		stats.Deletions += c.metadata.DeletedLines
	}
	stats.FilesChanged = len(filesSeen)

	tokenSets := make([][]string, len(raws))
	df := make(map[string]int)
	for i, c := range raws {
		toks := tokenize(c.content)
		tokenSets[i] = toks
		seen := make(map[string]struct{}, len(toks))
		for _, t := range toks {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	n := float64(len(raws))
	idf := make(map[string]float64, len(df))
	for t, count := range df {
		idf[t] = math.Log(n / float64(count))
	}

	chunks := make([]types.DiffChunk, len(raws))
	for i, c := range raws {
		chunks[i] = types.DiffChunk{
			Content:   c.content,
			Metadata:  c.metadata,
			Embedding: embed(tokenSets[i], idf, dimension),
		}
	}

	return &DiffIndex{dimension: dimension, chunks: chunks, idf: idf, stats: stats}, nil
}

// embed computes tf(t)*idf(t) hashed into index(t) = hash(t) % D, then
// L2-normalizes.
func embed(tokens []string, idf map[string]float64, dimension int) []float64 {
	v := make([]float64, dimension)
	if len(tokens) == 0 {
		return v
	}
	tf := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	total := float64(len(tokens))
	for t, count := range tf {
		weight := (count / total) * idf[t]
		v[tokenIndex(t, dimension)] += weight
	}
	l2Normalize(v)
	return v
}

// tokenIndex maps a token to a stable slot in [0,dimension) using FNV-1a.
func tokenIndex(token string, dimension int) int {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(token); i++ {
		h ^= uint64(token[i])
		h *= 1099511628211
	}
	return int(h % uint64(dimension))
}

func l2Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] *= inv
	}
}

// QueryResult is the ranked output of DiffIndex.Query.
type QueryResult struct {
	Chunks []types.DiffChunk
	Stats  Stats
}

// Query embeds text with the index's fixed vocabulary (never rebuilding
// it) and returns the top-K chunks by cosine similarity. Since all stored
// embeddings are already L2-normalized, cosine similarity reduces to a dot
// product.
func (idx *DiffIndex) Query(text string, topK int) QueryResult {
	if topK <= 0 {
		topK = 3
	}
	qv := embed(tokenize(text), idx.idf, idx.dimension)

	type scored struct {
		chunk types.DiffChunk
		score float64
		pos   int
	}
	scoredChunks := make([]scored, len(idx.chunks))
	for i, c := range idx.chunks {
		scoredChunks[i] = scored{chunk: c, score: dot(qv, c.Embedding), pos: i}
	}
	sort.SliceStable(scoredChunks, func(i, j int) bool {
		if scoredChunks[i].score != scoredChunks[j].score {
			return scoredChunks[i].score > scoredChunks[j].score
		}
		return scoredChunks[i].pos < scoredChunks[j].pos
	})
	if topK > len(scoredChunks) {
		topK = len(scoredChunks)
	}
	out := make([]types.DiffChunk, topK)
	for i := 0; i < topK; i++ {
		out[i] = scoredChunks[i].chunk
	}
	return QueryResult{Chunks: out, Stats: idx.stats}
}

func dot(a, b []float64) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
