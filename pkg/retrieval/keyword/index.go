package keyword

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// Chunk is one indexable unit of knowledge. Empty Source or ChunkID means
// the pack did not supply one.
type Chunk struct {
	Source  *string
	ChunkID *string
	Text    string
}

type document struct {
	chunk  Chunk
	terms  map[string]int
	length int
}

// Index is an immutable BM25 index over chunks.
type Index struct {
	docs  []document
	df    map[string]int
	avgdl float64
}

// NewIndex tokenizes and indexes chunks in order.
func NewIndex(chunks []Chunk) *Index {
	ix := &Index{
		docs: make([]document, 0, len(chunks)),
		df:   make(map[string]int),
	}

	total := 0
	for _, c := range chunks {
		tokens := Tokenize(c.Text)
		terms := make(map[string]int, len(tokens))
		for _, t := range tokens {
			terms[t]++
		}
		for t := range terms {
			ix.df[t]++
		}
		ix.docs = append(ix.docs, document{chunk: c, terms: terms, length: len(tokens)})
		total += len(tokens)
	}

	if len(ix.docs) > 0 {
		ix.avgdl = float64(total) / float64(len(ix.docs))
	}
	return ix
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.docs)
}

// Hit is a scored chunk.
type Hit struct {
	Chunk Chunk
	Score float64
}

// Search returns up to k chunks with a positive BM25 score, best first.
// Ties keep index order.
func (ix *Index) Search(query string, k int) []Hit {
	if k <= 0 || len(ix.docs) == 0 {
		return nil
	}

	qterms := uniq(Tokenize(query))
	if len(qterms) == 0 {
		return nil
	}

	n := float64(len(ix.docs))
	hits := make([]Hit, 0, k)
	for _, d := range ix.docs {
		var score float64
		for _, t := range qterms {
			tf := float64(d.terms[t])
			if tf == 0 {
				continue
			}
			df := float64(ix.df[t])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := tf + bm25K1*(1-bm25B+bm25B*float64(d.length)/ix.avgdl)
			score += idf * tf * (bm25K1 + 1) / norm
		}
		if score > 0 {
			hits = append(hits, Hit{Chunk: d.chunk, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Tokenize lowercases s and splits it into runs of letters and digits.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
