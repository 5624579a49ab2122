package memory

import (
	"math"
	"regexp"
	"strings"

	"github.com/sweetpotato0/ai-autopilot/vector"
)

// Dimensions is the fixed embedding length.
const Dimensions = 384

var nonWord = regexp.MustCompile(`[^\w\s]+`)

// Tokenize lowercases s, replaces non-word characters with spaces and
// drops tokens of two characters or fewer.
func Tokenize(s string) []string {
	fields := strings.Fields(nonWord.ReplaceAllString(strings.ToLower(s), " "))
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

// Vocabulary maps terms to embedding slots and inverse document frequencies.
// Slots are assigned in first-seen order over the corpus, so a term keeps
// its slot across rebuilds as long as earlier documents do not change.
type Vocabulary struct {
	index map[string]int
	idf   map[string]float64
	docs  int
}

// BuildVocabulary indexes docs.
func BuildVocabulary(docs []string) *Vocabulary {
	v := &Vocabulary{
		index: make(map[string]int),
		idf:   make(map[string]float64),
		docs:  len(docs),
	}
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, term := range Tokenize(doc) {
			if _, ok := v.index[term]; !ok {
				v.index[term] = len(v.index)
			}
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}
	n := float64(len(docs))
	for term, count := range df {
		v.idf[term] = math.Log((n+1)/(float64(count)+1)) + 1
	}
	return v
}

// Size returns the number of indexed terms, including those beyond the
// embedding range.
func (v *Vocabulary) Size() int {
	if v == nil {
		return 0
	}
	return len(v.index)
}

// Documents returns the corpus size the vocabulary was built from.
func (v *Vocabulary) Documents() int {
	if v == nil {
		return 0
	}
	return v.docs
}

// Embed returns the L2-normalised TF-IDF vector of text. Terms unknown to
// the vocabulary or indexed at or beyond Dimensions are ignored; text with
// no known terms yields the zero vector.
func (v *Vocabulary) Embed(text string) []float32 {
	vec := make([]float32, Dimensions)
	if v == nil {
		return vec
	}
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return vec
	}
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	total := float64(len(tokens))
	for term, count := range tf {
		idx, ok := v.index[term]
		if !ok || idx >= Dimensions {
			continue
		}
		vec[idx] = float32(float64(count) / total * v.idf[term])
	}
	return vector.Normalize(vec)
}
