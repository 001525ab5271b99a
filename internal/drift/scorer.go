package drift

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/schemadrift/schemadrift/internal/models"
)

// Composite score weights
const (
	jaccardWeight = 0.4
	cosineWeight  = 0.4
	editWeight    = 0.2
)

// Severity thresholds on the composite score
const (
	lowThreshold    = 0.7
	mediumThreshold = 0.4
)

var nonWordRe = regexp.MustCompile(`\W+`)

// Detect scores the drift between the old and new intent of a node.
// Returns nil when both nodes are absent or the intent strings are
// identical; absent intent is treated as the empty string.
func Detect(old, new *models.Node) *models.Drift {
	if old == nil && new == nil {
		return nil
	}

	var oldIntent, newIntent string
	if old != nil {
		oldIntent = old.Intent
	}
	if new != nil {
		newIntent = new.Intent
	}
	if oldIntent == newIntent {
		return nil
	}

	jaccard := jaccardSimilarity(oldIntent, newIntent)
	cosine := cosineSimilarity(oldIntent, newIntent)
	edit := editSimilarity(oldIntent, newIntent)
	score := jaccardWeight*jaccard + cosineWeight*cosine + editWeight*edit

	nodeID := ""
	if new != nil {
		nodeID = new.ID
	} else {
		nodeID = old.ID
	}

	return &models.Drift{
		NodeID:    nodeID,
		OldIntent: oldIntent,
		NewIntent: newIntent,
		Jaccard:   jaccard,
		Cosine:    cosine,
		Edit:      edit,
		Score:     score,
		Severity:  bucketSeverity(score),
	}
}

// DetectAll scores the union of two node maps and returns every non-nil
// drift sorted ascending by composite score, most-drifted first
func DetectAll(oldMap, newMap map[string]*models.Node) []*models.Drift {
	ids := make(map[string]bool, len(oldMap)+len(newMap))
	for id := range oldMap {
		ids[id] = true
	}
	for id := range newMap {
		ids[id] = true
	}

	var drifts []*models.Drift
	for id := range ids {
		if d := Detect(oldMap[id], newMap[id]); d != nil {
			drifts = append(drifts, d)
		}
	}

	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].Score != drifts[j].Score {
			return drifts[i].Score < drifts[j].Score
		}
		return drifts[i].NodeID < drifts[j].NodeID
	})
	return drifts
}

func bucketSeverity(score float64) models.DriftSeverity {
	switch {
	case score >= lowThreshold:
		return models.DriftSeverityLow
	case score >= mediumThreshold:
		return models.DriftSeverityMedium
	default:
		return models.DriftSeverityHigh
	}
}

// tokenize lowercases the text, strips non-word characters to spaces
// and splits on whitespace
func tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonWordRe.ReplaceAllString(text, " ")

	fields := strings.Fields(text)
	return fields
}

// jaccardSimilarity computes |A ∩ B| / |A ∪ B| over token sets.
// Both sides empty scores 1, one side empty scores 0.
func jaccardSimilarity(a, b string) float64 {
	setA := tokenSet(tokenize(a))
	setB := tokenSet(tokenize(b))

	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// cosineSimilarity computes the term-frequency cosine over the shared
// vocabulary of both token lists. A zero norm on either side scores 0.
func cosineSimilarity(a, b string) float64 {
	tokensA := tokenize(a)
	tokensB := tokenize(b)

	vocab := make(map[string]int)
	for _, t := range tokensA {
		if _, ok := vocab[t]; !ok {
			vocab[t] = len(vocab)
		}
	}
	for _, t := range tokensB {
		if _, ok := vocab[t]; !ok {
			vocab[t] = len(vocab)
		}
	}

	vecA := make([]float64, len(vocab))
	vecB := make([]float64, len(vocab))
	for _, t := range tokensA {
		vecA[vocab[t]]++
	}
	for _, t := range tokensB {
		vecB[vocab[t]]++
	}

	var dot, normA, normB float64
	for i := range vecA {
		dot += vecA[i] * vecB[i]
		normA += vecA[i] * vecA[i]
		normB += vecB[i] * vecB[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// editSimilarity computes 1 - levenshtein/maxLen over the lowercased
// full strings. Both sides empty scores 1.
func editSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	distance := levenshteinDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// levenshteinDistance calculates edit distance between two strings with
// unit insert/delete/substitute cost
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	matrix := make([][]int, len(s1)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(s2)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}

			matrix[i][j] = min(
				min(matrix[i-1][j]+1, matrix[i][j-1]+1),
				matrix[i-1][j-1]+cost,
			)
		}
	}

	return matrix[len(s1)][len(s2)]
}
