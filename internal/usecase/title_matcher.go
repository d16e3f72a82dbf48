package usecase

import (
	"regexp"
	"strings"

	"github.com/prodcompare/backend/internal/domain"
)

var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// titleStopWords carry no signal when comparing product titles
var titleStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "on": true, "for": true, "with": true,
	"by": true, "new": true, "edition": true, "product": true,
}

// MatchConfig holds configuration for the title matcher
type MatchConfig struct {
	// MinConfidenceThreshold is the score (0-100) a title must reach to be matched
	MinConfidenceThreshold float64
	FuzzyEditDistance      int
}

// TitleMatch is the product whose title best matches a recommended title
type TitleMatch struct {
	Product       *domain.Product
	Score         float64
	MatchedTokens []string
}

// TitleMatcher resolves a free-text product title to one of a known set of
// products. The recommender occasionally returns a correct title with a
// hallucinated ID; the title is then the only usable key.
type TitleMatcher struct {
	minConfidenceThreshold float64
	fuzzyEditDistance      int
}

// NewTitleMatcher creates a matcher with the given configuration
func NewTitleMatcher(config MatchConfig) *TitleMatcher {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 {
		threshold = 60.0
	}
	fuzzyDist := config.FuzzyEditDistance
	if fuzzyDist <= 0 {
		fuzzyDist = 1
	}
	return &TitleMatcher{
		minConfidenceThreshold: threshold,
		fuzzyEditDistance:      fuzzyDist,
	}
}

// FindBestMatch returns the product whose title best matches title. It
// returns domain.ErrSelectionMismatch when no product reaches the threshold
// or when two products tie for the best score.
func (m *TitleMatcher) FindBestMatch(title string, products []domain.Product) (*TitleMatch, error) {
	titleTokens := tokenize(title)
	if len(titleTokens) == 0 || len(products) == 0 {
		return nil, domain.ErrSelectionMismatch
	}

	var (
		best *TitleMatch
		tied bool
	)
	for i := range products {
		score, matched := m.score(titleTokens, title, products[i].Title)
		switch {
		case best == nil || score > best.Score:
			best = &TitleMatch{Product: &products[i], Score: score, MatchedTokens: matched}
			tied = false
		case score == best.Score:
			tied = true
		}
	}

	if best == nil || tied || best.Score < m.minConfidenceThreshold {
		return best, domain.ErrSelectionMismatch
	}
	return best, nil
}

// score combines coverage of the recommended title (60%), coverage of the
// candidate title (20%) and Jaccard similarity (20%), plus a bonus for exact
// containment. Results are capped at 100.
func (m *TitleMatcher) score(titleTokens []string, title, candidate string) (float64, []string) {
	candidateTokens := tokenize(candidate)
	if len(candidateTokens) == 0 {
		return 0, nil
	}

	titleMatched, matched := m.intersection(titleTokens, candidateTokens)
	candidateMatched, _ := m.intersection(candidateTokens, titleTokens)

	titleCoverage := float64(titleMatched) / float64(len(titleTokens))
	candidateCoverage := float64(candidateMatched) / float64(len(candidateTokens))
	jaccard := float64(titleMatched) / float64(union(titleTokens, candidateTokens))

	score := (titleCoverage*0.60 + candidateCoverage*0.20 + jaccard*0.20) * 100

	titleLower := strings.ToLower(strings.TrimSpace(title))
	candidateLower := strings.ToLower(strings.TrimSpace(candidate))
	if titleLower == candidateLower {
		score += 20
	} else if len(titleLower) > 3 && (strings.Contains(candidateLower, titleLower) || strings.Contains(titleLower, candidateLower)) {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score, matched
}

// intersection counts tokens of a that appear in b, allowing small typos
func (m *TitleMatcher) intersection(a, b []string) (int, []string) {
	var matched []string
	seen := make(map[string]bool)
	for _, ta := range a {
		if seen[ta] {
			continue
		}
		for _, tb := range b {
			if ta == tb || fuzzyTokenMatch(ta, tb, m.fuzzyEditDistance) {
				matched = append(matched, ta)
				seen[ta] = true
				break
			}
		}
	}
	return len(matched), matched
}

// tokenize splits a title into lowercase tokens without punctuation or stop words
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= 1 || titleStopWords[word] {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// fuzzyTokenMatch checks if two tokens are within the edit distance threshold.
// Tokens shorter than four characters must match exactly.
func fuzzyTokenMatch(a, b string, threshold int) bool {
	if a == b {
		return true
	}
	if len(a) < 4 || len(b) < 4 {
		return false
	}
	lenDiff := len(a) - len(b)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}
	return levenshteinDistance(a, b) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings
func levenshteinDistance(s1, s2 string) int {
	r1 := []rune(s1)
	r2 := []rune(s2)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// union returns the count of unique tokens across both sets
func union(a, b []string) int {
	set := make(map[string]bool, len(a)+len(b))
	for _, t := range a {
		set[t] = true
	}
	for _, t := range b {
		set[t] = true
	}
	return len(set)
}
