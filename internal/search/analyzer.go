package search

import (
	"strings"
	"unicode/utf8"
)

// SchemaHint carries the catalog names the analyzer matches the query
// against.
type SchemaHint struct {
	Tables  []string
	Columns []string
	Terms   []string
}

// QueryAnalysis is the diagnostic breakdown of one query. Analysis is
// pure and side-effect free: it never runs a search.
type QueryAnalysis struct {
	Query     string `json:"query"`
	Length    int    `json:"length"`
	WordCount int    `json:"word_count"`

	HasOperators bool `json:"has_operators"`
	HasQuotes    bool `json:"has_quotes"`
	HasWildcards bool `json:"has_wildcards"`

	TableMentions  []string `json:"table_mentions"`
	ColumnMentions []string `json:"column_mentions"`
	TermMentions   []string `json:"term_mentions"`

	Suggestions []string `json:"suggestions"`
}

// queryOperators are boolean-style search operators users carry over
// from other tools.
var queryOperators = []string{"AND", "OR", "NOT", "+", "-"}

// AnalyzeQuery inspects a query's shape and its relationship to the
// schema, and offers phrasing suggestions. Mentions use bidirectional
// case-insensitive substring matching: "customer orders" mentions the
// table "orders", and "cust" mentions "customers".
func AnalyzeQuery(query string, hint SchemaHint) QueryAnalysis {
	trimmed := strings.TrimSpace(query)
	words := strings.Fields(trimmed)

	analysis := QueryAnalysis{
		Query:        trimmed,
		Length:       utf8.RuneCountInString(trimmed),
		WordCount:    len(words),
		HasOperators: hasOperators(words),
		HasQuotes:    strings.ContainsAny(trimmed, `"'`),
		HasWildcards: strings.ContainsAny(trimmed, "*%?"),

		TableMentions:  mentions(trimmed, hint.Tables),
		ColumnMentions: mentions(trimmed, hint.Columns),
		TermMentions:   mentions(trimmed, hint.Terms),
	}
	analysis.Suggestions = suggest(analysis)
	return analysis
}

func hasOperators(words []string) bool {
	for _, w := range words {
		for _, op := range queryOperators {
			if w == op {
				return true
			}
		}
	}
	return false
}

// mentions returns the schema names related to the query: the name
// appears in the query, the query appears in the name, or any query
// word of three or more runes overlaps the name the same way.
func mentions(query string, names []string) []string {
	lowerQuery := strings.ToLower(query)
	words := strings.Fields(lowerQuery)

	matched := []string{}
	for _, name := range names {
		lowerName := strings.ToLower(name)
		if lowerName == "" {
			continue
		}
		if related(lowerQuery, words, lowerName) {
			matched = append(matched, name)
		}
	}
	return matched
}

func related(query string, words []string, name string) bool {
	if strings.Contains(query, name) || strings.Contains(name, query) {
		return true
	}
	for _, w := range words {
		if utf8.RuneCountInString(w) < 3 {
			continue
		}
		if strings.Contains(name, w) || strings.Contains(w, name) {
			return true
		}
	}
	return false
}

func suggest(a QueryAnalysis) []string {
	suggestions := []string{}
	if a.Length < 3 {
		suggestions = append(suggestions, "query is very short; add more descriptive words")
	}
	if a.WordCount == 1 && a.Length >= 3 {
		suggestions = append(suggestions, "single-word query; adding context improves semantic matching")
	}
	if a.Length > 100 {
		suggestions = append(suggestions, "query is very long; shorter queries usually rank better")
	}
	if len(a.TableMentions)+len(a.ColumnMentions)+len(a.TermMentions) == 0 {
		suggestions = append(suggestions, "no schema names recognized; try table or column names")
	}
	if a.HasWildcards {
		suggestions = append(suggestions, "wildcards are not needed; matching is fuzzy by default")
	}
	return suggestions
}
