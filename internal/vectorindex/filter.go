package vectorindex

import "encoding/json"

// Filter is the boolean payload filter accepted by query and scroll: all Must
// clauses hold, at least one Should clause holds, no MustNot clause holds.
type Filter struct {
	Must    []Clause `json:"must,omitempty"`
	Should  []Clause `json:"should,omitempty"`
	MustNot []Clause `json:"must_not,omitempty"`
}

// Clause is either a single field match or a nested group of alternatives.
type Clause struct {
	Key   string
	Match any
	AnyOf []Clause
}

func MatchClause(key string, value any) Clause {
	return Clause{Key: key, Match: value}
}

// AnyOfClause groups alternatives so they can appear inside a Must list.
func AnyOfClause(alternatives ...Clause) Clause {
	return Clause{AnyOf: alternatives}
}

func (c Clause) MarshalJSON() ([]byte, error) {
	if len(c.AnyOf) > 0 {
		return json.Marshal(map[string]any{"should": c.AnyOf})
	}
	return json.Marshal(map[string]any{
		"key":   c.Key,
		"match": map[string]any{"value": c.Match},
	})
}
