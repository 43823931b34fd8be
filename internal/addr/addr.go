package addr

import "strings"

// Span is a half-open [Start, End) rune-offset range in the source text,
// labeled with the category it was matched for. Offsets are character
// indices, never byte indices.
type Span struct {
	Category string
	Start    int
	End      int
}

// Len returns the number of characters the span covers.
func (s Span) Len() int { return s.End - s.Start }

// Overlaps reports whether the span intersects [start, end).
func (s Span) Overlaps(start, end int) bool {
	return s.Start < end && start < s.End
}

// Tagged is a parallel character/tag sequence. Tokens are single-character
// strings; joining them reproduces Text exactly.
type Tagged struct {
	Tokens []string `json:"tokens"`
	Tags   []string `json:"ner_tags"`
	Text   string   `json:"text"`
}

// Entities is a category -> values mapping that preserves the order in which
// categories were first seen and the order of values within a category.
type Entities struct {
	order  []string
	values map[string][]string
}

// NewEntities returns an empty Entities map.
func NewEntities() *Entities {
	return &Entities{values: make(map[string][]string)}
}

// Append adds a value under category, registering the category on first use.
func (e *Entities) Append(category, value string) {
	if _, ok := e.values[category]; !ok {
		e.order = append(e.order, category)
	}
	e.values[category] = append(e.values[category], value)
}

// Values returns the values recorded for category, in encounter order.
func (e *Entities) Values(category string) []string {
	return e.values[category]
}

// Categories returns category names in first-seen order.
func (e *Entities) Categories() []string {
	return e.order
}

// Len returns the number of distinct categories.
func (e *Entities) Len() int { return len(e.order) }

// Flat joins each category's values with ", " into a single string, the
// exchange form used between pipeline stages.
func (e *Entities) Flat() map[string]string {
	out := make(map[string]string, len(e.order))
	for _, cat := range e.order {
		out[cat] = strings.Join(e.values[cat], ", ")
	}
	return out
}

// LevelRecord is the 11-level hierarchical address output. Every character
// of OriginalText is accounted for by a matched span or by Remark.
type LevelRecord struct {
	Level1       string `json:"level1"`
	Level2       string `json:"level2"`
	Level3       string `json:"level3"`
	Level4       string `json:"level4"`
	Level5       string `json:"level5"`
	Level6       string `json:"level6"`
	Level7       string `json:"level7"`
	Level8       string `json:"level8"`
	Level9       string `json:"level9"`
	Level10      string `json:"level10"`
	Level11      string `json:"level11"`
	Remark       string `json:"remark"`
	OriginalText string `json:"original_text"`
	Error        string `json:"error,omitempty"`
}

// Record is one address on its way through the pipeline. Entities may be
// pre-populated by an upstream classifier or filled in by tagging.
type Record struct {
	Address  string            `json:"address"`
	Entities map[string]string `json:"entities,omitempty"`
}
