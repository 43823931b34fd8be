// Package bioes converts between category->value mappings and per-character
// BIOES tag sequences. Encode and Decode are inverses over the same tag
// alphabet, which makes round-trip validation of training data possible.
package bioes

import (
	"io"
	"log/slog"
	"sort"

	"github.com/zhongyd/addrnorm/internal/addr"
	"github.com/zhongyd/addrnorm/internal/span"
)

// Tag alphabet. Category-carrying tags are "<prefix><category>".
const (
	TagOutside   = "O"
	PrefixBegin  = "B-"
	PrefixInside = "I-"
	PrefixEnd    = "E-"
	PrefixSingle = "S-"
)

// Encode locates each entity value in text and emits one BIOES tag per
// character. Values absent from the text are dropped with a warning; they
// are a data-quality problem, not a failure. The output always satisfies
// len(Tokens) == len(Tags) == rune length of text, and joining Tokens
// reproduces text.
func Encode(text string, entities map[string]string, log *slog.Logger) addr.Tagged {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runes := []rune(text)

	var spans []addr.Span
	for _, cat := range span.OrderedCategories(entities) {
		for _, value := range span.SplitValues(entities[cat]) {
			start, end, ok := span.First(runes, value)
			if !ok {
				log.Warn("entity value not found in address", "category", cat, "value", value)
				continue
			}
			spans = append(spans, addr.Span{Category: cat, Start: start, End: end})
		}
	}

	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		if spans[i].End != spans[j].End {
			return spans[i].End < spans[j].End
		}
		return spans[i].Category < spans[j].Category
	})

	tokens := make([]string, 0, len(runes))
	tags := make([]string, 0, len(runes))

	// Greedy leftmost-first merge. cur is the consumed mark: positions below
	// it are never tagged again, so a span starting inside consumed text is
	// emitted only for its remaining tail, or skipped entirely.
	cur := 0
	for _, sp := range spans {
		if sp.End <= cur {
			continue
		}
		start := sp.Start
		if start < cur {
			start = cur
		}
		for i := cur; i < start; i++ {
			tokens = append(tokens, string(runes[i]))
			tags = append(tags, TagOutside)
		}
		length := sp.End - start
		for i := start; i < sp.End; i++ {
			tokens = append(tokens, string(runes[i]))
			switch {
			case length == 1:
				tags = append(tags, PrefixSingle+sp.Category)
			case i == start:
				tags = append(tags, PrefixBegin+sp.Category)
			case i == sp.End-1:
				tags = append(tags, PrefixEnd+sp.Category)
			default:
				tags = append(tags, PrefixInside+sp.Category)
			}
		}
		cur = sp.End
	}
	for i := cur; i < len(runes); i++ {
		tokens = append(tokens, string(runes[i]))
		tags = append(tags, TagOutside)
	}

	return addr.Tagged{Tokens: tokens, Tags: tags, Text: text}
}
