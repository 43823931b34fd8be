// Package levels assigns extracted address components to the 11 ordered
// hierarchy levels by positional scanning. The window rules reproduce the
// legacy pipeline exactly, including the min-start/max-end slicing that can
// absorb intervening text and the asymmetric anchor directions; downstream
// consumers depend on that behavior.
package levels

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/zhongyd/addrnorm/internal/addr"
	"github.com/zhongyd/addrnorm/internal/span"
)

var (
	poiKeys           = []string{"poi", "subpoi", "community", "devzone", "village_group"}
	adminKeys         = []string{"prov", "city", "district", "town"}
	roadDirectionKeys = []string{"road", "direction"}
	roadnoKeys        = []string{"roadno"}
	additionalKeys    = []string{"poi", "subpoi", "road", "roadno", "direction", "community", "devzone", "village_group", "houseno"}
	housenoKeys       = []string{"houseno"}
	cellnoKeys        = []string{"cellno"}
	floornoKeys       = []string{"floorno"}
	roomnoKeys        = []string{"roomno"}
)

// Classify relocates every entity value to a span in text and distributes
// the spans over level1..level11 plus a remark holding every character no
// span claimed. It never fails: an internal panic is converted into an
// all-empty record carrying the failure description.
func Classify(entities map[string]string, text string, log *slog.Logger) (rec addr.LevelRecord) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	rec.OriginalText = text

	defer func() {
		if r := recover(); r != nil {
			log.Error("classification panic", "error", r, "address", text)
			rec = addr.LevelRecord{
				OriginalText: text,
				Error:        fmt.Sprint(r),
			}
		}
	}()

	runes := []rune(text)
	used := span.NewUsed()

	// Relocate every value, avoiding overlap globally: the consumed set is
	// shared across all categories, and a conflicting window triggers a
	// re-search further right. A duplicate value therefore lands on the next
	// occurrence instead of the same offsets.
	index := make(map[string][]addr.Span)
	for _, cat := range span.OrderedCategories(entities) {
		for _, value := range span.SplitValues(entities[cat]) {
			start, end, ok := span.Find(runes, value, 0, used)
			if !ok {
				log.Warn("value not found in address", "category", cat, "value", value)
				continue
			}
			index[cat] = append(index[cat], addr.Span{Category: cat, Start: start, End: end})
		}
	}

	// POI anchor: leftmost POI-family span by start.
	// Admin anchor: rightmost administrative span by start. Levels 1-4 come
	// from the raw values regardless; the anchor only marks where the
	// administrative prefix ends for the searches below.
	poiMin, poiOK := extremeByStart(index, poiKeys, false)
	adminMax, adminOK := extremeByStart(index, adminKeys, true)

	if prov, ok := entities["prov"]; ok {
		rec.Level1 = prov
	} else {
		rec.Level1 = "广东省"
	}
	rec.Level2 = entities["city"]
	rec.Level3 = entities["district"]
	rec.Level4 = entities["town"]

	slice := func(start, end int) string {
		return strings.TrimSpace(string(runes[start:end]))
	}

	if poiOK {
		rec.Level7 = slice(poiMin.Start, poiMin.End)

		// Level5 (road/direction): between the admin prefix, if any, and the
		// POI anchor.
		roadAccept := func(s addr.Span) bool {
			if adminOK {
				return adminMax.End-1 < s.Start && s.Start < poiMin.Start
			}
			return s.Start < poiMin.Start
		}
		minRD, maxRD, rdOK := bounds(index, roadDirectionKeys, roadAccept)
		if rdOK {
			rec.Level5 = slice(minRD.Start, maxRD.End)
		}

		// Level6 (road number): after the road slice (or the admin prefix
		// when no road matched), still before the POI anchor.
		roadnoAccept := func(s addr.Span) bool {
			if rdOK {
				return maxRD.End-1 < s.Start && s.Start < poiMin.Start
			}
			if adminOK {
				return adminMax.End-1 < s.Start && s.Start < poiMin.Start
			}
			return s.Start < poiMin.Start
		}
		minRN, maxRN, rnOK := bounds(index, roadnoKeys, roadnoAccept)
		if rnOK {
			rec.Level6 = slice(minRN.Start, maxRN.End)
		}

		// Level8: anything POI-adjacent found strictly after the POI anchor.
		minAdd, maxAdd, addOK := bounds(index, additionalKeys, func(s addr.Span) bool {
			return poiMin.End-1 < s.Start
		})
		if addOK {
			rec.Level8 = slice(minAdd.Start, maxAdd.End)
		}

		// Level9 (unit): after level8 if present, otherwise after the anchor.
		cellAccept := func(s addr.Span) bool {
			if addOK {
				return s.Start > maxAdd.End-1
			}
			return s.Start > poiMin.End-1
		}
		minCell, maxCell, cellOK := bounds(index, cellnoKeys, cellAccept)
		if cellOK {
			rec.Level9 = slice(minCell.Start, maxCell.End)
		}

		// Level10 (floor): after the rightmost end reached by anything
		// assigned so far, so level text never goes backward.
		latest := latestEnd(
			opt(adminMax, adminOK), opt(maxRD, rdOK), opt(maxRN, rnOK),
			opt(poiMin, true), opt(maxAdd, addOK), opt(maxCell, cellOK),
		)
		minFloor, maxFloor, floorOK := bounds(index, floornoKeys, func(s addr.Span) bool {
			return s.Start > latest.End-1
		})
		if floorOK {
			rec.Level10 = slice(minFloor.Start, maxFloor.End)
		}

		// Level11 (room): boundary advances again past the floor slice.
		latest = latestEnd(
			opt(adminMax, adminOK), opt(maxRD, rdOK), opt(maxRN, rnOK),
			opt(poiMin, true), opt(maxAdd, addOK), opt(maxCell, cellOK),
			opt(maxFloor, floorOK),
		)
		minRoom, maxRoom, roomOK := bounds(index, roomnoKeys, func(s addr.Span) bool {
			return s.Start > latest.End-1
		})
		if roomOK {
			rec.Level11 = slice(minRoom.Start, maxRoom.End)
		}
	} else if adminOK {
		minRD, maxRD, rdOK := bounds(index, roadDirectionKeys, func(s addr.Span) bool {
			return adminMax.End-1 < s.Start
		})
		if rdOK {
			rec.Level5 = slice(minRD.Start, maxRD.End)
		}

		roadnoAccept := func(s addr.Span) bool {
			if rdOK {
				return maxRD.End-1 < s.Start
			}
			return adminMax.End-1 < s.Start
		}
		minRN, maxRN, rnOK := bounds(index, roadnoKeys, roadnoAccept)
		if rnOK {
			rec.Level6 = slice(minRN.Start, maxRN.End)
		}

		// Without a POI, level8 holds the house number and levels 9-11
		// follow it, each window lower-bounded by the rightmost end so far.
		latest := latestEnd(opt(adminMax, true), opt(maxRD, rdOK), opt(maxRN, rnOK))
		minH, maxH, hOK := bounds(index, housenoKeys, func(s addr.Span) bool {
			return s.Start > latest.End-1
		})
		if hOK {
			rec.Level8 = slice(minH.Start, maxH.End)
		}

		latest = latestEnd(opt(adminMax, true), opt(maxRD, rdOK), opt(maxRN, rnOK), opt(maxH, hOK))
		minCell, maxCell, cellOK := bounds(index, cellnoKeys, func(s addr.Span) bool {
			return s.Start > latest.End-1
		})
		if cellOK {
			rec.Level9 = slice(minCell.Start, maxCell.End)
		}

		latest = latestEnd(opt(adminMax, true), opt(maxRD, rdOK), opt(maxRN, rnOK), opt(maxH, hOK), opt(maxCell, cellOK))
		minFloor, maxFloor, floorOK := bounds(index, floornoKeys, func(s addr.Span) bool {
			return s.Start > latest.End-1
		})
		if floorOK {
			rec.Level10 = slice(minFloor.Start, maxFloor.End)
		}

		latest = latestEnd(opt(adminMax, true), opt(maxRD, rdOK), opt(maxRN, rnOK), opt(maxH, hOK), opt(maxCell, cellOK), opt(maxFloor, floorOK))
		minRoom, maxRoom, roomOK := bounds(index, roomnoKeys, func(s addr.Span) bool {
			return s.Start > latest.End-1
		})
		if roomOK {
			rec.Level11 = slice(minRoom.Start, maxRoom.End)
		}
	} else {
		// Neither POI nor admin anchor: only road and road-number levels are
		// attempted, searched from the start of the text.
		minRD, maxRD, rdOK := bounds(index, roadDirectionKeys, func(addr.Span) bool { return true })
		if rdOK {
			rec.Level5 = slice(minRD.Start, maxRD.End)
		}

		roadnoAccept := func(s addr.Span) bool {
			if rdOK {
				return s.Start > maxRD.End-1
			}
			return true
		}
		minRN, maxRN, rnOK := bounds(index, roadnoKeys, roadnoAccept)
		if rnOK {
			rec.Level6 = slice(minRN.Start, maxRN.End)
		}
	}

	// Remark: the complement of every located span, in original order.
	var remark strings.Builder
	for i, r := range runes {
		if !used.Contains(i) {
			remark.WriteRune(r)
		}
	}
	rec.Remark = strings.TrimSpace(remark.String())

	return rec
}

// bounds scans the spans of the given categories, keeping those accept
// admits, and returns the span with the smallest start and the span with
// the largest start. The level slice runs from min.Start to max.End.
func bounds(index map[string][]addr.Span, keys []string, accept func(addr.Span) bool) (min, max addr.Span, ok bool) {
	for _, key := range keys {
		for _, s := range index[key] {
			if !accept(s) {
				continue
			}
			if !ok {
				min, max, ok = s, s, true
				continue
			}
			if s.Start < min.Start {
				min = s
			}
			if s.Start > max.Start {
				max = s
			}
		}
	}
	return min, max, ok
}

// extremeByStart returns the span with the smallest (rightmost=false) or
// largest (rightmost=true) start among the given categories.
func extremeByStart(index map[string][]addr.Span, keys []string, rightmost bool) (addr.Span, bool) {
	var best addr.Span
	found := false
	for _, key := range keys {
		for _, s := range index[key] {
			if !found {
				best, found = s, true
				continue
			}
			if rightmost && s.Start > best.Start {
				best = s
			}
			if !rightmost && s.Start < best.Start {
				best = s
			}
		}
	}
	return best, found
}

type maybeSpan struct {
	span addr.Span
	ok   bool
}

func opt(s addr.Span, ok bool) maybeSpan { return maybeSpan{span: s, ok: ok} }

// latestEnd picks the candidate whose End reaches furthest right. Callers
// always pass at least one present candidate.
func latestEnd(candidates ...maybeSpan) addr.Span {
	var best addr.Span
	found := false
	for _, c := range candidates {
		if !c.ok {
			continue
		}
		if !found || c.span.End > best.End {
			best = c.span
			found = true
		}
	}
	return best
}
