package bioes

import (
	"strings"

	"github.com/zhongyd/addrnorm/internal/addr"
)

// decoder is the state machine behind Decode: either idle, or accumulating
// characters for one open category.
type decoder struct {
	open     bool
	category string
	buf      strings.Builder
	out      *addr.Entities
}

func (d *decoder) flush() {
	if !d.open {
		return
	}
	d.out.Append(d.category, d.buf.String())
	d.open = false
	d.buf.Reset()
}

func (d *decoder) begin(category, token string) {
	d.open = true
	d.category = category
	d.buf.Reset()
	d.buf.WriteString(token)
}

// step processes one token/tag pair from the idle-or-open state.
func (d *decoder) step(token, tag string) {
	kind, category := splitTag(tag)

	if d.open {
		switch {
		case kind == 'I' && category == d.category:
			d.buf.WriteString(token)
			return
		case kind == 'E' && category == d.category:
			d.buf.WriteString(token)
			d.flush()
			return
		default:
			// Any boundary violation: a mismatched category, O, or a fresh
			// B-/S-. The partial entity is kept, never discarded, then the
			// tag is reprocessed from idle.
			d.flush()
		}
	}

	switch kind {
	case 'B':
		d.begin(category, token)
	case 'S':
		d.begin(category, token)
		d.flush()
	default:
		// I-, E-, O with nothing open: ignored. Model output is imperfect
		// and the decoder must stay lenient.
	}
}

// Decode reconstructs a category -> value-list mapping from a parallel
// token/tag sequence. It tolerates malformed tag sequences: partially open
// entities are flushed on any boundary violation and at end of input, and
// stray continuation tags are ignored. Decode never fails.
func Decode(tokens, tags []string) *addr.Entities {
	d := decoder{out: addr.NewEntities()}
	n := len(tokens)
	if len(tags) < n {
		n = len(tags)
	}
	for i := 0; i < n; i++ {
		d.step(tokens[i], tags[i])
	}
	d.flush()
	return d.out
}

// splitTag returns the tag kind ('B', 'I', 'E', 'S', or 'O') and the
// category it carries. Unknown shapes are treated as O.
func splitTag(tag string) (byte, string) {
	if tag == TagOutside || len(tag) < 2 || tag[1] != '-' {
		return 'O', ""
	}
	switch tag[0] {
	case 'B', 'I', 'E', 'S':
		return tag[0], tag[2:]
	}
	return 'O', ""
}
