package dot

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/matzehuels/knowmap/pkg/kgraph"
)

// LineBreak is the DOT escape sequence inserted between wrapped label lines.
const LineBreak = `\n`

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)

// Escape makes s safe to embed between double quotes in DOT source.
// Backslashes and quotes are escaped and raw line breaks become \n and \r
// sequences, so distinct inputs always yield distinct output.
func Escape(s string) string {
	return escaper.Replace(s)
}

// WrapText wraps s into a DOT label of roughly width characters per line.
//
// Words are separated by single spaces. After each word the running count
// grows by the word's length; once it exceeds width a [LineBreak] is inserted
// and the count restarts at zero, otherwise a space is appended and counted.
// The break therefore falls after the word that overflows the line, and the
// last word always carries a trailing separator:
//
//	WrapText("Linear Algebra Fundamentals", 12) == `Linear Algebra\nFundamentals `
//
// Words are escaped with [Escape] after being measured, so the result can be
// embedded directly in a quoted DOT attribute. A width <= 0 disables wrapping.
func WrapText(s string, width int) string {
	var b strings.Builder
	count := 0
	for _, word := range strings.Split(s, " ") {
		b.WriteString(Escape(word))
		count += utf8.RuneCountInString(word)
		if width > 0 && count > width {
			b.WriteString(LineBreak)
			count = 0
		} else {
			b.WriteByte(' ')
			count++
		}
	}
	return b.String()
}

type labelKey struct {
	id    string
	width int
}

// Labeler memoizes wrapped node labels. A label is computed once per node id
// and width and reused by every later serialization.
//
// Entries are keyed by id only, so a Labeler must not outlive the graph
// snapshot its labels were taken from. Labeler is safe for concurrent use.
type Labeler struct {
	mu     sync.Mutex
	labels map[labelKey]string
}

// NewLabeler returns an empty Labeler.
func NewLabeler() *Labeler {
	return &Labeler{labels: make(map[labelKey]string)}
}

// Label returns the escaped, wrapped display title of n.
func (l *Labeler) Label(n *kgraph.Node, width int) string {
	k := labelKey{n.ID, width}
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.labels[k]; ok {
		return s
	}
	s := WrapText(n.DisplayTitle(), width)
	l.labels[k] = s
	return s
}

// Len returns the number of memoized labels.
func (l *Labeler) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.labels)
}
