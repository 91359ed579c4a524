// Package knowledge serves reference material from a directory of
// markdown documents. Documents are parsed once at load, flattened to
// plain text, and retrieved by keyword overlap with the question. There
// is no embedding store; the corpus is small enough that term scoring
// works well and keeps the agent fully offline.
package knowledge

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// Character budgets for retrieved excerpts. Technical questions get the
// larger budget; everyday questions get a tighter one so the completion
// prompt stays lean.
const (
	BudgetStandard  = 1200
	BudgetTechnical = 3000
)

// Doc is one loaded markdown document.
type Doc struct {
	Name  string // filename without extension
	Title string // first level-1 heading, or Name
	Text  string // flattened plain text

	terms map[string]int
}

// Library holds the loaded corpus.
type Library struct {
	docs []*Doc
	log  *slog.Logger
}

// Load reads every .md file under dir. A missing directory yields an
// empty library, not an error; the agent works without reference docs.
func Load(dir string, log *slog.Logger) (*Library, error) {
	if log == nil {
		log = slog.Default()
	}
	lib := &Library{log: log}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, fmt.Errorf("knowledge: read dir %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		src, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("knowledge doc unreadable", "file", e.Name(), "error", err)
			continue
		}
		doc := parseDoc(strings.TrimSuffix(e.Name(), ".md"), src)
		lib.docs = append(lib.docs, doc)
	}

	log.Debug("knowledge library loaded", "dir", dir, "docs", len(lib.docs))
	return lib, nil
}

// Len returns the number of loaded documents.
func (l *Library) Len() int { return len(l.docs) }

func parseDoc(name string, src []byte) *Doc {
	doc := &Doc{Name: name, Title: name}

	root := goldmark.DefaultParser().Parse(gmtext.NewReader(src))
	var b strings.Builder

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem:
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Heading:
			txt := string(t.Text(src))
			if t.Level == 1 && doc.Title == name {
				doc.Title = txt
			}
			b.WriteString(txt)
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(t.URL(src))
		}
		return ast.WalkContinue, nil
	})

	doc.Text = strings.TrimSpace(collapseBlank(b.String()))
	doc.terms = termCounts(doc.Title + " " + doc.Text)
	return doc
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func collapseBlank(s string) string {
	return blankRuns.ReplaceAllString(s, "\n\n")
}

var wordRe = regexp.MustCompile(`[a-z0-9][a-z0-9°-]*`)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"my": true, "i": true, "it": true, "to": true, "of": true,
	"and": true, "or": true, "in": true, "on": true, "for": true,
	"what": true, "how": true, "why": true, "do": true, "does": true,
	"should": true, "can": true, "at": true, "with": true, "be": true,
}

func termCounts(s string) map[string]int {
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		counts[w]++
	}
	return counts
}

// score is the summed corpus frequency of the query terms, with a bonus
// for terms appearing in the document title.
func (d *Doc) score(queryTerms map[string]int, titleTerms map[string]bool) float64 {
	var s float64
	for term := range queryTerms {
		if n, ok := d.terms[term]; ok {
			s += float64(n)
			if titleTerms[term] {
				s += 5
			}
		}
	}
	return s
}

// Retrieve returns excerpts relevant to query, concatenated under the
// given character budget. Returns "" when nothing in the corpus matches.
func (l *Library) Retrieve(query string, budget int) string {
	if len(l.docs) == 0 || budget <= 0 {
		return ""
	}
	queryTerms := termCounts(query)
	if len(queryTerms) == 0 {
		return ""
	}

	type scored struct {
		doc   *Doc
		score float64
	}
	var ranked []scored
	for _, d := range l.docs {
		titleTerms := make(map[string]bool)
		for t := range termCounts(d.Title) {
			titleTerms[t] = true
		}
		if s := d.score(queryTerms, titleTerms); s > 0 {
			ranked = append(ranked, scored{d, s})
		}
	}
	if len(ranked) == 0 {
		return ""
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var b strings.Builder
	for _, r := range ranked {
		if b.Len() >= budget {
			break
		}
		remaining := budget - b.Len()
		excerpt := r.doc.Text
		if len(excerpt) > remaining {
			excerpt = truncateAtBoundary(excerpt, remaining)
			if excerpt == "" {
				break
			}
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", r.doc.Title, excerpt)
	}
	return b.String()
}

// truncateAtBoundary cuts s to at most n characters, preferring a word
// boundary near the limit.
func truncateAtBoundary(s string, n int) string {
	if n < 40 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexAny(cut, " \n"); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
