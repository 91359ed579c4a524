// Package postprocess cleans completion output before it reaches the
// user: filler phrases are stripped, whitespace is normalized, and
// rambling answers are cut at a word budget. Clean is a pure function and
// runs on every successful completion.
package postprocess

import (
	"regexp"
	"strings"
)

// MaxWords is the hard ceiling on answer length.
const MaxWords = 250

// terminatorWindow is how far back from a cut point a sentence terminator
// is considered close enough to trim to.
const terminatorWindow = 50

// fillerPhrases are assistant-speak openers the dashboard never wants to
// show. Matched case-insensitively, with any trailing punctuation.
var fillerPhrases = []string{
	"sure thing",
	"certainly",
	"great question",
	"good question",
	"absolutely",
	"i'd be happy to help",
	"i'm happy to help",
	"as an ai",
	"according to the provided context",
	"based on the provided context",
	"according to",
	"i hope this helps",
}

var fillerRes = compileFillers()

func compileFillers() []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(fillerPhrases))
	for i, p := range fillerPhrases {
		res[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(p) + `\b[,.!:;]*`)
	}
	return res
}

var spaceRuns = regexp.MustCompile(`\s+`)

// Clean strips filler, collapses whitespace, and enforces the word budget.
func Clean(text string) string {
	for _, re := range fillerRes {
		text = re.ReplaceAllString(text, " ")
	}
	text = strings.TrimSpace(spaceRuns.ReplaceAllString(text, " "))

	words := strings.Fields(text)
	if len(words) <= MaxWords {
		return text
	}
	cut := strings.Join(words[:MaxWords], " ")
	if i := lastTerminator(cut); i >= 0 && len(cut)-i <= terminatorWindow {
		return cut[:i+1]
	}
	return cut
}

// lastTerminator returns the index of the last sentence terminator in s,
// or -1.
func lastTerminator(s string) int {
	return strings.LastIndexAny(s, ".!?")
}
