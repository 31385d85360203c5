// Package atis infers active runways from the free-text ATIS broadcast
// of a controlled airport. The text is normalized to bare uppercase
// words, then matched against a fixed bank of phrase templates, each
// containing a parameterised runway-ident sub-pattern.
package atis

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// identExpr captures up to three runway idents ("26L", "27 RIGHT",
// "09") joined by AND/OR in one phrase.
const identExpr = `(\d{2}(?:[LRC]|\s(?:LEFT|RIGHT|CENTER))?)(?:\s(?:(?:AND|OR)\s)?(\d{2}(?:[LRC]|\s(?:LEFT|RIGHT|CENTER))?))?(?:\s(?:(?:AND|OR)\s)?(\d{2}(?:[LRC]|\s(?:LEFT|RIGHT|CENTER))?))?`

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	specialRe     = regexp.MustCompile(`[^A-Z0-9\s]`)
	collapseNumRe = regexp.MustCompile(`(\d)\s+(\d)`)

	upper = cases.Upper(language.Und)

	// The "IN USE" phrases appear in both banks: a runway mentioned
	// that way serves arrivals and departures alike.
	arrivalExprs = compileBank([]string{
		`(?:(?:APPROACH|ARRIVAL|LANDING|LDG)\s)+(?:RUNWAY|RWY)S?\s` + identExpr,
		`(?:RUNWAY|RWY)S?\s` + identExpr + `\sFOR\s(?:ARRIVAL|LANDING|LDG|APPROACH)`,
		`(?:RUNWAY|RWY)S?\s` + identExpr + `\sIN\sUSE`,
		`(?:RUNWAY|RWY)S?\sIN\sUSE\s` + identExpr,
		`(?:APPROACH|ARRIVAL|LANDING|LDG)\sAND\s(?:TAKEOFF|DEPARTURE|DEPARTING|DEP)\s(?:RUNWAY|RWY)S?\s` + identExpr,
	})

	departureExprs = compileBank([]string{
		`(?:TAKEOFF|DEPARTURE|DEPARTING|DEP)\s(?:RUNWAY|RWY)S?\s` + identExpr,
		`(?:RUNWAY|RWY)S?\s` + identExpr + `\sFOR\s(?:TAKEOFF|DEPARTURE|DEP)`,
		`(?:RUNWAY|RWY)S?\s` + identExpr + `\sIN\sUSE`,
		`(?:RUNWAY|RWY)S?\sIN\sUSE\s` + identExpr,
		`(?:APPROACH|ARRIVAL|LANDING|LDG)\sAND\s(?:TAKEOFF|DEPARTURE|DEPARTING|DEP)\s(?:RUNWAY|RWY)S?\s` + identExpr,
	})
)

func compileBank(exprs []string) []*regexp.Regexp {
	bank := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		bank = append(bank, regexp.MustCompile(expr))
	}
	return bank
}

// NormalizeIdent strips whitespace from a captured runway ident, keeps
// at most the first three characters, and maps the spelled-out side
// words to their single letters: "01 CENTER" becomes "01C".
func NormalizeIdent(ident string) string {
	ident = strings.NewReplacer("LEFT", "L", "RIGHT", "R", "CENTER", "C").Replace(ident)
	ident = whitespaceRe.ReplaceAllString(ident, "")
	if len(ident) > 3 {
		return ident[:3]
	}
	return ident
}

// NormalizeText uppercases the ATIS text, strips anything outside
// [A-Z0-9 ], and collapses whitespace. With collapseNums set, digit
// pairs separated by spaces are joined so voice callouts like
// "2 6 L" become "26 L"; a trailing side letter stays a separate word.
func NormalizeText(text string, collapseNums bool) string {
	text = upper.String(text)
	text = specialRe.ReplaceAllString(text, "")
	text = whitespaceRe.ReplaceAllString(text, " ")
	if collapseNums {
		text = collapseNumRe.ReplaceAllString(text, "$1$2")
	}
	return strings.TrimSpace(text)
}

func detect(normalized string, bank []*regexp.Regexp) []string {
	seen := make(map[string]bool)
	var idents []string
	if normalized == "" {
		return idents
	}
	for _, expr := range bank {
		groups := expr.FindStringSubmatch(normalized)
		for i := 1; i < len(groups); i++ {
			if groups[i] == "" {
				continue
			}
			ident := NormalizeIdent(groups[i])
			if !seen[ident] {
				seen[ident] = true
				idents = append(idents, ident)
			}
		}
	}
	return idents
}

// DetectArrivals returns the runway idents the normalized ATIS text
// designates for landing.
func DetectArrivals(normalized string) []string {
	return detect(normalized, arrivalExprs)
}

// DetectDepartures returns the runway idents the normalized ATIS text
// designates for takeoff.
func DetectDepartures(normalized string) []string {
	return detect(normalized, departureExprs)
}
