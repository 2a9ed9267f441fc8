// Package interpret turns free-form model replies into typed clinical
// fields. Every function here is pure and safe for concurrent use; malformed
// input degrades to documented defaults instead of failing.
package interpret

import (
	"regexp"
	"strings"
)

// Section names a labeled subdivision of a model reply.
type Section string

const (
	SectionShortDescription      Section = "SHORT_DESCRIPTION"
	SectionMainRisk              Section = "MAIN_RISK"
	SectionHowToFix              Section = "HOW_TO_FIX"
	SectionReportSummary         Section = "REPORT_SUMMARY"
	SectionCauses                Section = "CAUSES"
	SectionOverallRisk           Section = "OVERALL_RISK"
	SectionRecommendedSpecialist Section = "RECOMMENDED_SPECIALIST"
	SectionFindingsJSON          Section = "FINDINGS_JSON"
	SectionMedicationsJSON       Section = "MEDICATIONS_JSON"
	SectionMatchedCondition      Section = "MATCHED_CONDITION"
	SectionAIAnalysis            Section = "AI_ANALYSIS"
)

// Label lists the tokens that may introduce a section, in priority order.
// Tokens ending in ")" are ordinals ("1)") and must start a line; every other
// token is a name matched case-insensitively as "<name>:" anywhere.
type Label struct {
	Section Section
	Tokens  []string
}

// DefaultLabels is the label table used by Extract.
var DefaultLabels = []Label{
	{Section: SectionShortDescription, Tokens: []string{"SHORT_DESCRIPTION", "1)"}},
	{Section: SectionMainRisk, Tokens: []string{"MAIN_RISK", "2)"}},
	{Section: SectionHowToFix, Tokens: []string{"HOW_TO_FIX", "3)"}},
	{Section: SectionReportSummary, Tokens: []string{"REPORT_SUMMARY", "4)"}},
	{Section: SectionCauses, Tokens: []string{"CAUSES", "5)"}},
	{Section: SectionOverallRisk, Tokens: []string{"OVERALL_RISK"}},
	{Section: SectionRecommendedSpecialist, Tokens: []string{"RECOMMENDED_SPECIALIST"}},
	{Section: SectionFindingsJSON, Tokens: []string{"FINDINGS_JSON"}},
	{Section: SectionMedicationsJSON, Tokens: []string{"MEDICATIONS_JSON"}},
	{Section: SectionMatchedCondition, Tokens: []string{"MATCHED_CONDITION"}},
	{Section: SectionAIAnalysis, Tokens: []string{"AI_ANALYSIS"}},
}

// Sections holds the sections found in one reply. Missing keys are normal.
type Sections map[Section]string

// Grammar is a compiled label table. It is read-only after construction.
type Grammar struct {
	rules    map[Section][]rule
	boundary *regexp.Regexp
}

type rule struct {
	re      *regexp.Regexp
	ordinal bool
}

// NewGrammar compiles a label table.
func NewGrammar(labels []Label) *Grammar {
	g := &Grammar{rules: make(map[Section][]rule, len(labels))}

	var names, ordinals []string
	for _, l := range labels {
		for _, tok := range l.Tokens {
			r := rule{ordinal: isOrdinal(tok)}
			if r.ordinal {
				r.re = regexp.MustCompile(`(?im)^[ \t]*` + regexp.QuoteMeta(tok) + `[ \t]*:?`)
				ordinals = append(ordinals, regexp.QuoteMeta(tok))
			} else {
				r.re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(tok) + `[ \t]*\**[ \t]*:`)
				names = append(names, regexp.QuoteMeta(tok))
			}
			g.rules[l.Section] = append(g.rules[l.Section], r)
		}
	}

	// A capture stops at a blank line or at a line that opens another label:
	// an ordinal from the table, any name from the table, or any UPPER_SNAKE
	// token, optionally behind an ordinal or markdown prefix.
	named := `[A-Z][A-Z0-9]*_[A-Z0-9_]+`
	if len(names) > 0 {
		named += `|(?i:` + strings.Join(names, "|") + `)`
	}
	starts := `(?:\d+[).][ \t]*)?(?:` + named + `)[ \t]*\**[ \t]*:`
	if len(ordinals) > 0 {
		starts = `(?:` + strings.Join(ordinals, "|") + `)|` + starts
	}
	g.boundary = regexp.MustCompile(`\n[ \t]*\n|\n[ \t]*(?:[*#]+[ \t]*)?(?:` + starts + `)`)
	return g
}

var defaultGrammar = NewGrammar(DefaultLabels)

// Extract returns the content of section s using DefaultLabels.
func Extract(text string, s Section) (string, bool) {
	return defaultGrammar.Extract(text, s)
}

// ExtractAll runs Extract for each section and keeps the ones found.
func ExtractAll(text string, sections ...Section) Sections {
	return defaultGrammar.ExtractAll(text, sections...)
}

// Extract tries each token of s in order. The first occurrence of a token
// is captured up to the next boundary; empty content falls through to the
// next token.
func (g *Grammar) Extract(text string, s Section) (string, bool) {
	for _, r := range g.rules[s] {
		loc := r.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if content := g.capture(text[loc[1]:]); content != "" {
			return content, true
		}
	}
	return "", false
}

// ExtractAll runs Extract for each section. Scans are independent, so one
// section's range may overlap another's.
func (g *Grammar) ExtractAll(text string, sections ...Section) Sections {
	out := make(Sections, len(sections))
	for _, s := range sections {
		if v, ok := g.Extract(text, s); ok {
			out[s] = v
		}
	}
	return out
}

// labelEnds lists where each named label of s ends, in token order and then
// text order.
func (g *Grammar) labelEnds(text string, s Section) []int {
	var ends []int
	for _, r := range g.rules[s] {
		if r.ordinal {
			continue
		}
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			ends = append(ends, loc[1])
		}
	}
	return ends
}

func (g *Grammar) capture(rest string) string {
	if end := g.boundary.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	content := strings.TrimSpace(rest)
	content = strings.TrimSpace(strings.TrimPrefix(content, "**"))
	return content
}

func isOrdinal(tok string) bool {
	return strings.HasSuffix(tok, ")")
}
