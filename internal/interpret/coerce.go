package interpret

import (
	"strings"
)

// RiskLevel is the closed risk vocabulary.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskNormal   RiskLevel = "Normal"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// RiskLevels lists every accepted risk level.
var RiskLevels = []RiskLevel{RiskLow, RiskNormal, RiskMedium, RiskHigh, RiskCritical}

// DefaultRisk replaces any risk text outside RiskLevels.
const DefaultRisk = RiskNormal

// Valid reports whether r belongs to the vocabulary.
func (r RiskLevel) Valid() bool {
	for _, v := range RiskLevels {
		if v == r {
			return true
		}
	}
	return false
}

// Specialist is the closed specialty vocabulary.
type Specialist string

const (
	Neurologist         Specialist = "Neurologist"
	Physiotherapist     Specialist = "Physiotherapist"
	Cardiologist        Specialist = "Cardiologist"
	Therapist           Specialist = "Therapist"
	Psychiatrist        Specialist = "Psychiatrist"
	Dermatologist       Specialist = "Dermatologist"
	GeneralPractitioner Specialist = "General Practitioner"
	Orthopedist         Specialist = "Orthopedist"
	Pulmonologist       Specialist = "Pulmonologist"
	Gastroenterologist  Specialist = "Gastroenterologist"
	Endocrinologist     Specialist = "Endocrinologist"
)

// Specialists lists every accepted specialty.
var Specialists = []Specialist{
	Neurologist, Physiotherapist, Cardiologist, Therapist, Psychiatrist,
	Dermatologist, GeneralPractitioner, Orthopedist, Pulmonologist,
	Gastroenterologist, Endocrinologist,
}

// DefaultSpecialist replaces unknown or missing specialty text.
const DefaultSpecialist = GeneralPractitioner

// Field is a coerced value. Defaulted is set when the value came from the
// vocabulary default rather than from the input text.
type Field[T any] struct {
	Value     T
	Defaulted bool
}

// CoerceRisk maps text onto RiskLevels, falling back to DefaultRisk.
func CoerceRisk(text string) Field[RiskLevel] {
	return matchVocabulary(text, RiskLevels, DefaultRisk)
}

// CoerceSpecialist maps text onto Specialists, falling back to
// DefaultSpecialist.
func CoerceSpecialist(text string) Field[Specialist] {
	return matchVocabulary(text, Specialists, DefaultSpecialist)
}

func matchVocabulary[T ~string](text string, vocab []T, def T) Field[T] {
	token := normalizeToken(text)
	if token == "" {
		return Field[T]{Value: def, Defaulted: true}
	}
	for _, v := range vocab {
		if strings.EqualFold(token, string(v)) {
			return Field[T]{Value: v}
		}
	}
	return Field[T]{Value: def, Defaulted: true}
}

// normalizeToken keeps the first non-empty line, strips markdown emphasis,
// quotes and trailing punctuation, and collapses inner whitespace.
func normalizeToken(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(line, " \t\r*_\"'`.:;,")
		if line != "" {
			return strings.Join(strings.Fields(line), " ")
		}
	}
	return ""
}

// Finding is one lab or test result reported by the model.
type Finding struct {
	TestName    string `json:"test_name"`
	Value       string `json:"value"`
	NormalRange string `json:"normal_range"`
	Status      string `json:"status"`
	Note        string `json:"note"`
}

// CoerceFindings decodes the JSON array after the FINDINGS_JSON label.
// The result is never nil; anything unparsable yields an empty list.
func CoerceFindings(text string) []Finding {
	objects := DecodeObjectArray(text, SectionFindingsJSON)
	findings := make([]Finding, 0, len(objects))
	for _, obj := range objects {
		findings = append(findings, Finding{
			TestName:    StringField(obj, "test_name"),
			Value:       StringField(obj, "value"),
			NormalRange: StringField(obj, "normal_range"),
			Status:      StringField(obj, "status"),
			Note:        StringField(obj, "note"),
		})
	}
	return findings
}
