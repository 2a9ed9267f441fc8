package fallback

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed payloads.yaml
var raw []byte

type ChatRule struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply"`
}

type Chatbot struct {
	Rules        []ChatRule `yaml:"rules"`
	DefaultReply string     `yaml:"default_reply"`
}

type Report struct {
	DefaultRecommendations []string `yaml:"default_recommendations"`
	Template               string   `yaml:"template"`
}

type FitnessRecommendation struct {
	Category string `yaml:"category" json:"category"`
	Status   string `yaml:"status" json:"status"`
	Message  string `yaml:"message" json:"message"`
}

type Fitness struct {
	Summary         string                  `yaml:"summary"`
	OverallStatus   string                  `yaml:"overall_status"`
	Recommendations []FitnessRecommendation `yaml:"recommendations"`
	ActionPlan      []string                `yaml:"action_plan"`
	WeeklyGoals     map[string]string       `yaml:"weekly_goals"`
}

type MedicationRule struct {
	Name       string  `yaml:"name"`
	Dosage     string  `yaml:"dosage"`
	Frequency  string  `yaml:"frequency"`
	MaxDaily   string  `yaml:"max_daily"`
	MinAge     int     `yaml:"min_age"`
	Confidence float64 `yaml:"confidence"`
}

type Condition struct {
	Condition   string           `yaml:"condition"`
	Keywords    []string         `yaml:"keywords"`
	Analysis    string           `yaml:"analysis"`
	Medications []MedicationRule `yaml:"medications"`
}

type Medication struct {
	UnmatchedCondition string      `yaml:"unmatched_condition"`
	UnmatchedAnalysis  string      `yaml:"unmatched_analysis"`
	Conditions         []Condition `yaml:"conditions"`
}

// Payloads is the read-only table of answers used when the model is
// unavailable.
type Payloads struct {
	PDFAnalysis string     `yaml:"pdf_analysis"`
	PDFNoText   string     `yaml:"pdf_no_text"`
	Disclaimer  string     `yaml:"disclaimer"`
	Chatbot     Chatbot    `yaml:"chatbot"`
	Report      Report     `yaml:"report"`
	Fitness     Fitness    `yaml:"fitness"`
	Medication  Medication `yaml:"medication"`

	templates map[string]*template.Template
}

var (
	once    sync.Once
	loaded  *Payloads
	loadErr error
)

// Get returns the embedded payloads, parsing them on first use. A malformed
// embedded file is a build defect, so it panics.
func Get() *Payloads {
	once.Do(func() {
		loaded, loadErr = Parse(raw)
	})
	if loadErr != nil {
		panic(fmt.Sprintf("fallback payloads: %v", loadErr))
	}
	return loaded
}

// Parse decodes a payload document and compiles its templates.
func Parse(data []byte) (*Payloads, error) {
	p := &Payloads{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode payloads: %w", err)
	}
	if strings.TrimSpace(p.PDFAnalysis) == "" || strings.TrimSpace(p.Chatbot.DefaultReply) == "" {
		return nil, fmt.Errorf("payloads missing pdf_analysis or chatbot default_reply")
	}

	p.templates = map[string]*template.Template{}
	add := func(name, text string) error {
		t, err := template.New(name).Option("missingkey=zero").Parse(text)
		if err != nil {
			return fmt.Errorf("template %s: %w", name, err)
		}
		p.templates[name] = t
		return nil
	}
	if err := add("report", p.Report.Template); err != nil {
		return nil, err
	}
	for i, r := range p.Chatbot.Rules {
		if err := add(fmt.Sprintf("chat.%d", i), r.Reply); err != nil {
			return nil, err
		}
	}
	for i, r := range p.Fitness.Recommendations {
		if err := add(fmt.Sprintf("fitness.rec.%d", i), r.Message); err != nil {
			return nil, err
		}
	}
	for k, v := range p.Fitness.WeeklyGoals {
		if err := add("fitness.goal."+k, v); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Payloads) render(name string, data any) string {
	t, ok := p.templates[name]
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return ""
	}
	return buf.String()
}

type ChatContext struct {
	LowRisk bool
}

// ChatReply picks the first rule whose keyword occurs in message.
func (p *Payloads) ChatReply(message string, data ChatContext) string {
	lower := strings.ToLower(message)
	for i, r := range p.Chatbot.Rules {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return p.render(fmt.Sprintf("chat.%d", i), data)
			}
		}
	}
	return p.Chatbot.DefaultReply
}

type ReportData struct {
	ReportType      string
	PatientName     string
	Generated       string
	KeyFindings     []string
	Recommendations []string
}

func (p *Payloads) RenderReport(data ReportData) string {
	return strings.TrimSpace(p.render("report", data))
}

type FitnessData struct {
	BMI     string
	Stress  string
	Sleep   string
	Walking string
}

type FitnessAnalysis struct {
	Summary         string                  `json:"summary"`
	OverallStatus   string                  `json:"overallStatus"`
	Recommendations []FitnessRecommendation `json:"recommendations"`
	ActionPlan      []string                `json:"actionPlan"`
	WeeklyGoals     map[string]string       `json:"weeklyGoals"`
}

func (p *Payloads) RenderFitness(data FitnessData) FitnessAnalysis {
	out := FitnessAnalysis{
		Summary:       p.Fitness.Summary,
		OverallStatus: p.Fitness.OverallStatus,
		ActionPlan:    append([]string(nil), p.Fitness.ActionPlan...),
		WeeklyGoals:   make(map[string]string, len(p.Fitness.WeeklyGoals)),
	}
	for i, r := range p.Fitness.Recommendations {
		r.Message = p.render(fmt.Sprintf("fitness.rec.%d", i), data)
		out.Recommendations = append(out.Recommendations, r)
	}
	for k := range p.Fitness.WeeklyGoals {
		out.WeeklyGoals[k] = p.render("fitness.goal."+k, data)
	}
	return out
}

// MatchCondition returns the first condition with a keyword in symptoms.
func (p *Payloads) MatchCondition(symptoms string) (Condition, bool) {
	lower := strings.ToLower(symptoms)
	for _, c := range p.Medication.Conditions {
		for _, kw := range c.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return c, true
			}
		}
	}
	return Condition{}, false
}
