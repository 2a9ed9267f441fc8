package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"medo-shield/internal/agent"
	"medo-shield/internal/fallback"
	"medo-shield/internal/interpret"
)

const maxPromptChars = 12000

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// Result is the structured reading of one medical report.
type Result struct {
	Summary               string               `json:"summary"`
	ShortDescription      string               `json:"short_description"`
	MainRisk              string               `json:"main_risk"`
	HowToFix              string               `json:"how_to_fix"`
	ReportSummary         string               `json:"report_summary"`
	Causes                string               `json:"causes"`
	OverallRisk           interpret.RiskLevel  `json:"overall_risk"`
	RecommendedSpecialist interpret.Specialist `json:"recommended_specialist"`
	Findings              []interpret.Finding  `json:"findings"`
	AIReport              string               `json:"ai_report"`
	Source                string               `json:"source"`
	Defaulted             []interpret.Section  `json:"defaulted,omitempty"`
}

type Service interface {
	Analyze(ctx context.Context, pdfData []byte) Result
}

type service struct {
	gen       agent.Generator
	extractor TextExtractor
	payloads  *fallback.Payloads
	log       zerolog.Logger
}

func NewService(gen agent.Generator, extractor TextExtractor, payloads *fallback.Payloads, log zerolog.Logger) Service {
	return &service{gen: gen, extractor: extractor, payloads: payloads, log: log}
}

func (s *service) Analyze(ctx context.Context, pdfData []byte) Result {
	text, err := s.extractor.Extract(pdfData)
	if err != nil {
		s.log.Warn().Err(err).Msg("pdf text extraction failed")
	}
	if text == "" {
		text = s.payloads.PDFNoText
	}

	reply, err := s.gen.Generate(ctx, analysisPrompt(text))
	if err != nil {
		s.log.Warn().Err(err).Msg("ai unavailable, using fallback")
		res := Compose(s.payloads.PDFAnalysis)
		res.Source = SourceFallback
		return res
	}
	res := Compose(reply)
	res.Source = SourceAI
	return res
}

// Compose extracts every section independently; a missing section only
// degrades its own field.
func Compose(reply string) Result {
	secs := interpret.ExtractAll(reply,
		interpret.SectionShortDescription,
		interpret.SectionMainRisk,
		interpret.SectionHowToFix,
		interpret.SectionReportSummary,
		interpret.SectionCauses,
		interpret.SectionOverallRisk,
		interpret.SectionRecommendedSpecialist,
	)

	res := Result{
		ShortDescription: secs[interpret.SectionShortDescription],
		MainRisk:         secs[interpret.SectionMainRisk],
		HowToFix:         secs[interpret.SectionHowToFix],
		ReportSummary:    secs[interpret.SectionReportSummary],
		Causes:           secs[interpret.SectionCauses],
		Findings:         interpret.CoerceFindings(reply),
		AIReport:         reply,
	}
	if res.ShortDescription == "" {
		res.ShortDescription = truncate(reply, 600)
		res.Defaulted = append(res.Defaulted, interpret.SectionShortDescription)
	}
	res.Summary = res.ShortDescription

	risk := interpret.CoerceRisk(secs[interpret.SectionOverallRisk])
	res.OverallRisk = risk.Value
	if risk.Defaulted {
		res.Defaulted = append(res.Defaulted, interpret.SectionOverallRisk)
	}
	spec := interpret.CoerceSpecialist(secs[interpret.SectionRecommendedSpecialist])
	res.RecommendedSpecialist = spec.Value
	if spec.Defaulted {
		res.Defaulted = append(res.Defaulted, interpret.SectionRecommendedSpecialist)
	}
	return res
}

func analysisPrompt(text string) string {
	if r := []rune(text); len(r) > maxPromptChars {
		text = string(r[:maxPromptChars]) + "..."
	}
	return fmt.Sprintf(`You are a medical report analyst. Analyze the following medical report content and respond in a structured way.

REPORT CONTENT (extracted from PDF):
%s

Provide a clear, patient-friendly analysis. Use these exact section headers in your response:

1) SHORT_DESCRIPTION: In 2-4 sentences, what is this report about and what does it say about the patient? (plain language)

2) MAIN_RISK: What is the main risk or concern from this report? (one short paragraph)

3) HOW_TO_FIX: What steps or actions are recommended to address the findings? (bullet points or short paragraph)

4) REPORT_SUMMARY: What type of report is this (e.g. blood test, imaging) and what are the key findings?

5) CAUSES: What might cause or explain these findings? (brief, non-diagnostic)

6) OVERALL_RISK: One word: Low, Normal, Medium, High, or Critical

7) RECOMMENDED_SPECIALIST: One of: %s. Otherwise write "General Practitioner".

8) FINDINGS_JSON: If you can list specific test names and values, output a JSON array of objects with keys: test_name, value, normal_range, status, note. If not applicable, output: []

After your narrative for 1-5, add a line "OVERALL_RISK: <word>" and "RECOMMENDED_SPECIALIST: <name>". Then add "FINDINGS_JSON: " followed by the JSON array only.`,
		text, specialistList())
}

func specialistList() string {
	names := make([]string, len(interpret.Specialists))
	for i, s := range interpret.Specialists {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
