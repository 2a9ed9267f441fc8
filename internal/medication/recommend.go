package medication

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medo-shield/internal/agent"
	"medo-shield/internal/fallback"
	"medo-shield/internal/interpret"
	"medo-shield/internal/patient"
)

const (
	RecommendationSourceAI    = "ai"
	RecommendationSourceRules = "rules"
)

type Recommendation struct {
	ID               uuid.UUID    `json:"id"`
	PatientID        uuid.UUID    `json:"patient_id"`
	Symptoms         string       `json:"symptoms"`
	Age              int          `json:"age"`
	MatchedCondition string       `json:"matched_condition"`
	AIAnalysis       string       `json:"ai_analysis"`
	Source           string       `json:"source"`
	Medications      []Medication `json:"medications"`
	CreatedBy        uuid.UUID    `json:"created_by"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Recommender proposes over-the-counter medications for a symptom list,
// asking the model first and falling back to the keyword rules.
type Recommender struct {
	gen      agent.Generator
	payloads *fallback.Payloads
	log      zerolog.Logger
}

func NewRecommender(gen agent.Generator, payloads *fallback.Payloads, log zerolog.Logger) *Recommender {
	return &Recommender{gen: gen, payloads: payloads, log: log}
}

func recommendPrompt(symptoms string, age int, p *patient.Patient, conditions []string) string {
	var b strings.Builder
	b.WriteString("You are a pharmacist assistant. Suggest safe over-the-counter options for the symptoms below. Do not diagnose.\n\n")
	fmt.Fprintf(&b, "Symptoms: %s\n", symptoms)
	if age > 0 {
		fmt.Fprintf(&b, "Age: %d\n", age)
	}
	if len(conditions) > 0 {
		fmt.Fprintf(&b, "Known conditions: %s\n", strings.Join(conditions, ", "))
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(&b, "Allergies: %s\n", strings.Join(p.Allergies, ", "))
	}
	if len(p.CurrentMedications) > 0 {
		fmt.Fprintf(&b, "Current medications: %s\n", strings.Join(p.CurrentMedications, ", "))
	}
	b.WriteString(`
Reply using these exact labels:
MATCHED_CONDITION: <short condition name>
AI_ANALYSIS: <2-3 sentences, plain language>
MEDICATIONS_JSON: a JSON array of objects with keys name, dosage, frequency, max_daily, confidence (0-1). Use frequencies like "once daily", "twice daily", "every 6 hours". Output [] if nothing is appropriate.`)
	return b.String()
}

// Recommend never fails: an unavailable or unparseable model reply falls
// back to the rule table.
func (r *Recommender) Recommend(ctx context.Context, symptoms string, age int, p *patient.Patient, conditions []string) Recommendation {
	rec := Recommendation{PatientID: p.ID, Symptoms: symptoms, Age: age}

	text, err := r.gen.Generate(ctx, recommendPrompt(symptoms, age, p, conditions))
	if err == nil {
		var meds []Medication
		for _, obj := range interpret.DecodeObjectArray(text, interpret.SectionMedicationsJSON) {
			if m, ok := FromRaw(obj); ok {
				meds = append(meds, m)
			}
		}
		condition, _ := interpret.Extract(text, interpret.SectionMatchedCondition)
		if len(meds) > 0 || condition != "" {
			rec.Source = RecommendationSourceAI
			rec.MatchedCondition = condition
			rec.AIAnalysis, _ = interpret.Extract(text, interpret.SectionAIAnalysis)
			rec.Medications = withoutAllergens(meds, p.Allergies)
			return rec
		}
		r.log.Warn().Str("patient_id", p.ID.String()).Msg("recommendation reply had no usable sections, using rules")
	} else {
		r.log.Warn().Err(err).Msg("ai unavailable, using fallback")
	}

	return r.fromRules(rec, p)
}

func (r *Recommender) fromRules(rec Recommendation, p *patient.Patient) Recommendation {
	rec.Source = RecommendationSourceRules
	cond, ok := r.payloads.MatchCondition(rec.Symptoms)
	if !ok {
		rec.MatchedCondition = r.payloads.Medication.UnmatchedCondition
		rec.AIAnalysis = r.payloads.Medication.UnmatchedAnalysis
		rec.Medications = []Medication{}
		return rec
	}

	rec.MatchedCondition = cond.Condition
	rec.AIAnalysis = cond.Analysis
	meds := make([]Medication, 0, len(cond.Medications))
	for _, rule := range cond.Medications {
		// unknown age (0) does not filter
		if rec.Age > 0 && rec.Age < rule.MinAge {
			continue
		}
		meds = append(meds, normalize(Medication{
			Name:       rule.Name,
			Dosage:     rule.Dosage,
			Frequency:  rule.Frequency,
			MaxDaily:   rule.MaxDaily,
			Confidence: rule.Confidence,
		}))
	}
	rec.Medications = withoutAllergens(meds, p.Allergies)
	return rec
}

func withoutAllergens(meds []Medication, allergies []string) []Medication {
	out := make([]Medication, 0, len(meds))
	for _, m := range meds {
		name := strings.ToLower(m.Name)
		skip := false
		for _, a := range allergies {
			a = strings.ToLower(strings.TrimSpace(a))
			if a != "" && strings.Contains(name, a) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, m)
		}
	}
	return out
}
