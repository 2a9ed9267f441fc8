package consultation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medo-shield/internal/agent"
	"medo-shield/internal/assessment"
	"medo-shield/internal/fallback"
	"medo-shield/internal/interpret"
	"medo-shield/internal/patient"
	"medo-shield/internal/platform/apierr"
)

const (
	historyTurns      = 20
	historyLimit      = 50
	maxMessageChars   = 4000
	maxMedicalHistory = 500

	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// RiskSource gives the newest assessments first.
type RiskSource interface {
	Latest(ctx context.Context, patientID uuid.UUID, limit int) ([]assessment.Assessment, error)
}

type Service interface {
	Reply(ctx context.Context, p *patient.Patient, message string, history []Turn) (*Reply, error)
	History(ctx context.Context, patientID uuid.UUID) ([]Message, error)
}

type service struct {
	repo     Repository
	gen      agent.Generator
	risks    RiskSource
	payloads *fallback.Payloads
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, gen agent.Generator, risks RiskSource, payloads *fallback.Payloads, log zerolog.Logger) Service {
	return &service{
		repo:     repo,
		gen:      gen,
		risks:    risks,
		payloads: payloads,
		log:      log,
		now:      time.Now,
	}
}

// Reply answers one chat message. The model is asked to end its reply with a
// specialty tag, which is split off before the reply is stored.
func (s *service) Reply(ctx context.Context, p *patient.Patient, message string, history []Turn) (*Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apierr.BadRequest("invalid_request", "message is required")
	}
	if len([]rune(message)) > maxMessageChars {
		return nil, apierr.BadRequest("invalid_request", fmt.Sprintf("message is longer than %d characters", maxMessageChars))
	}

	var latest *assessment.Assessment
	recent, err := s.risks.Latest(ctx, p.ID, 1)
	if err != nil {
		s.log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("latest assessment unavailable")
	} else if len(recent) > 0 {
		latest = &recent[0]
	}

	source := SourceAI
	text, err := s.gen.Generate(ctx, chatPrompt(p, latest, message, history))
	if err != nil {
		s.log.Warn().Err(err).Str("patient_id", p.ID.String()).Msg("ai unavailable, using fallback")
		source = SourceFallback
		lowRisk := latest != nil && latest.DiseaseRiskLevel == interpret.RiskLow
		text = s.payloads.ChatReply(message, fallback.ChatContext{LowRisk: lowRisk})
	}

	clean, specialty, ok := interpret.SplitSuggestedSpecialty(strings.TrimSpace(text))
	out := &Reply{
		PatientID:         p.ID,
		UserMessage:       message,
		AssistantResponse: clean,
		Source:            source,
		Timestamp:         s.now().UTC(),
	}
	if ok {
		out.SuggestedSpecialty = &specialty
	}

	exchange := uuid.New()
	err = s.repo.Append(ctx,
		Message{
			ID:         uuid.New(),
			PatientID:  p.ID,
			ExchangeID: exchange,
			Role:       RoleUser,
			Content:    message,
			CreatedAt:  out.Timestamp,
		},
		Message{
			ID:                 uuid.New(),
			PatientID:          p.ID,
			ExchangeID:         exchange,
			Role:               RoleAssistant,
			Content:            clean,
			SuggestedSpecialty: out.SuggestedSpecialty,
			CreatedAt:          out.Timestamp,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("store chat exchange: %w", err)
	}
	return out, nil
}

func (s *service) History(ctx context.Context, patientID uuid.UUID) ([]Message, error) {
	return s.repo.Recent(ctx, patientID, historyLimit)
}

func chatPrompt(p *patient.Patient, latest *assessment.Assessment, message string, history []Turn) string {
	var conv strings.Builder
	if len(history) > historyTurns {
		history = history[len(history)-historyTurns:]
	}
	for _, t := range history {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		label := "User"
		if strings.EqualFold(t.Role, string(RoleAssistant)) {
			label = "Assistant"
		}
		fmt.Fprintf(&conv, "%s: %s\n", label, content)
	}
	turns := "User message: " + message
	if conv.Len() > 0 {
		turns = "Previous conversation:\n" + conv.String() + "\nLatest user message: " + message
	}

	profile := map[string]any{
		"first_name":      p.FirstName,
		"last_name":       p.LastName,
		"medical_history": truncate(p.MedicalHistory, maxMedicalHistory),
		"date_of_birth":   p.DateOfBirth,
	}
	profileJSON, _ := json.Marshal(profile)
	risk := "None"
	if latest != nil {
		if b, err := json.Marshal(latest); err == nil {
			risk = string(b)
		}
	}

	names := make([]string, len(interpret.Specialists))
	for i, sp := range interpret.Specialists {
		names[i] = string(sp)
	}

	return fmt.Sprintf(`You are a friendly, conversational AI health assistant (like a trained nurse). Your job is to:
1. TALK LIKE A HUMAN: Ask follow-up questions when needed ("What happened?", "When did it start?", "Where do you feel it?"). Have a short back-and-forth to understand the problem before giving advice.
2. ANALYZE what the user tells you and give clear, kind, educational advice. Do not diagnose; suggest seeing a doctor when appropriate.
3. When the concern clearly points to a specialist, say so and at the very end add exactly: [SUGGESTED_SPECIALTY: SpecialtyName]
   Only suggest ONE specialist. Use exactly one of: %s.
4. Keep replies concise (2-4 short paragraphs). End by asking if they have more questions or by suggesting they book an appointment if needed.

Patient context (for personalization only): %s
Latest risk: %s

%s

Respond as the Assistant.`,
		strings.Join(names, ", "), profileJSON, risk, turns)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
