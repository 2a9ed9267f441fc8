package medication

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/interpret"
)

// TimeSlot is a wall-clock "HH:MM" reminder time.
type TimeSlot string

var slotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func (t TimeSlot) Valid() bool {
	return slotPattern.MatchString(string(t))
}

const (
	SourceManual = "Manual"
	SourceAI     = "AI Recommendation"
)

const (
	defaultDosage    = "As prescribed"
	defaultFrequency = "once daily"
	defaultMaxDaily  = "Follow medical advice"
)

type Medication struct {
	Name         string     `json:"name"`
	Dosage       string     `json:"dosage"`
	Frequency    string     `json:"frequency"`
	TimeSlots    []TimeSlot `json:"time_slots"`
	Instructions string     `json:"instructions"`
	MaxDaily     string     `json:"max_daily"`
	Confidence   float64    `json:"confidence"`
	Active       bool       `json:"active"`
}

// Reminder is a patient's medication schedule. At most one per patient is
// active and it is updated in place.
type Reminder struct {
	ID               uuid.UUID    `json:"id"`
	PatientID        uuid.UUID    `json:"patient_id"`
	Medications      []Medication `json:"medications"`
	IsActive         bool         `json:"is_active"`
	AdherenceRate    float64      `json:"adherence_rate"`
	AutoGenerated    bool         `json:"auto_generated"`
	GenerationSource string       `json:"generation_source"`
	LastTaken        *time.Time   `json:"last_taken"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Find returns the medication with the given name, ignoring case.
func (r *Reminder) Find(name string) (Medication, bool) {
	for _, m := range r.Medications {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Medication{}, false
}

// DosesPerDay counts the slots of active medications.
func (r *Reminder) DosesPerDay() int {
	n := 0
	for _, m := range r.Medications {
		if m.Active {
			n += len(m.TimeSlots)
		}
	}
	return n
}

// normalize fills defaults and time slots. Slots given explicitly are kept
// (deduplicated and ordered); otherwise they come from the frequency.
func normalize(m Medication) Medication {
	m.Name = strings.TrimSpace(m.Name)
	m.Dosage = strings.TrimSpace(m.Dosage)
	m.Frequency = strings.TrimSpace(m.Frequency)
	if m.Dosage == "" {
		m.Dosage = defaultDosage
	}
	if m.Frequency == "" {
		m.Frequency = defaultFrequency
	}
	if strings.TrimSpace(m.Instructions) == "" {
		m.Instructions = fmt.Sprintf("Take %s %s", m.Dosage, m.Frequency)
	}
	if strings.TrimSpace(m.MaxDaily) == "" {
		m.MaxDaily = defaultMaxDaily
	}
	if len(m.TimeSlots) == 0 {
		m.TimeSlots = ExpandFrequency(m.Frequency)
	} else {
		m.TimeSlots = orderSlots(m.TimeSlots)
	}
	m.Active = true
	return m
}

func (m Medication) Validate() error {
	if m.Name == "" {
		return errors.New("medication name is required")
	}
	if len(m.TimeSlots) == 0 {
		return fmt.Errorf("medication %q has no time slots", m.Name)
	}
	for _, s := range m.TimeSlots {
		if !s.Valid() {
			return fmt.Errorf("medication %q has invalid time slot %q", m.Name, s)
		}
	}
	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("medication %q confidence %v out of range", m.Name, m.Confidence)
	}
	return nil
}

func (r *Reminder) Validate() error {
	if r.PatientID == uuid.Nil {
		return errors.New("reminder patient id is required")
	}
	for _, m := range r.Medications {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// FromRaw coerces one model-produced medication object. Objects without a
// name are rejected. Confidence may be a fraction or a percentage.
func FromRaw(obj map[string]any) (Medication, bool) {
	name := interpret.StringField(obj, "name")
	if name == "" {
		return Medication{}, false
	}
	m := Medication{
		Name:      name,
		Dosage:    interpret.StringField(obj, "dosage"),
		Frequency: interpret.StringField(obj, "frequency"),
		MaxDaily:  interpret.StringField(obj, "max_daily"),
	}
	if c, ok := interpret.FloatField(obj, "confidence"); ok {
		if c > 1 {
			c /= 100
		}
		if c >= 0 && c <= 1 {
			m.Confidence = c
		}
	}
	return normalize(m), true
}
