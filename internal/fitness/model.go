package fitness

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"medo-shield/internal/fallback"
	"medo-shield/internal/interpret"
)

// Metrics is one day of wearable data. Clients send either camelCase or
// snake_case keys; responses use snake_case.
type Metrics struct {
	Date            string   `json:"date"`
	BMI             *float64 `json:"bmi"`
	StressLevel     *float64 `json:"stress_level"`
	WalkingDistance *float64 `json:"walking_distance"`
	HeartRate       *float64 `json:"heart_rate"`
	SleepHours      *float64 `json:"sleep_hours"`
	Notes           string   `json:"notes"`
}

func (m *Metrics) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*m = Metrics{
		Date:            interpret.StringField(raw, "date"),
		BMI:             pick(raw, "bmi"),
		StressLevel:     pick(raw, "stressLevel", "stress_level"),
		WalkingDistance: pick(raw, "walkingDistance", "walking_distance"),
		HeartRate:       pick(raw, "heartRate", "heart_rate"),
		SleepHours:      pick(raw, "sleepHours", "sleep_hours"),
		Notes:           interpret.StringField(raw, "notes"),
	}
	return nil
}

func pick(raw map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		if v, ok := interpret.FloatField(raw, k); ok {
			return &v
		}
	}
	return nil
}

type Record struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	Date            string    `json:"date"`
	BMI             *float64  `json:"bmi"`
	StressLevel     *float64  `json:"stress_level"`
	WalkingDistance *float64  `json:"walking_distance"`
	HeartRate       *float64  `json:"heart_rate"`
	SleepHours      *float64  `json:"sleep_hours"`
	Notes           string    `json:"notes"`
	CreatedAt       time.Time `json:"created_at"`
}

func (r *Record) Metrics() Metrics {
	return Metrics{
		Date:            r.Date,
		BMI:             r.BMI,
		StressLevel:     r.StressLevel,
		WalkingDistance: r.WalkingDistance,
		HeartRate:       r.HeartRate,
		SleepHours:      r.SleepHours,
		Notes:           r.Notes,
	}
}

type Summary struct {
	BMIAvg     float64 `json:"bmi_avg"`
	StressAvg  float64 `json:"stress_avg"`
	SleepAvg   float64 `json:"sleep_avg"`
	WalkingAvg float64 `json:"walking_avg"`
}

// Summarize averages each metric over all days; a missing value counts as
// zero. Averages are rounded to one decimal.
func Summarize(days []Metrics) Summary {
	if len(days) == 0 {
		return Summary{}
	}
	var s Summary
	for _, d := range days {
		s.BMIAvg += value(d.BMI)
		s.StressAvg += value(d.StressLevel)
		s.SleepAvg += value(d.SleepHours)
		s.WalkingAvg += value(d.WalkingDistance)
	}
	n := float64(len(days))
	return Summary{
		BMIAvg:     round1(s.BMIAvg / n),
		StressAvg:  round1(s.StressAvg / n),
		SleepAvg:   round1(s.SleepAvg / n),
		WalkingAvg: round1(s.WalkingAvg / n),
	}
}

type Analysis struct {
	ID             uuid.UUID                `json:"id"`
	PatientID      uuid.UUID                `json:"patient_id"`
	DataPoints     int                      `json:"data_points"`
	Result         fallback.FitnessAnalysis `json:"analysis_result"`
	MetricsSummary Summary                  `json:"metrics_summary"`
	Source         string                   `json:"source"`
	CreatedAt      time.Time                `json:"created_at"`
}

func value(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func format(f *float64) string {
	if f == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
