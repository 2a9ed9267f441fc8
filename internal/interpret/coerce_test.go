package interpret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoerceRisk(t *testing.T) {
	cases := []struct {
		in        string
		want      RiskLevel
		defaulted bool
	}{
		{"High", RiskHigh, false},
		{"  critical  ", RiskCritical, false},
		{"**Low**", RiskLow, false},
		{"medium.", RiskMedium, false},
		{"Normal\nThe values look fine.", RiskNormal, false},
		{"Severe", RiskNormal, true},
		{"", RiskNormal, true},
		{"High risk of stroke", RiskNormal, true},
	}
	for _, tc := range cases {
		got := CoerceRisk(tc.in)
		assert.Equal(t, tc.want, got.Value, tc.in)
		assert.Equal(t, tc.defaulted, got.Defaulted, tc.in)
	}
}

func TestCoerceRisk_AlwaysInVocabulary(t *testing.T) {
	inputs := []string{"", "\x00", "Severe", "HIGH", "[]", "Critical!!!", "ok", "\n\n", "低い"}
	for _, in := range inputs {
		assert.True(t, CoerceRisk(in).Value.Valid(), in)
	}
}

func TestCoerceSpecialist(t *testing.T) {
	assert.Equal(t, Cardiologist, CoerceSpecialist("cardiologist").Value)
	assert.Equal(t, GeneralPractitioner, CoerceSpecialist("general   practitioner").Value)
	assert.False(t, CoerceSpecialist("Neurologist").Defaulted)

	got := CoerceSpecialist("Witch doctor")
	assert.Equal(t, DefaultSpecialist, got.Value)
	assert.True(t, got.Defaulted)

	got = CoerceSpecialist("")
	assert.Equal(t, DefaultSpecialist, got.Value)
	assert.True(t, got.Defaulted)
}

func TestCoerceFindings(t *testing.T) {
	findings := CoerceFindings(structuredReply)

	require.Len(t, findings, 1)
	assert.Equal(t, Finding{
		TestName:    "LDL",
		Value:       "162",
		NormalRange: "<130",
		Status:      "High",
		Note:        "borderline",
	}, findings[0])
}

func TestCoerceFindings_DropsNonObjects(t *testing.T) {
	text := `FINDINGS_JSON: [{"test_name":"HbA1c","value":"6.1%"}, "stray", 42, null, {"test_name":"TSH","status":true}]`

	findings := CoerceFindings(text)

	require.Len(t, findings, 2)
	assert.Equal(t, "HbA1c", findings[0].TestName)
	assert.Equal(t, "6.1%", findings[0].Value)
	assert.Equal(t, "TSH", findings[1].TestName)
	assert.Equal(t, "true", findings[1].Status)
}

func TestCoerceFindings_CodeFenceAndTrailingText(t *testing.T) {
	text := "FINDINGS_JSON:\n```json\n[{\"test_name\":\"Glucose\",\"value\":98}]\n```\nThat is all."

	findings := CoerceFindings(text)

	require.Len(t, findings, 1)
	assert.Equal(t, "98", findings[0].Value)
}

func TestCoerceFindings_SkipsEchoedLabel(t *testing.T) {
	text := "8) FINDINGS_JSON: see below\nOVERALL_RISK: High\nFINDINGS_JSON: [{\"test_name\":\"LDL\"}]"

	findings := CoerceFindings(text)

	require.Len(t, findings, 1)
	assert.Equal(t, "LDL", findings[0].TestName)
}

func TestCoerceFindings_NeverNil(t *testing.T) {
	inputs := []string{
		"",
		"FINDINGS_JSON: []",
		"FINDINGS_JSON: not applicable",
		"FINDINGS_JSON: {\"test_name\":\"x\"}",
		"FINDINGS_JSON: [{\"test_name\": ",
		"no marker [{\"test_name\":\"x\"}]",
		"FINDINGS_JSON: [1, 2, 3]",
	}
	for _, in := range inputs {
		got := CoerceFindings(in)
		assert.NotNil(t, got, in)
		assert.Empty(t, got, in)
	}
}

func TestDecodeObject(t *testing.T) {
	obj, ok := DecodeObject("```json\n{\"summary\": \"ok\", \"score\": 7}\n```")
	require.True(t, ok)
	assert.Equal(t, "ok", StringField(obj, "summary"))
	score, ok := FloatField(obj, "score")
	assert.True(t, ok)
	assert.Equal(t, 7.0, score)

	_, ok = DecodeObject("no json here")
	assert.False(t, ok)
	_, ok = DecodeObject("{broken")
	assert.False(t, ok)
}

func TestStringsField(t *testing.T) {
	obj := map[string]any{"items": []any{"a", " ", "b", map[string]any{"x": 1}}}

	assert.Equal(t, []string{"a", "b"}, StringsField(obj, "items"))
	assert.Nil(t, StringsField(obj, "missing"))
}
