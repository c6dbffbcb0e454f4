package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("tailoring.json", "tailor-resume")
	require.NoError(t, err)
	assert.Contains(t, prompt, "You are a professional resume expert")
	assert.Contains(t, prompt, "ADDITIONAL_COLLECTED_INFO:\n{{.AdditionalInfo}}")
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("tailoring.json", "nonexistent-key")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	ClearCache()

	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestMustGet_ValidPrompt(t *testing.T) {
	ClearCache()

	assert.NotPanics(t, func() {
		prompt := MustGet("tailoring.json", "json-requirements")
		assert.Contains(t, prompt, "BOTH FIELDS ARE MANDATORY")
	})
}

func TestFormat(t *testing.T) {
	template := "Hello {{.Name}}, welcome to {{.Company}}!"
	data := map[string]string{
		"Name":    "Alice",
		"Company": "Acme Corp",
	}

	result := Format(template, data)
	assert.Equal(t, "Hello Alice, welcome to Acme Corp!", result)
}

func TestFormat_NoPlaceholders(t *testing.T) {
	template := "No placeholders here"
	data := map[string]string{"Key": "Value"}

	result := Format(template, data)
	assert.Equal(t, template, result)
}

func TestFormat_EmptyData(t *testing.T) {
	template := "Hello {{.Name}}"

	result := Format(template, map[string]string{})
	assert.Equal(t, template, result) // Placeholder remains
}

func TestFormat_ValuesAreNotReexpanded(t *testing.T) {
	template := "A={{.A}} B={{.B}}"
	data := map[string]string{
		"A": "{{.B}}",
		"B": "bee",
	}

	assert.Equal(t, "A={{.B}} B=bee", Format(template, data))
}

func TestPlaceholders(t *testing.T) {
	template := "{{.Zeta}} {{.Alpha}} {{.Alpha}} {{.Mid}}"

	assert.Equal(t, []string{"Alpha", "Mid", "Zeta"}, Placeholders(template, nil))
	assert.Equal(t, []string{"Zeta"}, Placeholders(template, map[string]string{"Alpha": "", "Mid": "x"}))
}

func TestRender_TailoringPrompt(t *testing.T) {
	ClearCache()

	data := map[string]string{
		"RecruiterFeedback": "feedback",
		"OriginalResume":    "original",
		"FullResume":        "full",
		"AdditionalInfo":    "",
		"JobDescription":    "jd",
		"CompanyStrategy":   "strategy",
		"OutputFormat":      "{}",
	}

	prompt, err := Render("tailoring.json", "tailor-resume", data)
	require.NoError(t, err)
	assert.Contains(t, prompt, "FULL_RESUME:\nfull\n")
	assert.Contains(t, prompt, "ADDITIONAL_COLLECTED_INFO:\n\n")
	assert.NotContains(t, prompt, "{{.")
}

func TestRender_MissingValue(t *testing.T) {
	ClearCache()

	_, err := Render("tailoring.json", "tailor-resume", map[string]string{"FullResume": "full"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing values for")
	assert.Contains(t, err.Error(), "JobDescription")
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("tailoring.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"json-requirements", "tailor-resume"}, keys)
}

func TestCaching(t *testing.T) {
	ClearCache()

	prompt1, err := Get("tailoring.json", "tailor-resume")
	require.NoError(t, err)

	prompt2, err := Get("tailoring.json", "tailor-resume")
	require.NoError(t, err)

	assert.Equal(t, prompt1, prompt2)
}
