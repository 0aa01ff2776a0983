package survey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullPayload() map[string]any {
	return map[string]any{
		"1. Qual é o seu primeiro nome?":                                            "Maria",
		"2. Deixe seu melhor e-mail":                                                "maria@example.com",
		"3. Há quanto tempo você trabalha como programador?":                        "Trabalho como programador há mais de 1 ano",
		"4. Você já domina alguma linguagem de programação?":                        "Sim, domino bem pelo menos uma linguagem",
		"5. Qual o seu Nível de Inglês?":                                            "Avançado",
		"6. Você já fez alguma entrevista internacional?":                           "Já fiz algumas vezes",
		"7. Como você se sente em relação a trabalhar para empresas internacionais?": "Estou muito motivado, é meu objetivo principal",
		"8. Qual é a sua faixa salarial?":                                           "R$ 6.000 ou mais",
		"9. Como eu posso te ajudar com o Bootcamp Dev na Gringa?":                  "Quero mentoria",
		"form_id":      "frm_1",
		"form_name":    "Pesquisa Obrigado",
		"Data Enviada": "2025-03-10 14:30:00",
	}
}

func TestParsePayload(t *testing.T) {
	input, err := ParsePayload(fullPayload())
	require.NoError(t, err)

	assert.Equal(t, "maria@example.com", input.Email)
	assert.Equal(t, "Maria", input.FirstName)
	assert.Equal(t, "Trabalho como programador há mais de 1 ano", input.Experience)
	assert.Equal(t, "Avançado", input.EnglishLevel)
	assert.Equal(t, "Quero mentoria", input.HelpText)
	assert.Equal(t, "frm_1", input.FormID)
	assert.Equal(t, "Pesquisa Obrigado", input.FormName)
	assert.NotEmpty(t, input.RawBodyJSON)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC), input.SubmittedAt)
}

func TestParsePayloadUnwrapsBody(t *testing.T) {
	payload := map[string]any{"body": fullPayload()}
	input, err := ParsePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", input.Email)
}

func TestParsePayloadMissingRequiredField(t *testing.T) {
	payload := fullPayload()
	delete(payload, "2. Deixe seu melhor e-mail")

	_, err := ParsePayload(payload)
	require.Error(t, err)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "2. Deixe seu melhor e-mail", missing.Label)
}

func TestParsePayloadMatchesMangledKeys(t *testing.T) {
	payload := fullPayload()
	// form builders drop accents and punctuation; matching is fold-insensitive
	delete(payload, "5. Qual o seu Nível de Inglês?")
	payload["5 Qual o seu nivel de ingles"] = "Intermediário"

	input, err := ParsePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "Intermediário", input.EnglishLevel)
}

func TestParsePayloadFallbackKeys(t *testing.T) {
	payload := map[string]any{
		"email":                     "jose@example.com",
		"experience":                "6 meses",
		"languageSkill":             "Ainda estou aprendendo",
		"englishLevel":              "Básico",
		"hasInternationalInterview": "Seria minha primeira vez",
		"internationalInterest":     "Curioso",
		"salaryRange":               "Abaixo de R$ 2.000",
	}

	input, err := ParsePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "jose@example.com", input.Email)
	assert.Equal(t, "6 meses", input.Experience)
}

func TestParsePayloadHelpTextDefault(t *testing.T) {
	payload := fullPayload()
	delete(payload, "9. Como eu posso te ajudar com o Bootcamp Dev na Gringa?")

	input, err := ParsePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "Sem observações", input.HelpText)
}

func TestParsePayloadAlternateHelpTextLabel(t *testing.T) {
	payload := fullPayload()
	delete(payload, "9. Como eu posso te ajudar com o Bootcamp Dev na Gringa?")
	payload["Como eu posso te ajudar com o Bootcamp Dev na Gringa?"] = "Sem numeração"

	input, err := ParsePayload(payload)
	require.NoError(t, err)
	assert.Equal(t, "Sem numeração", input.HelpText)
}

func TestParseSentDateLayouts(t *testing.T) {
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		parseSentDate("2025-03-10"))
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		parseSentDate("10/03/2025"))
	assert.True(t, parseSentDate("not a date").IsZero())
	assert.True(t, parseSentDate("").IsZero())
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t,
		normalizeKey("5. Qual o seu Nível de Inglês?"),
		normalizeKey("5 Qual o seu nivel de ingles"),
	)
}
