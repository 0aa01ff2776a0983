package survey

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Input is a normalized survey submission ready for persistence.
type Input struct {
	Email                     string
	FirstName                 string
	Experience                string
	LanguageSkill             string
	EnglishLevel              string
	HasInternationalInterview string
	InternationalInterest     string
	SalaryRange               string
	HelpText                  string
	TestEmail                 string
	FormID                    string
	FormName                  string
	RawBodyJSON               string
	SubmittedAt               time.Time
}

// MissingFieldError names the required survey field a payload lacked.
type MissingFieldError struct {
	Label string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required survey field: %s", e.Label)
}

// Form-builder labels as they arrive in webhook payloads. Each logical field
// has an ordered candidate list; the first non-empty match wins, compared
// after accent-stripping and case folding on both sides.
var (
	labelFirstName  = []string{"1. Qual é o seu primeiro nome?"}
	labelEmail      = []string{"2. Deixe seu melhor e-mail"}
	labelExperience = []string{"3. Há quanto tempo você trabalha como programador?"}
	labelLanguage   = []string{"4. Você já domina alguma linguagem de programação?"}
	labelEnglish    = []string{"5. Qual o seu Nível de Inglês?"}
	labelInterview  = []string{"6. Você já fez alguma entrevista internacional?"}
	labelInterest   = []string{"7. Como você se sente em relação a trabalhar para empresas internacionais?"}
	labelSalary     = []string{"8. Qual é a sua faixa salarial?"}
	labelHelpText   = []string{
		"9. Como eu posso te ajudar com o Bootcamp Dev na Gringa?",
		"Como eu posso te ajudar com o Bootcamp Dev na Gringa?",
	}
	labelTestEmail = []string{"E-mail (teste)"}
	labelFormID    = []string{"form_id"}
	labelFormName  = []string{"form_name"}
	labelSentDate  = []string{"Data Enviada"}
)

// ParsePayload extracts a survey Input from a raw webhook payload. Payloads
// sometimes nest the answers under a "body" object; that is unwrapped first.
func ParsePayload(payload map[string]any) (Input, error) {
	source := payload
	if nested, ok := payload["body"].(map[string]any); ok {
		source = nested
	}

	email, err := requireField(source, labelEmail, "email")
	if err != nil {
		return Input{}, err
	}
	experience, err := requireField(source, labelExperience, "experience")
	if err != nil {
		return Input{}, err
	}
	languageSkill, err := requireField(source, labelLanguage, "languageSkill")
	if err != nil {
		return Input{}, err
	}
	englishLevel, err := requireField(source, labelEnglish, "englishLevel")
	if err != nil {
		return Input{}, err
	}
	interview, err := requireField(source, labelInterview, "hasInternationalInterview")
	if err != nil {
		return Input{}, err
	}
	interest, err := requireField(source, labelInterest, "internationalInterest")
	if err != nil {
		return Input{}, err
	}
	salaryRange, err := requireField(source, labelSalary, "salaryRange")
	if err != nil {
		return Input{}, err
	}

	helpText := optionalField(source, labelHelpText, "helpText")
	if helpText == "" {
		helpText = "Sem observações"
	}

	return Input{
		Email:                     email,
		FirstName:                 optionalField(source, labelFirstName, "firstName"),
		Experience:                experience,
		LanguageSkill:             languageSkill,
		EnglishLevel:              englishLevel,
		HasInternationalInterview: interview,
		InternationalInterest:     interest,
		SalaryRange:               salaryRange,
		HelpText:                  helpText,
		TestEmail:                 optionalField(source, labelTestEmail, "testEmail"),
		FormID:                    optionalField(source, labelFormID, "formId"),
		FormName:                  optionalField(source, labelFormName, "formName"),
		RawBodyJSON:               marshalSafe(source),
		SubmittedAt:               parseSentDate(optionalField(source, labelSentDate, "sentDate")),
	}, nil
}

func requireField(payload map[string]any, labels []string, fallbackKey string) (string, error) {
	if v := optionalField(payload, labels, fallbackKey); v != "" {
		return v, nil
	}
	return "", &MissingFieldError{Label: labels[0]}
}

func optionalField(payload map[string]any, labels []string, fallbackKey string) string {
	for _, label := range labels {
		if v := stringValue(payload[label]); v != "" {
			return v
		}
		if v := lookupNormalized(payload, label); v != "" {
			return v
		}
	}
	return stringValue(payload[fallbackKey])
}

// lookupNormalized scans the payload for a key that matches the label after
// key folding, covering form builders that mangle accents or punctuation.
func lookupNormalized(payload map[string]any, label string) string {
	target := normalizeKey(label)
	for key, value := range payload {
		if normalizeKey(key) != target {
			continue
		}
		if v := stringValue(value); v != "" {
			return v
		}
	}
	return ""
}

var stripAccents = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

func normalizeKey(input string) string {
	folded, _, err := transform.String(stripAccents, input)
	if err != nil {
		folded = input
	}
	folded = strings.ToLower(folded)
	var b strings.Builder
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stringValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func marshalSafe(payload map[string]any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(raw)
}

func parseSentDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
