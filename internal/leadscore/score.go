package leadscore

import "strings"

// Qualification buckets leads by total score.
type Qualification string

const (
	QualificationHot  Qualification = "quente"
	QualificationWarm Qualification = "morno"
	QualificationCold Qualification = "frio"
)

// Answers holds the six categorical survey answers that feed the score.
type Answers struct {
	Experience                string
	LanguageSkill             string
	EnglishLevel              string
	HasInternationalInterview string
	InternationalInterest     string
	SalaryRange               string
}

// Calculate returns the 0..100 lead score.
//
// Weight model, calibrated to total 100 points:
// experience(25) + motivation(20) + interview(20) + english(18) +
// language(10) + salary(7).
func Calculate(a Answers) int {
	score := mapExperience(a.Experience) +
		mapInternationalInterest(a.InternationalInterest) +
		mapInterview(a.HasInternationalInterview) +
		mapEnglishLevel(a.EnglishLevel) +
		mapLanguageSkill(a.LanguageSkill) +
		mapSalary(a.SalaryRange)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Qualify maps a score to its qualification band (80/40 cutoffs).
func Qualify(score int) Qualification {
	switch {
	case score >= 80:
		return QualificationHot
	case score >= 40:
		return QualificationWarm
	default:
		return QualificationCold
	}
}

func mapExperience(value string) int {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, "mais de 1 ano"):
		return 25
	case strings.Contains(v, "trabalho há 1 ano"):
		return 22
	case strings.Contains(v, "6 meses"):
		return 14
	case strings.Contains(v, "estágio"):
		return 10
	case strings.Contains(v, "nunca"):
		return 0
	default:
		return 8
	}
}

func mapLanguageSkill(value string) int {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, "domino bem"):
		return 10
	case strings.Contains(v, "ainda estou aprendendo"):
		return 7
	case strings.Contains(v, "conheço o básico"):
		return 4
	case strings.Contains(v, "começando"):
		return 2
	case strings.Contains(v, "nunca programei"):
		return 0
	default:
		return 3
	}
}

func mapEnglishLevel(value string) int {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, "avançado"), strings.Contains(v, "fluente"):
		return 18
	case strings.Contains(v, "intermediário"):
		return 12
	case strings.Contains(v, "básico"):
		return 7
	case strings.Contains(v, "iniciante"), strings.Contains(v, "não falo inglês"):
		return 0
	default:
		return 6
	}
}

func mapInterview(value string) int {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, "regularmente"):
		return 20
	case strings.Contains(v, "algumas vezes"):
		return 16
	case strings.Contains(v, "só uma vez"):
		return 13
	case strings.Contains(v, "sempre tive vontade"):
		return 8
	case strings.Contains(v, "primeira vez"):
		return 0
	default:
		return 6
	}
}

func mapInternationalInterest(value string) int {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, "muito motivado"):
		return 20
	case strings.Contains(v, "interessado"):
		return 15
	case strings.Contains(v, "curioso"):
		return 8
	case strings.Contains(v, "não tenho interesse"):
		return 0
	default:
		return 7
	}
}

func mapSalary(value string) int {
	v := strings.ToLower(value)
	switch {
	case strings.Contains(v, "abaixo"):
		return 1
	case strings.Contains(v, "6.000"), strings.Contains(v, "ou mais"):
		return 7
	case strings.Contains(v, "4.000"):
		return 5
	case strings.Contains(v, "2.000"):
		return 3
	default:
		return 2
	}
}
