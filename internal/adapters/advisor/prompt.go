package advisor

import (
	"strings"
)

// Texts shown to dashboard users.
const (
	NoCredentialText = "⚠️ Por favor, informe a API Key da Gemini para ativar o assistente."
	callFailedPrefix = "Erro ao consultar Gemini: "
)

func askPrompt(summary, question string) string {
	var b strings.Builder
	b.WriteString("Você é um assistente especialista em dados da Secretaria Municipal de Educação.\n")
	b.WriteString("Aqui está um resumo dos dados de formação continuada:\n")
	b.WriteString(strings.TrimSpace(summary))
	b.WriteString("\n\nPergunta do usuário: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nResponda de forma concisa, profissional e em português. ")
	b.WriteString("Foque em insights pedagógicos ou administrativos.")
	return b.String()
}

func classifyPrompt(eventName string, categories []string) string {
	var b strings.Builder
	b.WriteString("Classifique a formação de professores abaixo em exatamente uma das categorias a seguir.\n")
	b.WriteString("Categorias:\n")
	for _, c := range categories {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	b.WriteString("\nFormação: ")
	b.WriteString(strings.TrimSpace(eventName))
	b.WriteString("\n\nResponda somente com o nome da categoria, sem explicações.")
	return b.String()
}

// matchCategory maps a model answer onto one of categories.
// An exact case-insensitive match wins; otherwise the longest category
// mentioned in the answer is used.
func matchCategory(answer string, categories []string) (string, bool) {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(answer), " \t\n\"'`.*-:"))
	for _, c := range categories {
		if strings.ToLower(c) == cleaned {
			return c, true
		}
	}
	best := ""
	for _, c := range categories {
		if strings.Contains(cleaned, strings.ToLower(c)) && len(c) > len(best) {
			best = c
		}
	}
	return best, best != ""
}
