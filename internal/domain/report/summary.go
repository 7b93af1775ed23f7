package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/formacao/internal/domain/model"
)

const summaryTop = 5

// SummaryText renders the compact aggregate handed to the assistant.
// It never includes individual rows.
func SummaryText(records []model.TrainingRecord) string {
	m := Summarize(records)

	var b strings.Builder
	fmt.Fprintf(&b, "Total de registros: %d\n", m.Records)
	fmt.Fprintf(&b, "Total de horas somadas: %s\n", formatHours(m.TotalHours))
	fmt.Fprintf(&b, "Professores distintos: %d\n", m.People)
	fmt.Fprintf(&b, "Escolas distintas: %d\n", m.Organizations)
	fmt.Fprintf(&b, "Top %d escolas por horas: %s\n", summaryTop,
		joinGroups(TopN(records, ByOrganization, MeasureHours, summaryTop), MeasureHours))
	fmt.Fprintf(&b, "Top %d eventos por participações: %s\n", summaryTop,
		joinGroups(TopN(records, ByEvent, MeasureCount, summaryTop), MeasureCount))
	fmt.Fprintf(&b, "Média de horas por registro: %.2f\n", m.MeanHours)
	return b.String()
}

func joinGroups(groups []GroupTotal, m Measure) string {
	if len(groups) == 0 {
		return "-"
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		parts[i] = g.Group + ": " + formatHours(g.Value(m))
	}
	return strings.Join(parts, "; ")
}

func formatHours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
