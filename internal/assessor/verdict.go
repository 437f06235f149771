package assessor

import (
	"strings"

	"personashield/internal/domain"
)

// ParseVerdict reads the model output: the first non-empty line is the
// yes/no answer, everything after it is the explanation.
func ParseVerdict(output string) (domain.RiskVerdict, string) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	first := strings.ToLower(strings.TrimSpace(lines[0]))
	details := strings.TrimSpace(strings.Join(lines[1:], "\n"))

	// Models sometimes decorate the answer ("**Yes**", "no.").
	first = strings.Trim(first, " *'\".:`")

	switch first {
	case "yes":
		return domain.VerdictRisky, details
	case "no":
		return domain.VerdictClear, details
	default:
		return domain.VerdictUnknown, strings.TrimSpace(output)
	}
}
