package pipeline

import (
	"strings"

	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

// FilterIncoming keeps the records sent to watched whose token name or symbol contains term.
// Matching is a case-insensitive substring test over "<name> <symbol>", so MONKEY matches KEY.
// Input order is preserved.
func FilterIncoming(records []domain.TransferRecord, watched, term string) []domain.TransferRecord {
	watched = domain.NormalizeAddress(watched)
	term = strings.ToUpper(term)

	matches := make([]domain.TransferRecord, 0, len(records))
	for _, r := range records {
		if domain.NormalizeAddress(r.To) != watched {
			continue
		}

		label := strings.ToUpper(r.TokenName + " " + r.TokenSymbol)
		if !strings.Contains(label, term) {
			continue
		}

		matches = append(matches, r)
	}

	return matches
}
