package verification

import (
	"context"
	"fmt"

	"github.com/gustsr/sentinela/user"
)

// DuplicateRisk classifies how dangerous a CPF-hash collision across users
// looks, per spec.md §4.2's duplicate-detection rule.
type DuplicateRisk string

const (
	RiskNone   DuplicateRisk = "none"
	RiskLow    DuplicateRisk = "low"
	RiskMedium DuplicateRisk = "medium"
	RiskHigh   DuplicateRisk = "high"
)

// DuplicateReport is DuplicateService's verdict for one CPF hash.
type DuplicateReport struct {
	Risk          DuplicateRisk
	ConflictUsers []string
}

// DuplicateService looks up existing users sharing a CPF hash. It depends on
// user.Repository rather than the concrete store, so verification never
// imports store directly (spec.md §9's cyclic-import note).
type DuplicateService struct {
	users user.Repository
}

// NewDuplicateService builds a DuplicateService.
func NewDuplicateService(users user.Repository) *DuplicateService {
	return &DuplicateService{users: users}
}

// Check reports any users other than excludeUserID already registered under
// cpfHash, and a risk tier derived from how many there are.
func (d *DuplicateService) Check(ctx context.Context, cpfHash, excludeUserID string) (DuplicateReport, error) {
	matches, err := d.users.FindByCPFHash(ctx, cpfHash)
	if err != nil {
		return DuplicateReport{}, fmt.Errorf("verification: duplicate check: %w", err)
	}

	var conflicts []string
	for _, u := range matches {
		if u.ID == excludeUserID {
			continue
		}
		conflicts = append(conflicts, u.ID)
	}

	return DuplicateReport{Risk: classifyRisk(len(conflicts)), ConflictUsers: conflicts}, nil
}

func classifyRisk(conflicts int) DuplicateRisk {
	switch {
	case conflicts == 0:
		return RiskNone
	case conflicts == 1:
		return RiskLow
	case conflicts <= 3:
		return RiskMedium
	default:
		return RiskHigh
	}
}
