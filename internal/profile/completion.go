// Package profile measures how complete VA and business profiles are and
// gates messaging on it.
package profile

import (
	"math"
	"strings"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
)

// GateThreshold is the completion percentage required to start conversations.
const GateThreshold = 80

// MinVABioLength is the shortest bio accepted on VA profiles.
const MinVABioLength = 100

// Completion is the outcome of a completeness check.
type Completion struct {
	Percentage    int      `json:"percentage"`
	Completed     int      `json:"completed"`
	Total         int      `json:"total"`
	MissingFields []string `json:"missingFields"`
}

// Requirement documents one weighted field.
type Requirement struct {
	Field  string `json:"field"`
	Weight int    `json:"weight"`
	Rule   string `json:"rule"`
}

type check struct {
	Requirement
	ok func() bool
}

func evaluate(checks []check) Completion {
	c := Completion{MissingFields: []string{}}
	for _, ch := range checks {
		c.Total += ch.Weight
		if ch.ok() {
			c.Completed += ch.Weight
		} else {
			c.MissingFields = append(c.MissingFields, ch.Field)
		}
	}
	if c.Total > 0 {
		c.Percentage = int(math.Round(float64(c.Completed) / float64(c.Total) * 100))
	}
	return c
}

func filled(s string) bool { return strings.TrimSpace(s) != "" }

func longer(s string, n int) bool { return len([]rune(strings.TrimSpace(s))) > n }

func atLeast(s string, n int) bool { return len([]rune(strings.TrimSpace(s))) >= n }

func vaChecks(va *models.VA, accountEmail string) []check {
	return []check{
		{Requirement{"name", 10, "longer than 2 characters and not the e-mail prefix"}, func() bool {
			name := strings.TrimSpace(va.Name)
			local := models.EmailLocalPart(va.Email)
			if accountEmail != "" {
				local = models.EmailLocalPart(accountEmail)
			}
			return longer(name, 2) && !strings.EqualFold(name, local)
		}},
		{Requirement{"hero", 10, "longer than 10 characters"}, func() bool { return longer(va.Hero, 10) }},
		{Requirement{"bio", 15, "at least 100 characters"}, func() bool { return atLeast(va.Bio, MinVABioLength) }},
		{Requirement{"location", 10, "city and province or state"}, func() bool { return va.Location.HasCityAndRegion() }},
		{Requirement{"email", 10, "valid e-mail address"}, func() bool { return strings.Contains(va.Email, "@") }},
		{Requirement{"specialties", 15, "at least one specialty"}, func() bool { return len(va.Specialties) > 0 }},
		{Requirement{"roleType", 5, "at least one role type"}, func() bool { return va.RoleType.Any() }},
		{Requirement{"roleLevel", 5, "at least one role level"}, func() bool { return va.RoleLevel.Any() }},
		{Requirement{"hourlyRate", 10, "min and max rate set, max not below min"}, func() bool {
			return va.PreferredMinRate > 0 && va.PreferredMaxRate > 0 && va.PreferredMaxRate >= va.PreferredMinRate
		}},
		{Requirement{"phone", 5, "at least 10 characters"}, func() bool { return atLeast(va.Phone, 10) }},
		{Requirement{"onlinePresence", 5, "website or LinkedIn"}, func() bool { return filled(va.Website) || filled(va.Linkedin) }},
		{Requirement{"discAssessment", 10, "DISC questionnaire completed"}, func() bool { return va.DISC != nil && va.DISC.PrimaryType != "" }},
	}
}

func businessChecks(b *models.Business) []check {
	return []check{
		{Requirement{"contactName", 15, "longer than 2 characters"}, func() bool { return longer(b.ContactName, 2) }},
		{Requirement{"company", 15, "longer than 2 characters"}, func() bool { return longer(b.Company, 2) }},
		{Requirement{"bio", 15, "at least 50 characters"}, func() bool { return atLeast(b.Bio, 50) }},
		{Requirement{"email", 10, "valid e-mail address"}, func() bool { return strings.Contains(b.Email, "@") }},
		{Requirement{"phone", 10, "at least 10 characters"}, func() bool { return atLeast(b.Phone, 10) }},
		{Requirement{"industry", 10, "industry selected"}, func() bool { return filled(b.Industry) }},
		{Requirement{"employeeCount", 5, "greater than 0"}, func() bool { return b.EmployeeCount > 0 }},
		{Requirement{"website", 10, "company website"}, func() bool { return filled(b.Website) }},
		{Requirement{"location", 10, "city and province or state"}, func() bool { return b.Location.HasCityAndRegion() }},
	}
}

// VA scores a VA profile. accountEmail, when set, is the owning user's address
// and is used to reject names that merely repeat the e-mail prefix.
func VA(va *models.VA, accountEmail string) Completion {
	if va == nil {
		va = &models.VA{}
	}
	return evaluate(vaChecks(va, accountEmail))
}

// Business scores a business profile.
func Business(b *models.Business) Completion {
	if b == nil {
		b = &models.Business{}
	}
	return evaluate(businessChecks(b))
}

// CanMessage reports whether the completion passes the messaging gate.
func CanMessage(c Completion) bool { return CanMessageAt(c, GateThreshold) }

// CanMessageAt applies a custom threshold.
func CanMessageAt(c Completion, threshold int) bool { return c.Percentage >= threshold }

// ToPercent100 normalises a stored completion value: values up to 1 are fractions.
func ToPercent100(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	if v <= 1 {
		v *= 100
	}
	return int(math.Max(0, math.Min(100, math.Round(v))))
}

// Requirements lists the weighted fields for both profile kinds.
func Requirements() map[string]interface{} {
	reqs := func(checks []check) []Requirement {
		out := make([]Requirement, len(checks))
		for i, c := range checks {
			out[i] = c.Requirement
		}
		return out
	}
	return map[string]interface{}{
		"threshold": GateThreshold,
		"va":        reqs(vaChecks(&models.VA{}, "")),
		"business":  reqs(businessChecks(&models.Business{})),
	}
}

// ValidateVABio enforces the minimum VA bio length.
func ValidateVABio(bio string) bool { return atLeast(bio, MinVABioLength) }
