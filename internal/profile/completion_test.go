package profile

import (
	"strings"
	"testing"

	"github.com/linkage-va-hub/linkage/backend/go-services/internal/models"
	"github.com/stretchr/testify/require"
)

func completeVA() *models.VA {
	return &models.VA{
		Name:             "Maria Santos",
		Hero:             "Detail-driven ecommerce assistant",
		Bio:              strings.Repeat("b", 100),
		Location:         &models.Location{City: "Davao City", Province: "Davao del Sur"},
		Email:            "maria@example.com",
		Specialties:      []string{"Customer Support"},
		RoleType:         models.RoleType{PartTimeContract: true},
		RoleLevel:        models.RoleLevel{Mid: true},
		PreferredMinRate: 5,
		PreferredMaxRate: 8,
		Phone:            "+639171234567",
		Linkedin:         "https://linkedin.com/in/maria",
		DISC:             &models.DISCAssessment{PrimaryType: "S"},
	}
}

func TestVA_Complete(t *testing.T) {
	c := VA(completeVA(), "")
	require.Equal(t, 110, c.Total)
	require.Equal(t, 110, c.Completed)
	require.Equal(t, 100, c.Percentage)
	require.Empty(t, c.MissingFields)
	require.True(t, CanMessage(c))
}

func TestVA_MissingFields(t *testing.T) {
	va := completeVA()
	va.Bio = strings.Repeat("b", 99)
	va.DISC = nil
	va.PreferredMaxRate = 4
	c := VA(va, "")
	require.Equal(t, 75, c.Completed)
	require.Equal(t, 68, c.Percentage) // 75/110 = 68.18
	require.ElementsMatch(t, []string{"bio", "discAssessment", "hourlyRate"}, c.MissingFields)
	require.False(t, CanMessage(c))
}

func TestVA_NameEqualToEmailPrefix(t *testing.T) {
	va := completeVA()
	va.Name = "maria"
	require.Contains(t, VA(va, "").MissingFields, "name")
	va.Name = "Ma"
	require.Contains(t, VA(va, "").MissingFields, "name")
	va.Name = "jsmith"
	require.Contains(t, VA(va, "jsmith@corp.com").MissingFields, "name")
}

func TestVA_Nil(t *testing.T) {
	c := VA(nil, "")
	require.Equal(t, 0, c.Percentage)
	require.Len(t, c.MissingFields, 12)
}

func TestBusiness(t *testing.T) {
	b := &models.Business{
		ContactName:   "John Reyes",
		Company:       "Acme Corp",
		Bio:           strings.Repeat("x", 50),
		Email:         "john@acme.com",
		Phone:         "0917123456",
		Industry:      "saas",
		EmployeeCount: 12,
		Website:       "https://acme.com",
		Location:      &models.Location{City: "Austin", State: "TX"},
	}
	c := Business(b)
	require.Equal(t, 100, c.Total)
	require.Equal(t, 100, c.Percentage)

	b.Website = ""
	b.EmployeeCount = 0
	b.Location = nil
	c = Business(b)
	require.Equal(t, 75, c.Percentage)
	require.False(t, CanMessage(c))
	require.True(t, CanMessageAt(c, 70))

	b.Location = &models.Location{City: "Austin", State: "TX"}
	require.True(t, CanMessage(Business(b)))
}

func TestToPercent100(t *testing.T) {
	require.Equal(t, 85, ToPercent100(0.85))
	require.Equal(t, 100, ToPercent100(1))
	require.Equal(t, 42, ToPercent100(42))
	require.Equal(t, 100, ToPercent100(250))
	require.Equal(t, 0, ToPercent100(-3))
}

func TestRequirements(t *testing.T) {
	r := Requirements()
	require.Equal(t, GateThreshold, r["threshold"])
	sum := 0
	for _, req := range r["va"].([]Requirement) {
		sum += req.Weight
	}
	require.Equal(t, 110, sum)
	sum = 0
	for _, req := range r["business"].([]Requirement) {
		sum += req.Weight
	}
	require.Equal(t, 100, sum)
}

func TestValidateVABio(t *testing.T) {
	require.False(t, ValidateVABio(strings.Repeat("a", 99)))
	require.True(t, ValidateVABio(strings.Repeat("a", 100)))
}
