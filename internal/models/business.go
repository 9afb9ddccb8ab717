package models

import "time"

// Business is a hiring company's profile.
type Business struct {
	ID            string    `bson:"_id,omitempty" json:"id"`
	User          string    `bson:"user" json:"user"`
	Company       string    `bson:"company" json:"company"`
	ContactName   string    `bson:"contactName" json:"contactName"`
	ContactRole   string    `bson:"contactRole,omitempty" json:"contactRole,omitempty"`
	Email         string    `bson:"email,omitempty" json:"email,omitempty"`
	Phone         string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Bio           string    `bson:"bio,omitempty" json:"bio,omitempty"`
	Website       string    `bson:"website,omitempty" json:"website,omitempty"`
	Linkedin      string    `bson:"linkedin,omitempty" json:"linkedin,omitempty"`
	Industry      string    `bson:"industry,omitempty" json:"industry,omitempty"`
	CompanySize   string    `bson:"companySize,omitempty" json:"companySize,omitempty"`
	EmployeeCount int       `bson:"employeeCount,omitempty" json:"employeeCount,omitempty"`
	Location      *Location `bson:"location,omitempty" json:"location,omitempty"`
	Avatar        string    `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Specialties   []string  `bson:"specialties,omitempty" json:"specialties"`
	Invisible     bool      `bson:"invisible" json:"invisible"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DisplayName prefers the company name over the contact person.
func (b *Business) DisplayName() string {
	if b == nil {
		return ""
	}
	if b.Company != "" {
		return b.Company
	}
	return b.ContactName
}
