package models

import "github.com/google/uuid"

type College struct {
	Base
	Name string `gorm:"not null" json:"name"`

	// Relationships
	Domains       []CollegeDomain `gorm:"foreignKey:CollegeID" json:"domains,omitempty"`
	Users         []User          `gorm:"foreignKey:CollegeID" json:"-"`
	Organizations []Organization  `gorm:"foreignKey:CollegeID" json:"-"`
}

func (College) TableName() string {
	return "colleges"
}

// DomainNames returns the college's email domains.
func (c *College) DomainNames() []string {
	out := make([]string, len(c.Domains))
	for i, d := range c.Domains {
		out[i] = d.Domain
	}
	return out
}

// CollegeDomain is one entry of a college's email domain set.
// Domains are stored lower-case and map to at most one college.
type CollegeDomain struct {
	Base
	CollegeID uuid.UUID `gorm:"type:uuid;index;not null" json:"college_id"`
	Domain    string    `gorm:"uniqueIndex;not null" json:"domain"`

	College *College `gorm:"foreignKey:CollegeID;constraint:OnDelete:CASCADE" json:"-"`
}

func (CollegeDomain) TableName() string {
	return "college_domains"
}
