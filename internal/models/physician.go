package models

type Physician struct {
	ID                    string   `json:"id"`
	FirstName             string   `json:"first_name"`
	LastName              string   `json:"last_name"`
	Initials              string   `json:"initials,omitempty"`
	EligibleCategories    []string `json:"eligible_categories"`
	PreferredCategories   []string `json:"preferred_categories,omitempty"`
	RestrictedPermissions []string `json:"restricted_permissions,omitempty"`
	FullTime              bool     `json:"full_time"`
	FTEFraction           float64  `json:"fte_fraction"`
}

func (p *Physician) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

func (p *Physician) Prefers(category string) bool {
	for _, c := range p.PreferredCategories {
		if c == category {
			return true
		}
	}
	return false
}
