package draw

import "strings"

type Club struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoRef string `json:"logo"`
}

// ClubPatch carries the editable fields of a club, nil means unchanged
type ClubPatch struct {
	Name    *string
	LogoRef *string
}

func (p ClubPatch) apply(c Club) (Club, error) {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return c, validationError("club name is required")
		}
		c.Name = name
	}
	if p.LogoRef != nil {
		c.LogoRef = *p.LogoRef
	}
	return c, nil
}
