package domain

// Assessment is a synthesized personality profile. Fields maps each required question to
// its evidence text; everything else the model returned that is not a reserved section lands in Extra.
type Assessment struct {
	Fields      map[string]string `json:"fields"`
	Summary     string            `json:"summary,omitempty"`
	Quotes      []string          `json:"quotes,omitempty"`
	GrowthAreas []string          `json:"growth_areas,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// PersonAssessment pairs a subject label with the provider that produced its assessment.
type PersonAssessment struct {
	PersonLabel string     `json:"person_label"`
	Provider    string     `json:"provider"`
	Assessment  Assessment `json:"assessment"`
}

// GroupDynamics is the free-form output of the aggregate call over several subjects.
type GroupDynamics struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
}
