package study

import "fmt"

// Eligibility is the eligibility_struct of a record. The inclusion and
// exclusion lists are segmented from Criteria on first use.
type Eligibility struct {
	StudyPop          string `json:"study_pop,omitempty"`
	SamplingMethod    string `json:"sampling_method,omitempty"`
	Criteria          string `json:"criteria,omitempty"`
	Gender            string `json:"gender"`
	GenderBased       bool   `json:"gender_based"`
	GenderDescription string `json:"gender_description,omitempty"`
	MinimumAge        string `json:"minimum_age"`
	MaximumAge        string `json:"maximum_age"`
	HealthyVolunteers string `json:"healthy_volunteers,omitempty"`

	segmented *Criteria
}

func newEligibility(f Fragment) (*Eligibility, error) {
	genderBased, err := YesNo(f.Get("gender_based"))
	if err != nil {
		return nil, fmt.Errorf("eligibility.gender_based: %w", err)
	}
	return &Eligibility{
		StudyPop:          NormalizeText(f.String("study_pop.textblock", "")),
		SamplingMethod:    f.String("sampling_method", ""),
		Criteria:          f.String("criteria.textblock", ""),
		Gender:            f.String("gender", ""),
		GenderBased:       genderBased,
		GenderDescription: f.String("gender_description", ""),
		MinimumAge:        f.String("minimum_age", ""),
		MaximumAge:        f.String("maximum_age", ""),
		HealthyVolunteers: f.String("healthy_volunteers", ""),
	}, nil
}

func (e *Eligibility) criteria() *Criteria {
	if e.segmented == nil {
		c := SegmentCriteria(e.Criteria)
		e.segmented = &c
	}
	return e.segmented
}

// InclusionCriteria returns the inclusion bullet groups.
func (e *Eligibility) InclusionCriteria() []string {
	return e.criteria().Inclusion
}

// ExclusionCriteria returns the exclusion bullet groups.
func (e *Eligibility) ExclusionCriteria() []string {
	return e.criteria().Exclusion
}
