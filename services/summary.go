package services

import (
	"github.com/glow-mdsol/clinical-trials/study"
)

// StudySummary ist die JSON-Ansicht einer Studie, wie sie API, CLI und Snapshots verwenden.
type StudySummary struct {
	NCTID         string   `json:"nct_id"`
	OrgStudyID    string   `json:"org_study_id,omitempty"`
	SecondaryIDs  []string `json:"secondary_ids"`
	NCTAliases    []string `json:"nct_aliases,omitempty"`
	BriefTitle    string   `json:"brief_title"`
	OfficialTitle string   `json:"official_title,omitempty"`
	Acronym       string   `json:"acronym,omitempty"`

	Phase           string `json:"phase"`
	StudyType       string `json:"study_type"`
	Status          string `json:"overall_status"`
	LastKnownStatus string `json:"last_known_status,omitempty"`
	WhyStopped      string `json:"why_stopped"`
	HasResults      bool   `json:"has_results"`

	BriefSummary        string `json:"brief_summary,omitempty"`
	DetailedDescription string `json:"detailed_description,omitempty"`

	Sponsor       *study.Sponsor   `json:"lead_sponsor,omitempty"`
	Collaborators []*study.Sponsor `json:"collaborators"`

	Conditions       []string            `json:"conditions"`
	Keywords         []string            `json:"keywords"`
	MeshTerms        map[string][]string `json:"mesh_terms"`
	Countries        []string            `json:"countries"`
	RemovedCountries []string            `json:"removed_countries"`
	Cities           []string            `json:"cities"`

	Enrollment            *study.Enrollment   `json:"enrollment,omitempty"`
	StartDate             *study.VariableDate `json:"start_date,omitempty"`
	PrimaryCompletionDate *study.VariableDate `json:"primary_completion_date,omitempty"`
	CompletionDate        *study.VariableDate `json:"completion_date,omitempty"`
	VerificationDate      *study.VariableDate `json:"verification_date,omitempty"`
	Trail                 *study.Trail        `json:"trail"`

	DesignInfo     *study.DesignInfo         `json:"design_info,omitempty"`
	OversightInfo  *study.OversightInfo      `json:"oversight_info,omitempty"`
	ExpandedAccess *study.ExpandedAccessInfo `json:"expanded_access_info,omitempty"`
	PatientData    *study.PatientData        `json:"patient_data,omitempty"`

	Arms          []*study.Arm          `json:"arms"`
	Interventions []*study.Intervention `json:"interventions"`
	Outcomes      *study.Outcomes       `json:"outcomes"`
	Eligibility   *EligibilitySummary   `json:"eligibility,omitempty"`

	ProvidedDocuments []*study.ProvidedDocument `json:"provided_documents"`
	Links             []*study.Link             `json:"links"`
	References        []*study.Reference        `json:"references"`
	ResultsReferences []*study.Reference        `json:"results_references"`
}

// EligibilitySummary ergänzt die Eignungskriterien um die segmentierten Listen.
type EligibilitySummary struct {
	*study.Eligibility
	Inclusion []string `json:"inclusion_criteria"`
	Exclusion []string `json:"exclusion_criteria"`
}

// PeopleSummary listet alle Personen einer Studie mit Ansprechpartnern und Prüfärzten.
type PeopleSummary struct {
	NCTID              string                    `json:"nct_id"`
	People             []*study.Person           `json:"people"`
	OverallOfficials   []*study.Person           `json:"overall_officials"`
	ResponsibleParties []*study.ResponsibleParty `json:"responsible_parties"`
}

// Summarize baut die Zusammenfassung. Fehler entstehen nur bei unlesbaren Pflicht- oder Ja/Nein-Feldern.
func Summarize(s *study.Study) (*StudySummary, error) {
	enrollment, err := s.Enrollment()
	if err != nil {
		return nil, err
	}
	eligibility, err := SummarizeEligibility(s)
	if err != nil {
		return nil, err
	}
	expanded, err := s.ExpandedAccessInfo()
	if err != nil {
		return nil, err
	}
	provided, err := s.ProvidedDocuments()
	if err != nil {
		return nil, err
	}

	return &StudySummary{
		NCTID:         s.NCTID(),
		OrgStudyID:    s.OrgStudyID(),
		SecondaryIDs:  s.SecondaryIDs(),
		NCTAliases:    s.NCTAliases(),
		BriefTitle:    s.BriefTitle(),
		OfficialTitle: s.OfficialTitle(),
		Acronym:       s.Acronym(),

		Phase:           s.Phase(),
		StudyType:       s.StudyType(),
		Status:          s.Status(),
		LastKnownStatus: s.LastKnownStatus(),
		WhyStopped:      s.WhyStopped(),
		HasResults:      s.HasResults() || s.Trail().HasResults(),

		BriefSummary:        s.BriefSummary(),
		DetailedDescription: s.DetailedDescription(),

		Sponsor:       s.Sponsor(),
		Collaborators: s.Collaborators(),

		Conditions:       s.Conditions(),
		Keywords:         s.Keywords(),
		MeshTerms:        s.MeshTerms(),
		Countries:        s.Countries(),
		RemovedCountries: s.RemovedCountries(),
		Cities:           s.Cities(),

		Enrollment:            enrollment,
		StartDate:             s.StartDate(),
		PrimaryCompletionDate: s.PrimaryCompletionDate(),
		CompletionDate:        s.CompletionDate(),
		VerificationDate:      s.VerificationDate(),
		Trail:                 s.Trail(),

		DesignInfo:     s.DesignInfo(),
		OversightInfo:  s.OversightInfo(),
		ExpandedAccess: expanded,
		PatientData:    s.PatientData(),

		Arms:          s.Arms(),
		Interventions: s.Interventions(),
		Outcomes:      s.Outcomes(),
		Eligibility:   eligibility,

		ProvidedDocuments: provided,
		Links:             s.Links(),
		References:        s.References(),
		ResultsReferences: s.ResultsReferences(),
	}, nil
}

// SummarizeEligibility liefert nil, wenn die Studie keine Eignungskriterien hat.
func SummarizeEligibility(s *study.Study) (*EligibilitySummary, error) {
	e, err := s.Eligibility()
	if err != nil || e == nil {
		return nil, err
	}
	return &EligibilitySummary{
		Eligibility: e,
		Inclusion:   e.InclusionCriteria(),
		Exclusion:   e.ExclusionCriteria(),
	}, nil
}

func SummarizePeople(s *study.Study) *PeopleSummary {
	return &PeopleSummary{
		NCTID:              s.NCTID(),
		People:             s.People(),
		OverallOfficials:   s.OverallOfficials(),
		ResponsibleParties: s.ResponsibleParties(),
	}
}
