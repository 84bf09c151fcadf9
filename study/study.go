// Package study maps a decoded ClinicalTrials.gov record onto typed entities.
//
// A Study wraps the nested mapping produced by the schema decoder and builds
// each entity the first time it is asked for. A Study is not safe for
// concurrent use.
package study

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/glow-mdsol/clinical-trials/schema"
)

// resultsMarker is present in a raw record once results have been posted.
var resultsMarker = []byte("<clinical_results>")

// Source fetches the raw XML of a record by NCT ID.
type Source interface {
	GetStudy(ctx context.Context, nctID string) ([]byte, error)
}

// DocumentLister lists the documents shown on a record's registry page as
// title -> relative URL.
type DocumentLister interface {
	GetStudyDocuments(ctx context.Context, nctID string) (map[string]string, error)
}

// Option configures a Study.
type Option func(*Study)

// WithLogger sets the logger used for parse warnings.
func WithLogger(log *zap.Logger) Option {
	return func(s *Study) {
		if log != nil {
			s.log = log
		}
	}
}

// WithDocumentLister enables the registry page fallback of StudyDocuments.
func WithDocumentLister(l DocumentLister) Option {
	return func(s *Study) { s.lister = l }
}

// Study is one clinical trial record.
type Study struct {
	doc        Fragment
	log        *zap.Logger
	lister     DocumentLister
	hasResults bool

	sponsor            lazy[*Sponsor]
	collaborators      lazy[[]*Sponsor]
	locations          lazy[[]*Location]
	facilities         lazy[[]*Facility]
	cities             lazy[[]string]
	arms               lazy[[]*Arm]
	interventions      lazy[[]*Intervention]
	outcomes           lazy[*Outcomes]
	links              lazy[[]*Link]
	references         lazy[[]*Reference]
	resultsReferences  lazy[[]*Reference]
	studyDocuments     lazy[[]*StudyDocument]
	providedDocuments  lazy[[]*ProvidedDocument]
	officials          lazy[[]*Person]
	overallContact     lazy[*Person]
	contactBackup      lazy[*Person]
	responsibleParties lazy[[]*ResponsibleParty]
	trail              lazy[*Trail]
	enrollment         lazy[*Enrollment]
	eligibility        lazy[*Eligibility]
	oversight          lazy[*OversightInfo]
	expandedAccess     lazy[*ExpandedAccessInfo]
	design             lazy[*DesignInfo]
	patientData        lazy[*PatientData]
	meshTerms          lazy[map[string][]string]
	people             lazy[[]*Person]
}

// New wraps a decoded record. It fails with ErrDefinitionInvalid when the
// record carries no NCT ID.
func New(doc Fragment, opts ...Option) (*Study, error) {
	s := &Study{doc: doc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := requireFields("id_info", doc.Fragment("id_info"), "nct_id"); err != nil {
		return nil, err
	}
	s.log = s.log.With(zap.String("nct_id", s.NCTID()))
	return s, nil
}

// FromDocument decodes a raw XML record.
func FromDocument(raw []byte, opts ...Option) (*Study, error) {
	doc, err := schema.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode study: %w", err)
	}
	s, err := New(doc, opts...)
	if err != nil {
		return nil, err
	}
	s.hasResults = bytes.Contains(raw, resultsMarker)
	return s, nil
}

// FromFile reads and decodes a record stored at path.
func FromFile(path string, opts ...Option) (*Study, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: File %s not found", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	return FromDocument(raw, opts...)
}

// FromNCTID retrieves a record from src and decodes it.
func FromNCTID(ctx context.Context, nctID string, src Source, opts ...Option) (*Study, error) {
	raw, err := src.GetStudy(ctx, nctID)
	if err != nil {
		return nil, err
	}
	return FromDocument(raw, opts...)
}

// Document exposes the decoded mapping.
func (s *Study) Document() Fragment { return s.doc }

// HasResults reports whether the raw record carried a results section.
func (s *Study) HasResults() bool { return s.hasResults }

func (s *Study) NCTID() string          { return s.doc.String("id_info.nct_id", "") }
func (s *Study) OrgStudyID() string     { return s.doc.String("id_info.org_study_id", "") }
func (s *Study) SecondaryIDs() []string { return orEmpty(s.doc.Strings("id_info.secondary_id")) }
func (s *Study) NCTAliases() []string   { return orEmpty(s.doc.Strings("id_info.nct_alias")) }

func (s *Study) BriefTitle() string    { return s.doc.String("brief_title", "") }
func (s *Study) OfficialTitle() string { return s.doc.String("official_title", "") }
func (s *Study) Acronym() string       { return s.doc.String("acronym", "") }

func (s *Study) Phase() string           { return s.doc.String("phase", "N/A") }
func (s *Study) StudyType() string       { return s.doc.String("study_type", "") }
func (s *Study) Status() string          { return s.doc.String("overall_status", "") }
func (s *Study) LastKnownStatus() string { return s.doc.String("last_known_status", "") }

// WhyStopped is the trimmed reason a study ended early, "N/A" if not given.
func (s *Study) WhyStopped() string {
	return strings.TrimSpace(s.doc.String("why_stopped", "N/A"))
}

func (s *Study) BriefSummary() string {
	return NormalizeText(s.doc.String("brief_summary.textblock", ""))
}

func (s *Study) DetailedDescription() string {
	return NormalizeText(s.doc.String("detailed_description.textblock", ""))
}

func (s *Study) BiospecDescription() string {
	return NormalizeText(s.doc.String("biospec_descr.textblock", ""))
}

func (s *Study) BiospecRetention() string { return s.doc.String("biospec_retention", "") }

// Sponsor returns the lead sponsor, or nil.
func (s *Study) Sponsor() *Sponsor {
	return s.sponsor.get(func() *Sponsor {
		if f := s.doc.Fragment("sponsors.lead_sponsor"); f != nil {
			return newSponsor(f)
		}
		return nil
	})
}

func (s *Study) Collaborators() []*Sponsor {
	return s.collaborators.get(func() []*Sponsor {
		return buildAll(s.doc.Fragments("sponsors.collaborator"), newSponsor)
	})
}

func (s *Study) Locations() []*Location {
	return s.locations.get(func() []*Location {
		return buildAll(s.doc.Fragments("location"), newLocation)
	})
}

// Facilities returns one entry per location; it is nil for a location
// without a facility.
func (s *Study) Facilities() []*Facility {
	return s.facilities.get(func() []*Facility {
		out := make([]*Facility, 0, len(s.Locations()))
		for _, loc := range s.Locations() {
			out = append(out, loc.Facility)
		}
		return out
	})
}

// Cities lists the distinct facility cities in first-seen order.
func (s *Study) Cities() []string {
	return s.cities.get(func() []string {
		seen := map[string]bool{}
		out := []string{}
		for _, loc := range s.Locations() {
			city := loc.City()
			if city == "" || seen[city] {
				continue
			}
			seen[city] = true
			out = append(out, city)
		}
		return out
	})
}

func (s *Study) Arms() []*Arm {
	return s.arms.get(func() []*Arm {
		return buildAll(s.doc.Fragments("arm_group"), newArm)
	})
}

// ArmByLabel returns the arm with the given label, or nil.
func (s *Study) ArmByLabel(label string) *Arm {
	for _, arm := range s.Arms() {
		if arm.Label == label {
			return arm
		}
	}
	return nil
}

func (s *Study) Interventions() []*Intervention {
	return s.interventions.get(func() []*Intervention {
		return buildAll(s.doc.Fragments("intervention"), newIntervention)
	})
}

func (s *Study) Outcomes() *Outcomes {
	return s.outcomes.get(func() *Outcomes {
		out := newOutcomes()
		for _, kind := range []string{OutcomePrimary, OutcomeSecondary, OutcomeOther} {
			for _, f := range s.doc.Fragments(kind + "_outcome") {
				out.Add(kind, f)
			}
		}
		return out
	})
}

func (s *Study) Links() []*Link {
	return s.links.get(func() []*Link {
		return buildAll(s.doc.Fragments("link"), newLink)
	})
}

func (s *Study) References() []*Reference {
	return s.references.get(func() []*Reference {
		return buildAll(s.doc.Fragments("reference"), newReference)
	})
}

func (s *Study) ResultsReferences() []*Reference {
	return s.resultsReferences.get(func() []*Reference {
		return buildAll(s.doc.Fragments("results_reference"), newReference)
	})
}

// StudyDocuments returns the study_docs of the record. When the record embeds
// none and a DocumentLister is configured, the documents listed on the
// registry page are returned instead, ordered by title.
func (s *Study) StudyDocuments(ctx context.Context) ([]*StudyDocument, error) {
	return s.studyDocuments.getErr(func() ([]*StudyDocument, error) {
		if embedded := s.doc.Fragments("study_docs.study_doc"); len(embedded) > 0 {
			return buildAll(embedded, newStudyDocument), nil
		}
		if s.lister == nil {
			return []*StudyDocument{}, nil
		}
		s.log.Debug("No embedded study documents, asking registry page")
		listed, err := s.lister.GetStudyDocuments(ctx, s.NCTID())
		if err != nil {
			return nil, fmt.Errorf("list study documents: %w", err)
		}
		titles := make([]string, 0, len(listed))
		for title := range listed {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		out := make([]*StudyDocument, 0, len(titles))
		for _, title := range titles {
			doc := &StudyDocument{Type: title, URL: listed[title]}
			doc.classify()
			out = append(out, doc)
		}
		return out, nil
	})
}

func (s *Study) ProvidedDocuments() ([]*ProvidedDocument, error) {
	return s.providedDocuments.getErr(func() ([]*ProvidedDocument, error) {
		out := []*ProvidedDocument{}
		for _, f := range s.doc.Fragments("provided_document_section.provided_document") {
			doc, err := newProvidedDocument(f)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
		return out, nil
	})
}

func (s *Study) OverallOfficials() []*Person {
	return s.officials.get(func() []*Person {
		return buildAll(s.doc.Fragments("overall_official"), newInvestigator)
	})
}

// OverallContact returns the central contact, or nil.
func (s *Study) OverallContact() *Person {
	return s.overallContact.get(func() *Person {
		if f := s.doc.Fragment("overall_contact"); f != nil {
			return newContact(f)
		}
		return nil
	})
}

// OverallContactBackup returns the backup central contact, or nil.
func (s *Study) OverallContactBackup() *Person {
	return s.contactBackup.get(func() *Person {
		if f := s.doc.Fragment("overall_contact_backup"); f != nil {
			return newContact(f)
		}
		return nil
	})
}

func (s *Study) ResponsibleParties() []*ResponsibleParty {
	return s.responsibleParties.get(func() []*ResponsibleParty {
		return buildAll(s.doc.Fragments("responsible_party"), newResponsibleParty)
	})
}

func (s *Study) Trail() *Trail {
	return s.trail.get(func() *Trail { return newTrail(s.doc, s.log) })
}

// Enrollment returns the participant count, or nil when the record has none.
func (s *Study) Enrollment() (*Enrollment, error) {
	return s.enrollment.getErr(func() (*Enrollment, error) {
		v := s.doc.Get("enrollment")
		if v == nil {
			return nil, nil
		}
		return newEnrollment(v)
	})
}

func (s *Study) VerificationDate() *VariableDate {
	return ParseDate(s.doc.Get("verification_date"), s.log)
}

func (s *Study) StartDate() *VariableDate {
	return ParseDate(s.doc.Get("start_date"), s.log)
}

func (s *Study) CompletionDate() *VariableDate {
	return ParseDate(s.doc.Get("completion_date"), s.log)
}

func (s *Study) PrimaryCompletionDate() *VariableDate {
	return ParseDate(s.doc.Get("primary_completion_date"), s.log)
}

// Eligibility returns the eligibility section, or nil.
func (s *Study) Eligibility() (*Eligibility, error) {
	return s.eligibility.getErr(func() (*Eligibility, error) {
		f := s.doc.Fragment("eligibility")
		if f == nil {
			return nil, nil
		}
		return newEligibility(f)
	})
}

// OversightInfo returns the oversight section, or nil.
func (s *Study) OversightInfo() *OversightInfo {
	return s.oversight.get(func() *OversightInfo {
		if f := s.doc.Fragment("oversight_info"); f != nil {
			return newOversightInfo(f)
		}
		return nil
	})
}

// ExpandedAccessInfo returns the expanded access section, or nil.
func (s *Study) ExpandedAccessInfo() (*ExpandedAccessInfo, error) {
	return s.expandedAccess.getErr(func() (*ExpandedAccessInfo, error) {
		f := s.doc.Fragment("expanded_access_info")
		if f == nil {
			return nil, nil
		}
		return newExpandedAccessInfo(f)
	})
}

func (s *Study) DesignInfo() *DesignInfo {
	return s.design.get(func() *DesignInfo {
		if f := s.doc.Fragment("study_design_info"); f != nil {
			return newDesignInfo(f)
		}
		return nil
	})
}

// PatientData returns the IPD sharing statement, or nil when undeclared.
func (s *Study) PatientData() *PatientData {
	return s.patientData.get(func() *PatientData {
		if f := s.doc.Fragment("patient_data"); f != nil {
			return newPatientData(f)
		}
		return nil
	})
}

func (s *Study) Keywords() []string   { return orEmpty(s.doc.Strings("keyword")) }
func (s *Study) Conditions() []string { return orEmpty(s.doc.Strings("condition")) }
func (s *Study) Countries() []string  { return orEmpty(s.doc.Strings("location_countries.country")) }
func (s *Study) RemovedCountries() []string {
	return orEmpty(s.doc.Strings("removed_countries.country"))
}

// MeshTerms returns the MeSH terms keyed by "condition" and "intervention".
// A key is absent when the record has no terms for it.
func (s *Study) MeshTerms() map[string][]string {
	return s.meshTerms.get(func() map[string][]string {
		out := map[string][]string{}
		if terms := s.doc.Strings("condition_browse.mesh_term"); len(terms) > 0 {
			out["condition"] = terms
		}
		if terms := s.doc.Strings("intervention_browse.mesh_term"); len(terms) > 0 {
			out["intervention"] = terms
		}
		return out
	})
}

// People returns every distinct person named by the record: overall
// officials, overall contacts, then each location's contacts and
// investigators.
func (s *Study) People() []*Person {
	return s.people.get(func() []*Person {
		out := []*Person{}
		add := func(p *Person) {
			if p == nil {
				return
			}
			for _, known := range out {
				if *known == *p {
					return
				}
			}
			out = append(out, p)
		}
		for _, p := range s.OverallOfficials() {
			add(p)
		}
		add(s.OverallContact())
		add(s.OverallContactBackup())
		for _, loc := range s.Locations() {
			add(loc.Contact)
			add(loc.ContactBackup)
			for _, inv := range loc.Investigators {
				add(inv)
			}
		}
		return out
	})
}

func buildAll[T any](frags []Fragment, build func(Fragment) T) []T {
	out := make([]T, 0, len(frags))
	for _, f := range frags {
		out = append(out, build(f))
	}
	return out
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
