package study

import (
	"fmt"
	"strconv"
	"strings"
)

// Sponsor is a lead sponsor or collaborator.
type Sponsor struct {
	Agency      string `json:"agency"`
	AgencyClass string `json:"agency_class,omitempty"`
}

func newSponsor(f Fragment) *Sponsor {
	return &Sponsor{
		Agency:      f.String("agency", ""),
		AgencyClass: f.String("agency_class", ""),
	}
}

// ResponsibleParty is the person or organisation accountable for the record.
type ResponsibleParty struct {
	NameTitle               string `json:"name_title,omitempty"`
	Organization            string `json:"organization,omitempty"`
	ResponsiblePartyType    string `json:"responsible_party_type,omitempty"`
	InvestigatorAffiliation string `json:"investigator_affiliation,omitempty"`
	InvestigatorFullName    string `json:"investigator_full_name,omitempty"`
	InvestigatorTitle       string `json:"investigator_title,omitempty"`
}

func newResponsibleParty(f Fragment) *ResponsibleParty {
	return &ResponsibleParty{
		NameTitle:               f.String("name_title", ""),
		Organization:            f.String("organization", ""),
		ResponsiblePartyType:    f.String("responsible_party_type", ""),
		InvestigatorAffiliation: f.String("investigator_affiliation", ""),
		InvestigatorFullName:    f.String("investigator_full_name", ""),
		InvestigatorTitle:       f.String("investigator_title", ""),
	}
}

type Address struct {
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	Country string `json:"country"`
}

func newAddress(f Fragment) *Address {
	return &Address{
		City:    f.String("city", ""),
		State:   f.String("state", ""),
		Zip:     f.String("zip", ""),
		Country: f.String("country", ""),
	}
}

type Facility struct {
	Name    string   `json:"name,omitempty"`
	Address *Address `json:"address,omitempty"`
}

func newFacility(f Fragment) *Facility {
	fac := &Facility{Name: f.String("name", "")}
	if a := f.Fragment("address"); a != nil {
		fac.Address = newAddress(a)
	}
	return fac
}

// PersonKind separates the two shapes a named person takes in a record.
type PersonKind int

const (
	// KindContact carries phone and email (contact_struct).
	KindContact PersonKind = iota
	// KindInvestigator carries role and affiliation (investigator_struct).
	KindInvestigator
)

func (k PersonKind) String() string {
	if k == KindInvestigator {
		return "investigator"
	}
	return "contact"
}

// Person is a study contact or investigator. It only holds comparable fields
// so two people can be compared with ==.
type Person struct {
	Kind       PersonKind `json:"kind"`
	FirstName  string     `json:"first_name,omitempty"`
	MiddleName string     `json:"middle_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Degrees    string     `json:"degrees,omitempty"`

	Phone    string `json:"phone,omitempty"`
	PhoneExt string `json:"phone_ext,omitempty"`
	Email    string `json:"email,omitempty"`

	Role        string `json:"role,omitempty"`
	Affiliation string `json:"affiliation,omitempty"`
}

func newPerson(f Fragment) Person {
	return Person{
		FirstName:  f.String("first_name", ""),
		MiddleName: f.String("middle_name", ""),
		LastName:   f.String("last_name", ""),
		Degrees:    f.String("degrees", ""),
	}
}

func newContact(f Fragment) *Person {
	p := newPerson(f)
	p.Kind = KindContact
	p.Phone = f.String("phone", "")
	p.PhoneExt = f.String("phone_ext", "")
	p.Email = f.String("email", "")
	return &p
}

func newInvestigator(f Fragment) *Person {
	p := newPerson(f)
	p.Kind = KindInvestigator
	p.Role = f.String("role", "")
	p.Affiliation = f.String("affiliation", "")
	return &p
}

// FullName joins the name parts that are present.
func (p *Person) FullName() string {
	var parts []string
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Location is one trial site.
type Location struct {
	Facility      *Facility `json:"facility,omitempty"`
	Status        string    `json:"status,omitempty"`
	Contact       *Person   `json:"contact,omitempty"`
	ContactBackup *Person   `json:"contact_backup,omitempty"`
	Investigators []*Person `json:"investigators"`
}

func newLocation(f Fragment) *Location {
	loc := &Location{
		Status:        f.String("status", ""),
		Investigators: []*Person{},
	}
	if fac := f.Fragment("facility"); fac != nil {
		loc.Facility = newFacility(fac)
	}
	if c := f.Fragment("contact"); c != nil {
		loc.Contact = newContact(c)
	}
	if c := f.Fragment("contact_backup"); c != nil {
		loc.ContactBackup = newContact(c)
	}
	for _, inv := range f.Fragments("investigator") {
		loc.Investigators = append(loc.Investigators, newInvestigator(inv))
	}
	return loc
}

// City returns the facility city, or "" when any link of the chain is missing.
func (l *Location) City() string {
	if l.Facility == nil || l.Facility.Address == nil {
		return ""
	}
	return l.Facility.Address.City
}

type Arm struct {
	Label       string `json:"arm_group_label"`
	Type        string `json:"arm_group_type,omitempty"`
	Description string `json:"description,omitempty"`
}

func newArm(f Fragment) *Arm {
	return &Arm{
		Label:       f.String("arm_group_label", ""),
		Type:        f.String("arm_group_type", ""),
		Description: f.String("description", ""),
	}
}

// Intervention is a treatment under test. ArmLabels refer to Arm.Label.
type Intervention struct {
	Type        string   `json:"intervention_type"`
	Name        string   `json:"intervention_name"`
	Description string   `json:"description,omitempty"`
	ArmLabels   []string `json:"arm_group_label,omitempty"`
	Aliases     []string `json:"other_name,omitempty"`
}

func newIntervention(f Fragment) *Intervention {
	return &Intervention{
		Type:        f.String("intervention_type", ""),
		Name:        f.String("intervention_name", ""),
		Description: f.String("description", ""),
		ArmLabels:   f.Strings("arm_group_label"),
		Aliases:     f.Strings("other_name"),
	}
}

type Link struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

func newLink(f Fragment) *Link {
	return &Link{URL: f.String("url", ""), Description: f.String("description", "")}
}

// Reference is a literature citation, optionally indexed in PubMed.
type Reference struct {
	Citation string `json:"citation"`
	PMID     string `json:"pmid,omitempty"`
}

func newReference(f Fragment) *Reference {
	return &Reference{Citation: f.String("citation", ""), PMID: f.String("PMID", "")}
}

// PatientData is the individual participant data sharing statement.
type PatientData struct {
	SharingIPD     string   `json:"sharing_ipd"`
	IPDDescription string   `json:"ipd_description,omitempty"`
	InfoTypes      []string `json:"ipd_info_type,omitempty"`
	TimeFrame      string   `json:"ipd_time_frame,omitempty"`
	AccessCriteria string   `json:"ipd_access_criteria,omitempty"`
	URL            string   `json:"ipd_url,omitempty"`
}

func newPatientData(f Fragment) *PatientData {
	return &PatientData{
		SharingIPD:     f.String("sharing_ipd", ""),
		IPDDescription: f.String("ipd_description", ""),
		InfoTypes:      f.Strings("ipd_info_type"),
		TimeFrame:      f.String("ipd_time_frame", ""),
		AccessCriteria: f.String("ipd_access_criteria", ""),
		URL:            f.String("ipd_url", ""),
	}
}

// OversightInfo keeps "not answered" (nil) apart from "No".
type OversightInfo struct {
	HasDMC               *bool `json:"has_dmc"`
	IsFDARegulatedDrug   *bool `json:"is_fda_regulated_drug"`
	IsFDARegulatedDevice *bool `json:"is_fda_regulated_device"`
	IsUnapprovedDevice   *bool `json:"is_unapproved_device"`
	IsPPSD               *bool `json:"is_ppsd"`
	IsUSExport           *bool `json:"is_us_export"`
}

func newOversightInfo(f Fragment) *OversightInfo {
	return &OversightInfo{
		HasDMC:               TriState(f.Get("has_dmc")),
		IsFDARegulatedDrug:   TriState(f.Get("is_fda_regulated_drug")),
		IsFDARegulatedDevice: TriState(f.Get("is_fda_regulated_device")),
		IsUnapprovedDevice:   TriState(f.Get("is_unapproved_device")),
		IsPPSD:               TriState(f.Get("is_ppsd")),
		IsUSExport:           TriState(f.Get("is_us_export")),
	}
}

type ExpandedAccessInfo struct {
	Individual   bool `json:"individual"`
	Intermediate bool `json:"intermediate"`
	Treatment    bool `json:"treatment"`
}

func newExpandedAccessInfo(f Fragment) (*ExpandedAccessInfo, error) {
	var info ExpandedAccessInfo
	fields := []struct {
		key string
		dst *bool
	}{
		{"expanded_access_type_individual", &info.Individual},
		{"expanded_access_type_intermediate", &info.Intermediate},
		{"expanded_access_type_treatment", &info.Treatment},
	}
	for _, field := range fields {
		v, err := YesNo(f.Get(field.key))
		if err != nil {
			return nil, fmt.Errorf("expanded_access_info.%s: %w", field.key, err)
		}
		*field.dst = v
	}
	return &info, nil
}

type DesignInfo struct {
	Allocation                   string `json:"allocation,omitempty"`
	InterventionModel            string `json:"intervention_model,omitempty"`
	InterventionModelDescription string `json:"intervention_model_description,omitempty"`
	PrimaryPurpose               string `json:"primary_purpose,omitempty"`
	ObservationalModel           string `json:"observational_model,omitempty"`
	TimePerspective              string `json:"time_perspective,omitempty"`
	Masking                      string `json:"masking,omitempty"`
	MaskingDescription           string `json:"masking_description,omitempty"`
}

func newDesignInfo(f Fragment) *DesignInfo {
	return &DesignInfo{
		Allocation:                   f.String("allocation", ""),
		InterventionModel:            f.String("intervention_model", ""),
		InterventionModelDescription: f.String("intervention_model_description", ""),
		PrimaryPurpose:               f.String("primary_purpose", ""),
		ObservationalModel:           f.String("observational_model", ""),
		TimePerspective:              f.String("time_perspective", ""),
		Masking:                      f.String("masking", ""),
		MaskingDescription:           f.String("masking_description", ""),
	}
}

// Enrollment is the (actual or anticipated) participant count.
type Enrollment struct {
	Count     int    `json:"count"`
	CountType string `json:"count_type,omitempty"`
}

func newEnrollment(v any) (*Enrollment, error) {
	var raw, countType string
	switch t := v.(type) {
	case string:
		raw = t
	case Fragment, map[string]any:
		m, _ := asFragment(t)
		raw = m.String("$", "")
		countType = m.String("@type", "")
	default:
		return nil, fmt.Errorf("enrollment: unexpected value type %s", typeName(v))
	}
	count, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("enrollment: invalid count %q: %w", raw, err)
	}
	return &Enrollment{Count: count, CountType: countType}, nil
}

// Outcome types.
const (
	OutcomePrimary   = "primary"
	OutcomeSecondary = "secondary"
	OutcomeOther     = "other"
)

// Outcome is a protocol_outcome_struct.
type Outcome struct {
	Type        string `json:"outcome_type"`
	Measure     string `json:"measure"`
	TimeFrame   string `json:"time_frame,omitempty"`
	Description string `json:"description,omitempty"`
}

// Outcomes groups protocol outcomes in document order.
type Outcomes struct {
	Primary   []*Outcome `json:"primary"`
	Secondary []*Outcome `json:"secondary"`
	Other     []*Outcome `json:"other"`
}

func newOutcomes() *Outcomes {
	return &Outcomes{Primary: []*Outcome{}, Secondary: []*Outcome{}, Other: []*Outcome{}}
}

// Add files an outcome fragment under its type; unknown types land in Other.
func (o *Outcomes) Add(outcomeType string, f Fragment) {
	out := &Outcome{
		Type:        outcomeType,
		Measure:     f.String("measure", ""),
		TimeFrame:   f.String("time_frame", ""),
		Description: f.String("description", ""),
	}
	switch outcomeType {
	case OutcomePrimary:
		o.Primary = append(o.Primary, out)
	case OutcomeSecondary:
		o.Secondary = append(o.Secondary, out)
	default:
		o.Other = append(o.Other, out)
	}
}
