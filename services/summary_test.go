package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glow-mdsol/clinical-trials/study"
)

const eligibilityXML = `<clinical_study>
  <id_info><nct_id>NCT00000003</nct_id></id_info>
  <eligibility>
    <criteria>
      <textblock>
        Inclusion Criteria:

          -  Adults
             over 18

        Exclusion Criteria:

          -  Pregnancy

      </textblock>
    </criteria>
    <gender>All</gender>
    <minimum_age>18 Years</minimum_age>
    <maximum_age>N/A</maximum_age>
  </eligibility>
  <overall_official><last_name>Smith</last_name><role>Principal Investigator</role></overall_official>
  <overall_contact><last_name>Jones</last_name><email>jones@example.com</email></overall_contact>
  <location>
    <contact><last_name>Jones</last_name><email>jones@example.com</email></contact>
    <investigator><last_name>Smith</last_name><role>Principal Investigator</role></investigator>
  </location>
</clinical_study>`

func TestSummarizeEligibility(t *testing.T) {
	st, err := study.FromDocument([]byte(eligibilityXML))
	require.NoError(t, err)

	e, err := SummarizeEligibility(st)
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, []string{"-  Adults over 18"}, e.Inclusion)
	assert.Equal(t, []string{"-  Pregnancy"}, e.Exclusion)
	assert.Equal(t, "18 Years", e.MinimumAge)

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"inclusion_criteria":["-  Adults over 18"]`)
	assert.Contains(t, string(b), `"gender":"All"`)
}

func TestSummarizeWithoutEligibility(t *testing.T) {
	st, err := study.FromDocument([]byte(`<clinical_study><id_info><nct_id>NCT1</nct_id></id_info></clinical_study>`))
	require.NoError(t, err)

	summary, err := Summarize(st)
	require.NoError(t, err)
	assert.Nil(t, summary.Eligibility)
	assert.Nil(t, summary.Enrollment)
	assert.Empty(t, summary.Collaborators)
	assert.NotNil(t, summary.Collaborators)
	assert.Equal(t, "N/A", summary.Phase)
	assert.False(t, summary.HasResults)
}

func TestSummarizeRejectsBadEnrollment(t *testing.T) {
	st, err := study.FromDocument([]byte(`<clinical_study><id_info><nct_id>NCT1</nct_id></id_info><enrollment>many</enrollment></clinical_study>`))
	require.NoError(t, err)

	_, err = Summarize(st)
	assert.Error(t, err)
}

func TestSummarizePeople(t *testing.T) {
	st, err := study.FromDocument([]byte(eligibilityXML))
	require.NoError(t, err)

	people := SummarizePeople(st)
	assert.Equal(t, "NCT00000003", people.NCTID)
	require.Len(t, people.People, 2)
	assert.Equal(t, "Smith", people.People[0].LastName)
	assert.Equal(t, study.KindInvestigator, people.People[0].Kind)
	assert.Equal(t, "Jones", people.People[1].LastName)
	assert.Empty(t, people.ResponsibleParties)
}
