package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/glow-mdsol/clinical-trials/config"
)

const record = `<clinical_study>
  <id_info><nct_id>NCT03741543</nct_id></id_info>
  <brief_title>CLI test</brief_title>
  <eligibility>
    <criteria><textblock>
Inclusion Criteria:
A
B

Exclusion Criteria:
C

</textblock></criteria>
    <gender>All</gender>
    <minimum_age>18 Years</minimum_age>
    <maximum_age>65 Years</maximum_age>
  </eligibility>
  <overall_official><first_name>Ann</first_name><last_name>Smith</last_name><role>Study Chair</role></overall_official>
  <provided_document_section>
    <provided_document>
      <document_type>Informed Consent Form</document_type>
      <document_has_icf>Yes</document_has_icf>
      <document_url>%s/ProvidedDocs/43/NCT03741543/ICF_000.pdf</document_url>
    </provided_document>
  </provided_document_section>
</clinical_study>`

func run(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&config.Registry{RegistryBaseURL: baseURL, DocumentDir: t.TempDir()}, zap.NewNop(), &out)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func writeRecord(t *testing.T, docBase string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "NCT03741543.xml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(record, docBase)), 0o644))
	return path
}

func TestShowFromFile(t *testing.T) {
	path := writeRecord(t, "http://localhost")

	out, err := run(t, "http://localhost", "show", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"nct_id": "NCT03741543"`)
	assert.Contains(t, out, `"brief_title": "CLI test"`)
}

func TestShowMissingFile(t *testing.T) {
	_, err := run(t, "http://localhost", "show", "-f", "Some/missing/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File Some/missing/path not found")
}

func TestShowFromRegistry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ct2/show/NCT03741543", r.URL.Path)
		fmt.Fprintf(w, record, "http://localhost")
	}))
	defer srv.Close()

	out, err := run(t, srv.URL, "show", "nct03741543")
	require.NoError(t, err)
	assert.Contains(t, out, `"brief_title": "CLI test"`)
}

func TestEligibility(t *testing.T) {
	path := writeRecord(t, "http://localhost")

	out, err := run(t, "http://localhost", "eligibility", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "Gender: All  Age: 18 Years - 65 Years\nInclusion:\n  * A B\nExclusion:\n  * C\n", out)
}

func TestPeople(t *testing.T) {
	path := writeRecord(t, "http://localhost")

	out, err := run(t, "http://localhost", "people", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "investigator")
	assert.Contains(t, out, "Ann Smith")
	assert.Contains(t, out, "Study Chair")
}

func TestDocumentsDownload(t *testing.T) {
	docs := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ProvidedDocs/43/NCT03741543/ICF_000.pdf":
			w.Write([]byte("%PDF-1.4"))
		default:
			// study page without further documents
			w.Write([]byte("<html></html>"))
		}
	}))
	defer docs.Close()
	path := writeRecord(t, docs.URL)
	dir := t.TempDir()

	out, err := run(t, docs.URL, "documents", "-f", path, "--download", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "provided\tInformed Consent Form")

	data, err := os.ReadFile(filepath.Join(dir, "ICF_000.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}
