package study

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// StudyDocument is a study_doc entry, or a document found on the registry
// page when the record embeds none.
type StudyDocument struct {
	ID      string `json:"doc_id,omitempty"`
	Type    string `json:"doc_type"`
	URL     string `json:"doc_url,omitempty"`
	Comment string `json:"doc_comment,omitempty"`

	HasProtocol bool `json:"has_protocol"`
	HasICF      bool `json:"has_icf"`
	HasSAP      bool `json:"has_sap"`
}

func newStudyDocument(f Fragment) *StudyDocument {
	doc := &StudyDocument{
		ID:      f.String("doc_id", ""),
		Type:    f.String("doc_type", ""),
		URL:     f.String("doc_url", ""),
		Comment: f.String("doc_comment", ""),
	}
	doc.classify()
	return doc
}

// classify derives the content flags from the type label, e.g.
// "Study Protocol and Statistical Analysis Plan".
func (d *StudyDocument) classify() {
	t := strings.ToLower(d.Type)
	d.HasProtocol = strings.Contains(t, "protocol")
	d.HasICF = strings.Contains(t, "informed consent")
	d.HasSAP = strings.Contains(t, "statistical analysis plan")
}

// ProvidedDocument is an entry of the provided_document_section.
type ProvidedDocument struct {
	Type        string `json:"document_type"`
	HasProtocol bool   `json:"document_has_protocol"`
	HasICF      bool   `json:"document_has_icf"`
	HasSAP      bool   `json:"document_has_sap"`
	Date        string `json:"document_date,omitempty"`
	URL         string `json:"document_url"`
}

func newProvidedDocument(f Fragment) (*ProvidedDocument, error) {
	if err := requireFields("ProvidedDocument", f, "document_url"); err != nil {
		return nil, err
	}
	doc := &ProvidedDocument{
		Type: f.String("document_type", ""),
		Date: f.String("document_date", ""),
		URL:  f.String("document_url", ""),
	}
	var err error
	if doc.HasProtocol, err = YesNo(f.Get("document_has_protocol")); err != nil {
		return nil, fmt.Errorf("document_has_protocol: %w", err)
	}
	if doc.HasICF, err = YesNo(f.Get("document_has_icf")); err != nil {
		return nil, fmt.Errorf("document_has_icf: %w", err)
	}
	if doc.HasSAP, err = YesNo(f.Get("document_has_sap")); err != nil {
		return nil, fmt.Errorf("document_has_sap: %w", err)
	}
	return doc, nil
}

// FileName is the trailing path segment of the document URL.
func (d *ProvidedDocument) FileName() string {
	if u, err := url.Parse(d.URL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(d.URL)
}

// Fetch downloads the document into dir and returns the written path.
// A nil client uses a default client with a 60s timeout.
func (d *ProvidedDocument) Fetch(ctx context.Context, client *http.Client, dir string) (string, error) {
	if client == nil {
		client = httpClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unable to fetch document %s: status %d", ErrRetrieval, d.URL, resp.StatusCode)
	}

	target := filepath.Join(dir, d.FileName())
	fh, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fh, resp.Body); err != nil {
		fh.Close()
		return "", err
	}
	return target, fh.Close()
}
