package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/hrdesk/internal/services/notifications/domain"
)

const (
	subjectPlaceholder = "{subjectId}"
	maxSourceBody      = 4 << 20
)

// Source fetches the current subject list for a scheduler tick.
type Source interface {
	Fetch(ctx context.Context, dataSourceURL string, subjectID string) ([]domain.Subject, error)
}

// HTTPSource reads subjects with a GET request. The body is either a JSON
// array of subjects or an object with a "subjects" array.
type HTTPSource struct {
	client *http.Client
}

// NewHTTPSource creates a source using client, or http.DefaultClient.
func NewHTTPSource(client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client}
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, dataSourceURL string, subjectID string) ([]domain.Subject, error) {
	target, err := SubjectURL(dataSourceURL, subjectID)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build subject request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subject request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subject source returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBody))
	if err != nil {
		return nil, fmt.Errorf("read subject response: %w", err)
	}
	return decodeSubjects(body)
}

// SubjectURL fills the {subjectId} placeholder or, without one, adds a
// subject_id query parameter.
func SubjectURL(dataSourceURL string, subjectID string) (string, error) {
	dataSourceURL = strings.TrimSpace(dataSourceURL)
	if dataSourceURL == "" {
		return "", errors.New("data source url is required")
	}
	subjectID = strings.TrimSpace(subjectID)
	filled := strings.Contains(dataSourceURL, subjectPlaceholder)
	if filled {
		if subjectID == "" {
			return "", errors.New("subject id is required by data source url")
		}
		dataSourceURL = strings.ReplaceAll(dataSourceURL, subjectPlaceholder, url.PathEscape(subjectID))
	}
	parsed, err := url.Parse(dataSourceURL)
	if err != nil {
		return "", fmt.Errorf("parse data source url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("data source url %q must be absolute", dataSourceURL)
	}
	if subjectID != "" && !filled {
		query := parsed.Query()
		if query.Get("subject_id") == "" {
			query.Set("subject_id", subjectID)
			parsed.RawQuery = query.Encode()
		}
	}
	return parsed.String(), nil
}

func decodeSubjects(body []byte) ([]domain.Subject, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var subjects []domain.Subject
		if err := json.Unmarshal(trimmed, &subjects); err != nil {
			return nil, fmt.Errorf("decode subjects: %w", err)
		}
		return subjects, nil
	}
	var envelope struct {
		Subjects []domain.Subject `json:"subjects"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode subjects: %w", err)
	}
	return envelope.Subjects, nil
}
