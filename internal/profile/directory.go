package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Directory answers existence checks against the profile service that owns
// doctor and patient records. Identifiers are opaque here.
type Directory interface {
	DoctorExists(ctx context.Context, doctorID string) (bool, error)
	PatientExists(ctx context.Context, patientID string) (bool, error)
}

// HTTPDirectory queries the profile service over its REST surface. A 200 means
// the profile exists, a 404 means it does not; anything else is an error so
// callers can distinguish "unknown doctor" from "directory down".
type HTTPDirectory struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

func (d *HTTPDirectory) DoctorExists(ctx context.Context, doctorID string) (bool, error) {
	return d.head(ctx, "/doctors/"+url.PathEscape(doctorID))
}

func (d *HTTPDirectory) PatientExists(ctx context.Context, patientID string) (bool, error) {
	return d.head(ctx, "/patients/"+url.PathEscape(patientID))
}

func (d *HTTPDirectory) head(ctx context.Context, path string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, d.baseURL+path, nil)
	if err != nil {
		return false, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("profile lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("profile lookup: unexpected status %d", resp.StatusCode)
	}
}

// StaticDirectory answers from fixed sets. Empty sets accept every id, which
// keeps local development working without a profile service.
type StaticDirectory struct {
	Doctors  map[string]struct{}
	Patients map[string]struct{}
}

func (d StaticDirectory) DoctorExists(_ context.Context, doctorID string) (bool, error) {
	if len(d.Doctors) == 0 {
		return true, nil
	}
	_, ok := d.Doctors[doctorID]
	return ok, nil
}

func (d StaticDirectory) PatientExists(_ context.Context, patientID string) (bool, error) {
	if len(d.Patients) == 0 {
		return true, nil
	}
	_, ok := d.Patients[patientID]
	return ok, nil
}
