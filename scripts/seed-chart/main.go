package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wolfman30/chart-console/internal/fhir"
)

// SeedFile lists demo records, in YAML or JSON. Appointments refer to patients
// and practitioners by their key in this file.
type SeedFile struct {
	Practitioners []SeedPractitioner `json:"practitioners"`
	Patients      []SeedPatient      `json:"patients"`
	Appointments  []SeedAppointment  `json:"appointments"`
}

type SeedPractitioner struct {
	Key string `json:"key"`
	fhir.PractitionerInput
}

type SeedPatient struct {
	Key string `json:"key"`
	fhir.PatientInput
}

type SeedAppointment struct {
	Patient      string `json:"patient"`
	Practitioner string `json:"practitioner"`
	fhir.AppointmentInput
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/seed-chart <seed-file.yaml>")
		fmt.Println("Example: go run ./scripts/seed-chart testdata/sample-chart.yaml")
		os.Exit(1)
	}

	apiURL := strings.TrimSuffix(os.Getenv("API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	seed, err := loadSeed(os.Args[1])
	if err != nil {
		fmt.Printf("Error loading seed file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Seeding chart console at %s\n", apiURL)
	fmt.Printf("Practitioners: %d, patients: %d, appointments: %d\n\n",
		len(seed.Practitioners), len(seed.Patients), len(seed.Appointments))

	s := &seeder{
		apiURL: apiURL,
		token:  strings.TrimSpace(os.Getenv("OPERATOR_TOKEN")),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	ctx := context.Background()

	practitionerIDs := map[string]string{}
	for _, p := range seed.Practitioners {
		id, err := s.create(ctx, "/practitioners", p.PractitionerInput)
		if err != nil {
			fmt.Printf("  practitioner %s: %v\n", p.Key, err)
			continue
		}
		practitionerIDs[p.Key] = id
		fmt.Printf("  practitioner %s -> %s\n", p.Key, id)
	}

	patientIDs := map[string]string{}
	for _, p := range seed.Patients {
		id, err := s.create(ctx, "/patients", p.PatientInput)
		if err != nil {
			fmt.Printf("  patient %s: %v\n", p.Key, err)
			continue
		}
		patientIDs[p.Key] = id
		fmt.Printf("  patient %s -> %s\n", p.Key, id)
	}

	failed := 0
	for i, a := range seed.Appointments {
		in := a.AppointmentInput
		in.PatientID = patientIDs[a.Patient]
		in.PractitionerID = practitionerIDs[a.Practitioner]
		if in.PatientID == "" || in.PractitionerID == "" {
			fmt.Printf("  appointment %d: unknown patient %q or practitioner %q\n", i+1, a.Patient, a.Practitioner)
			failed++
			continue
		}
		id, err := s.create(ctx, "/appointments", in)
		if err != nil {
			fmt.Printf("  appointment %d: %v\n", i+1, err)
			failed++
			continue
		}
		fmt.Printf("  appointment %d -> %s\n", i+1, id)
	}

	fmt.Println("\nSeeding complete.")
	if failed > 0 {
		os.Exit(1)
	}
}

// loadSeed reads a YAML (or JSON) seed file. Records are decoded through JSON
// so the form field names match the API's.
func loadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", path, err)
	}
	var seed SeedFile
	if err := json.Unmarshal(asJSON, &seed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &seed, nil
}

type seeder struct {
	apiURL string
	token  string
	client *http.Client
}

// create posts payload and returns the id of the created record.
func (s *seeder) create(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return created.ID, nil
}
