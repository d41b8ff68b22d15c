// Package patients provides the read-only patient directory loaded from a
// CSV export of the ward's records.
package patients

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Patient is one row of the directory.
type Patient struct {
	ID            string
	Name          string
	SSN           string
	Room          string
	Condition     string
	Diagnosis     string
	Treatments    string
	AssignedNurse string
	LastUpdate    string
	CareDetails   string
}

// Details renders the patient record as the flat key/value string fed into
// prompt templates.
func (p *Patient) Details() string {
	return fmt.Sprintf(
		"Patient Name: %s, Room Number: %s, Condition: %s, Diagnosis: %s, "+
			"Undergoing Treatments: %s, Assigned Nurse: %s, Last Update: %s, "+
			"Patient Care Details: %s",
		p.Name, p.Room, p.Condition, p.Diagnosis,
		p.Treatments, p.AssignedNurse, p.LastUpdate, p.CareDetails,
	)
}

// Directory answers free-text patient lookups.
type Directory struct {
	patients []Patient
}

// NewDirectory wraps an in-memory patient list.
func NewDirectory(patients []Patient) *Directory {
	return &Directory{patients: patients}
}

// columns maps CSV header names to row field setters.
var columns = map[string]func(*Patient, string){
	"Patient ID":            func(p *Patient, v string) { p.ID = v },
	"Patient Name":          func(p *Patient, v string) { p.Name = v },
	"SSN":                   func(p *Patient, v string) { p.SSN = v },
	"Room Number":           func(p *Patient, v string) { p.Room = v },
	"Condition":             func(p *Patient, v string) { p.Condition = v },
	"Diagnosis":             func(p *Patient, v string) { p.Diagnosis = v },
	"Undergoing Treatments": func(p *Patient, v string) { p.Treatments = v },
	"Assigned Nurse ID":     func(p *Patient, v string) { p.AssignedNurse = v },
	"Last Update":           func(p *Patient, v string) { p.LastUpdate = v },
	"Patient Care Details":  func(p *Patient, v string) { p.CareDetails = v },
}

// Load reads the patient directory from a CSV file with a header row.
// Unknown columns are ignored so the export format can grow.
func Load(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patient data: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read patient data: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("patient data %s has no header row", path)
	}

	header := records[0]
	setters := make([]func(*Patient, string), len(header))
	for i, name := range header {
		setters[i] = columns[strings.TrimSpace(name)]
	}

	patients := make([]Patient, 0, len(records)-1)
	for _, row := range records[1:] {
		var p Patient
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&p, strings.TrimSpace(v))
			}
		}
		patients = append(patients, p)
	}

	return &Directory{patients: patients}, nil
}

// Len returns the number of patients in the directory.
func (d *Directory) Len() int {
	return len(d.patients)
}

// Detect scans free text for a patient reference and returns the first
// match. Room-number matches take priority over name matches, mirroring
// how nurses usually phrase requests ("room 12" beats a name buried in a
// note). Name matching is a case-insensitive substring check.
func (d *Directory) Detect(text string) (*Patient, bool) {
	for i := range d.patients {
		room := d.patients[i].Room
		if room != "" && strings.Contains(text, room) {
			return &d.patients[i], true
		}
	}

	lower := strings.ToLower(text)
	for i := range d.patients {
		name := strings.ToLower(d.patients[i].Name)
		if name != "" && strings.Contains(lower, name) {
			return &d.patients[i], true
		}
	}
	return nil, false
}
