package labdata

import (
	"fmt"
	"strings"
	"time"
)

// Column names of the identity part of a row.
const (
	ColName      = "naam"
	ColPatientID = "patient_id"
	ColVisitDate = "datum"
	ColBirthDate = "geboortedatum"
	ColStreet    = "straat"
	ColCity      = "stad"
)

// DateLayout is the ISO calendar date layout used for every date field.
const DateLayout = "2006-01-02"

// Profile is the raw material for one patient identity.
type Profile struct {
	Name      string
	Address   string // newline-separated address lines
	BirthDate time.Time
}

// ProfileSource produces realistic-looking random profiles.
type ProfileSource interface {
	Profile(rng Rand) Profile
}

// Window is an inclusive range of days before "today".
type Window struct {
	MinDays int
	MaxDays int
}

// DefaultVisitWindow places visits 1 to 160 days in the past.
var DefaultVisitWindow = Window{MinDays: 1, MaxDays: 160}

// Validate checks the window bounds.
func (w Window) Validate() error {
	if w.MinDays < 0 || w.MaxDays < w.MinDays {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidWindow, w.MinDays, w.MaxDays)
	}
	return nil
}

// Patient is one synthetic identity of the pool.
type Patient struct {
	Name      string
	PatientID string
	VisitDate string
	BirthDate string
	Street    string
	City      string
}

// Row renders the patient as a new row in column order.
func (p Patient) Row() *Row {
	return NewRow(
		Field{Key: ColName, Value: p.Name},
		Field{Key: ColPatientID, Value: p.PatientID},
		Field{Key: ColVisitDate, Value: p.VisitDate},
		Field{Key: ColBirthDate, Value: p.BirthDate},
		Field{Key: ColStreet, Value: p.Street},
		Field{Key: ColCity, Value: p.City},
	)
}

// PatientID returns the pseudo-random id of pool slot i. The mapping is
// deterministic and not injective.
func PatientID(i int) string {
	return fmt.Sprintf("%05d", (i+1)*41232%100003)
}

// SplitAddress returns the first address line as the street and the
// remaining lines joined by single spaces as the city.
func SplitAddress(address string) (street, city string) {
	lines := strings.Split(address, "\n")
	return lines[0], strings.Join(lines[1:], " ")
}

// CreatePatients builds a pool of n identities.
func CreatePatients(rng Rand, profiles ProfileSource, n int, today time.Time, window Window) []Patient {
	if n <= 0 {
		return []Patient{}
	}
	patients := make([]Patient, 0, n)
	for i := 0; i < n; i++ {
		profile := profiles.Profile(rng)
		street, city := SplitAddress(profile.Address)
		visit := today.AddDate(0, 0, -between(rng, window.MinDays, window.MaxDays))
		patients = append(patients, Patient{
			Name:      profile.Name,
			PatientID: PatientID(i),
			VisitDate: visit.Format(DateLayout),
			BirthDate: profile.BirthDate.Format(DateLayout),
			Street:    street,
			City:      city,
		})
	}
	return patients
}
