package similarity

import (
	"strings"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

// titleWeight is how many times the role/title field is repeated in a
// document, so a profession match outweighs generic description terms.
const titleWeight = 3

// Source is anything that can be turned into a ranking document. The only
// implementations are ProfileSource and ListingSource.
type Source interface {
	Document() string
	isSource()
}

// ProfileSource wraps a reference profile
type ProfileSource struct {
	Profile models.ReferenceProfile
}

// ListingSource wraps a scraped listing
type ListingSource struct {
	Listing models.JobListing
}

// FromProfile returns the Source for a reference profile
func FromProfile(p models.ReferenceProfile) Source {
	return ProfileSource{Profile: p}
}

// FromListing returns the Source for a listing
func FromListing(l models.JobListing) Source {
	return ListingSource{Listing: l}
}

func (ProfileSource) isSource() {}
func (ListingSource) isSource() {}

// Document builds the weighted text of a reference profile
func (s ProfileSource) Document() string {
	p := s.Profile
	return buildDocument(p.Role, p.Location, p.Salary, p.Experience, p.Description)
}

// Document builds the weighted text of a listing
func (s ListingSource) Document() string {
	l := s.Listing
	salary := l.Salary
	if salary == models.NoValue {
		salary = ""
	}
	return buildDocument(
		l.Title,
		l.Location,
		salary,
		l.Detail(models.SectionExperience),
		l.Detail(models.SectionDescription),
	)
}

func buildDocument(title, location, salary, experience, description string) string {
	parts := make([]string, 0, titleWeight+4)
	for i := 0; i < titleWeight; i++ {
		parts = append(parts, title)
	}
	parts = append(parts, location, salary, experience, description)
	return strings.Join(parts, " ")
}
