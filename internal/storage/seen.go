package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

// SeenListing records when a listing first and last appeared on the board
type SeenListing struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Company   string    `json:"company"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// SeenStore is the persisted set of listings from the previous run
type SeenStore struct {
	LastUpdated time.Time     `json:"last_updated"`
	Listings    []SeenListing `json:"listings"`
}

// LoadSeen reads the store at path. A missing file yields an empty store.
func LoadSeen(path string) (SeenStore, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return SeenStore{Listings: []SeenListing{}}, nil
	}
	if err != nil {
		return SeenStore{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var store SeenStore
	if err := json.Unmarshal(data, &store); err != nil {
		return SeenStore{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return store, nil
}

// SaveSeen writes the store as indented JSON
func SaveSeen(path string, store SeenStore) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding seen store: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Update compares the latest crawl with the store. It returns the URLs not
// seen before and the new store; listings missing from the crawl are dropped.
func (s SeenStore) Update(listings []models.JobListing, now time.Time) (map[string]bool, SeenStore) {
	existing := make(map[string]SeenListing, len(s.Listings))
	for _, l := range s.Listings {
		existing[l.URL] = l
	}

	fresh := make(map[string]bool)
	done := make(map[string]bool, len(listings))
	updated := make([]SeenListing, 0, len(listings))
	for _, l := range listings {
		if done[l.URL] {
			continue
		}
		done[l.URL] = true

		if prev, ok := existing[l.URL]; ok {
			prev.LastSeen = now
			prev.Title = l.Title
			prev.Company = l.Company
			updated = append(updated, prev)
			continue
		}
		fresh[l.URL] = true
		updated = append(updated, SeenListing{
			URL:       l.URL,
			Title:     l.Title,
			Company:   l.Company,
			FirstSeen: now,
			LastSeen:  now,
		})
	}

	return fresh, SeenStore{LastUpdated: now, Listings: updated}
}
