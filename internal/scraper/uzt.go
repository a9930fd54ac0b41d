package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fr4nk3nst1ner/jobsleuth/internal/client"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/config"
	"github.com/fr4nk3nst1ner/jobsleuth/internal/models"
)

var (
	// ErrNoListings is returned when a crawl collects nothing
	ErrNoListings = errors.New("no job listings found")
	// ErrUnexpectedStatus is returned for any non-200 response
	ErrUnexpectedStatus = errors.New("unexpected status code")
)

const (
	cardSelector     = "div.list > a"
	metaListSelector = "main div.meta__list"
	postedPrefix     = "Įkelta: "
)

// UZT scrapes the Lithuanian public employment service job board
type UZT struct {
	cfg    config.ScraperConfig
	client *http.Client
	logger *slog.Logger
}

// New creates a scraper. A nil client or logger falls back to defaults.
func New(cfg config.ScraperConfig, httpClient *http.Client, logger *slog.Logger) *UZT {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UZT{
		cfg:    cfg,
		client: httpClient,
		logger: logger.With("component", "scraper"),
	}
}

// PageURL returns the results page starting at offset start
func (u *UZT) PageURL(start int) string {
	if start == 0 {
		return u.cfg.ListingURL()
	}
	return fmt.Sprintf("%s/p%d", u.cfg.ListingURL(), start)
}

// Listings walks the result pages until MaxJobs listings are collected, a page
// comes back empty, or a page fails to load. Duplicate URLs are skipped.
func (u *UZT) Listings(ctx context.Context, progress *models.ScrapeProgress) ([]models.JobListing, error) {
	var (
		jobs    []models.JobListing
		seen    = make(map[string]bool)
		pageErr error
	)

	for start := 0; len(jobs) < u.cfg.MaxJobs; start += u.cfg.PageStep {
		pageURL := u.PageURL(start)
		u.logger.Info("loading page", "url", pageURL)

		cards, err := u.fetchListingPage(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return jobs, ctx.Err()
			}
			u.logger.Error("failed to load page", "url", pageURL, "error", err)
			pageErr = err
			break
		}
		if len(cards) == 0 {
			u.logger.Debug("empty page, stopping", "url", pageURL)
			break
		}

		added := 0
		for _, card := range cards {
			if len(jobs) >= u.cfg.MaxJobs {
				u.logger.Info("reached job limit", "max_jobs", u.cfg.MaxJobs)
				break
			}
			if seen[card.URL] {
				u.logger.Debug("skipping duplicate listing", "url", card.URL)
				continue
			}
			seen[card.URL] = true
			jobs = append(jobs, card)
			added++
			if progress != nil {
				progress.FoundJobs = len(jobs)
			}
			u.logger.Info("collected listing", "title", card.Title, "company", card.Company)

			if err := u.pause(ctx, u.cfg.JobDelay); err != nil {
				return jobs, err
			}
		}

		// a page made only of known listings means the board is repeating itself
		if added == 0 || len(jobs) >= u.cfg.MaxJobs {
			break
		}
		if err := u.pause(ctx, u.cfg.PageDelay); err != nil {
			return jobs, err
		}
	}

	u.logger.Info("collected listings", "total", len(jobs), "max_jobs", u.cfg.MaxJobs)
	if len(jobs) == 0 {
		if pageErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoListings, pageErr)
		}
		return nil, ErrNoListings
	}
	return jobs, nil
}

func (u *UZT) fetchListingPage(ctx context.Context, pageURL string) ([]models.JobListing, error) {
	doc, err := u.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(u.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	var cards []models.JobListing
	doc.Find(cardSelector).Each(func(i int, s *goquery.Selection) {
		cards = append(cards, parseCard(s, base))
	})
	return cards, nil
}

func parseCard(s *goquery.Selection, base *url.URL) models.JobListing {
	listing := models.JobListing{
		Title:      textOrNoValue(s, ".title strong"),
		Company:    textOrNoValue(s, ".company"),
		Location:   textOrNoValue(s, ".location"),
		PostedDate: textOrNoValue(s, ".created-date"),
		Salary:     textOrNoValue(s, ".salary"),
		Details:    make(map[string]string),
	}
	listing.PostedDate = strings.TrimSpace(strings.Replace(listing.PostedDate, postedPrefix, "", 1))

	if href, ok := s.Attr("href"); ok {
		if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
			listing.URL = base.ResolveReference(ref).String()
		} else {
			listing.URL = base.String() + href
		}
	}
	return listing
}

func textOrNoValue(s *goquery.Selection, selector string) string {
	found := s.Find(selector).First()
	if found.Length() == 0 {
		return models.NoValue
	}
	return strings.TrimSpace(found.Text())
}

// Details fetches a listing page and returns its headed sections. Blocks one
// and two of the meta list are read; each h4 heading maps to the text of the
// elements following it up to the next heading.
func (u *UZT) Details(ctx context.Context, listingURL string) (map[string]string, error) {
	doc, err := u.fetchDocument(ctx, listingURL)
	if err != nil {
		return nil, err
	}
	return parseDetails(doc), nil
}

func parseDetails(doc *goquery.Document) map[string]string {
	results := make(map[string]string)
	meta := doc.Find(metaListSelector)

	for idx := 1; idx <= 2; idx++ {
		block := meta.Find(fmt.Sprintf("div:nth-of-type(%d)", idx)).First()
		if block.Length() == 0 {
			continue
		}

		block.ChildrenFiltered("h4").Each(func(i int, h4 *goquery.Selection) {
			title := strings.TrimRight(strings.TrimSpace(h4.ChildrenFiltered("strong").First().Text()), ":")
			if title == "" {
				title = fmt.Sprintf("Skyrius %d", i+1)
			}

			var content []string
			h4.NextUntil("h4").Each(func(_ int, sibling *goquery.Selection) {
				content = appendTextNodes(content, sibling)
			})

			if len(content) == 0 {
				results[title] = models.NoValue
			} else {
				results[title] = strings.Join(content, "; ")
			}
		})
	}
	return results
}

// appendTextNodes collects the trimmed, non-empty text nodes under s in document order
func appendTextNodes(out []string, s *goquery.Selection) []string {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			if t := strings.TrimSpace(c.Text()); t != "" {
				out = append(out, t)
			}
			return
		}
		out = appendTextNodes(out, c)
	})
	return out
}

// Enrich fetches the detail page of every listing and merges its sections in
// place. A failed page is recorded under the error section and the run goes
// on; only context cancellation stops it early. onDone, if set, is called after
// each listing.
func (u *UZT) Enrich(ctx context.Context, listings []models.JobListing, onDone func()) error {
	for i := range listings {
		u.logger.Info("checking listing", "n", i+1, "total", len(listings), "url", listings[i].URL)

		details, err := u.Details(ctx, listings[i].URL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			u.logger.Error("failed to scrape details", "url", listings[i].URL, "error", err)
			details = map[string]string{models.SectionError: err.Error()}
		}
		listings[i].MergeDetails(details)

		if onDone != nil {
			onDone()
		}
		if i < len(listings)-1 {
			if err := u.pause(ctx, u.cfg.JobDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (u *UZT) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	client.ApplyHeaders(req, client.Headers{
		UserAgent:      u.cfg.UserAgent,
		AcceptLanguage: u.cfg.AcceptLanguage,
	})

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, pageURL)
	}

	body, err := client.ReadResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// pause sleeps for d plus the configured jitter, returning early on cancellation
func (u *UZT) pause(ctx context.Context, d time.Duration) error {
	if u.cfg.JitterMax > 0 {
		d += u.cfg.JitterMin
		if spread := u.cfg.JitterMax - u.cfg.JitterMin; spread > 0 {
			d += time.Duration(rand.Int63n(int64(spread)))
		}
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
