package crawler

import (
	"context"
	"fmt"
	"strings"

	"github.com/gocolly/colly/v2"
	"github.com/google/uuid"

	"github.com/chengzr01/jobscout/internal/storage"
)

const googleCareersBase = "https://www.google.com/about/careers/applications/jobs/results/"

// notSpecified fills fields a listing card does not carry.
const notSpecified = "Not specified"

func isGoogleCareers(url string) bool {
	return strings.HasPrefix(url, googleCareersBase)
}

// crawlGoogleCareers walks the Google careers results listing one page at a
// time, parsing each job card and saving it, until the page carries no next
// anchor or endPage is passed.
func (c *Crawler) crawlGoogleCareers(ctx context.Context, url string, startPage, endPage int) (int, error) {
	base := strings.SplitN(url, "?", 2)[0]
	inserted := 0
	page := startPage
	if page < 1 {
		page = 1
	}

	for {
		if endPage > 0 && page > endPage {
			break
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return inserted, err
		}

		n, hasNext, err := c.scrapePage(fmt.Sprintf("%s?page=%d", base, page))
		if err != nil {
			return inserted, fmt.Errorf("scraping page %d: %w", page, err)
		}
		inserted += n
		c.logger.Info("scraped careers page", "page", page, "inserted", n)

		if !hasNext {
			break
		}
		page++
	}

	return inserted, nil
}

// scrapePage fetches one results page, saves every parsed card, and reports
// whether the page links to a next one.
func (c *Crawler) scrapePage(url string) (inserted int, hasNext bool, err error) {
	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.AllowURLRevisit(),
	)

	var saveErr error
	collector.OnHTML("div.sMn82b", func(e *colly.HTMLElement) {
		job := parseJobCard(e)
		if job.JobTitle == "" {
			return
		}
		if err := c.saver.SaveJob(job); err != nil {
			saveErr = err
			return
		}
		inserted++
	})

	// Pagination anchor at the bottom of the results list.
	collector.OnHTML("a.WpHeLc.VfPpkd-mRLv6", func(e *colly.HTMLElement) {
		hasNext = true
	})

	if err := collector.Visit(url); err != nil {
		return inserted, false, err
	}
	collector.Wait()

	if saveErr != nil {
		return inserted, false, fmt.Errorf("saving listing: %w", saveErr)
	}
	return inserted, hasNext, nil
}

// parseJobCard extracts one listing from a results card. Missing fields
// degrade to "Not specified" rather than dropping the card.
func parseJobCard(e *colly.HTMLElement) storage.Job {
	location := strings.TrimSpace(e.ChildText("span.r0wTof"))
	if location == "" {
		location = notSpecified
	}

	level := strings.TrimSpace(e.ChildText("span.wVSTAb"))
	if level == "" {
		level = strings.TrimSpace(e.ChildText("span.RP7SMd span"))
	}
	if level == "" {
		level = notSpecified
	}

	corporate := strings.TrimSpace(e.ChildText("span.RP7SMd span"))
	if corporate == "" {
		corporate = notSpecified
	}

	var requirements []string
	e.ForEach("ul li", func(_ int, li *colly.HTMLElement) {
		if text := strings.TrimSpace(li.Text); text != "" {
			requirements = append(requirements, text)
		}
	})

	return storage.Job{
		ID:           uuid.New().String(),
		Location:     location,
		JobTitle:     strings.TrimSpace(e.ChildText("h3")),
		Level:        level,
		Corporate:    corporate,
		Requirements: requirements,
	}
}
