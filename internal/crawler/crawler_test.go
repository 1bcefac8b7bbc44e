package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"

	"golang.org/x/time/rate"

	"github.com/chengzr01/jobscout/internal/storage"
)

// --- Fake saver ---

type fakeSaver struct {
	mu   sync.Mutex
	jobs []storage.Job
	err  error
}

func (f *fakeSaver) SaveJob(j storage.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, j)
	return nil
}

func (f *fakeSaver) saved() []storage.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.Job(nil), f.jobs...)
}

// --- Test pages ---

func jobCard(title, location, level, corporate string, reqs ...string) string {
	var sb strings.Builder
	sb.WriteString(`<div class="sMn82b">`)
	sb.WriteString("<h3>" + title + "</h3>")
	sb.WriteString(`<span class="r0wTof">` + location + `</span>`)
	sb.WriteString(`<span class="wVSTAb">` + level + `</span>`)
	sb.WriteString(`<span class="RP7SMd"><span>` + corporate + `</span></span>`)
	if len(reqs) > 0 {
		sb.WriteString("<ul>")
		for _, r := range reqs {
			sb.WriteString("<li>" + r + "</li>")
		}
		sb.WriteString("</ul>")
	}
	sb.WriteString("</div>")
	return sb.String()
}

func resultsPage(hasNext bool, cards ...string) string {
	body := strings.Join(cards, "\n")
	if hasNext {
		body += `<a class="WpHeLc VfPpkd-mRLv6" href="?page=2">Next</a>`
	}
	return "<html><body>" + body + "</body></html>"
}

func fastCrawler(saver Saver) *Crawler {
	return New(saver, WithRateLimit(rate.NewLimiter(rate.Inf, 1)))
}

// --- Tests ---

func TestScrapePage_ParsesCards(t *testing.T) {
	page := resultsPage(false,
		jobCard("Software Engineer", "London, UK", "Senior", "Google", "Go experience", "Distributed systems"),
		jobCard("Product Manager", "Zurich", "Mid", "Google"),
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	saver := &fakeSaver{}
	c := fastCrawler(saver)

	inserted, hasNext, err := c.scrapePage(srv.URL)
	if err != nil {
		t.Fatalf("scrapePage: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("inserted = %d, want 2", inserted)
	}
	if hasNext {
		t.Error("page without next anchor reported hasNext")
	}

	jobs := saver.saved()
	first := jobs[0]
	if first.JobTitle != "Software Engineer" || first.Location != "London, UK" ||
		first.Level != "Senior" || first.Corporate != "Google" {
		t.Errorf("first card parsed wrong: %+v", first)
	}
	if want := []string{"Go experience", "Distributed systems"}; !reflect.DeepEqual(first.Requirements, want) {
		t.Errorf("requirements = %v, want %v", first.Requirements, want)
	}
	if first.ID == "" || first.ID == jobs[1].ID {
		t.Error("each listing must get a unique id")
	}
}

func TestScrapePage_MissingFieldsDegrade(t *testing.T) {
	page := resultsPage(false, `<div class="sMn82b"><h3>Bare Role</h3></div>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	saver := &fakeSaver{}
	if _, _, err := fastCrawler(saver).scrapePage(srv.URL); err != nil {
		t.Fatalf("scrapePage: %v", err)
	}

	jobs := saver.saved()
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	j := jobs[0]
	if j.Location != notSpecified || j.Level != notSpecified || j.Corporate != notSpecified {
		t.Errorf("missing fields should degrade to %q: %+v", notSpecified, j)
	}
	if len(j.Requirements) != 0 {
		t.Errorf("no requirements expected, got %v", j.Requirements)
	}
}

func TestScrapePage_SkipsTitlelessCards(t *testing.T) {
	page := resultsPage(false, `<div class="sMn82b"><span class="r0wTof">Nowhere</span></div>`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	saver := &fakeSaver{}
	inserted, _, err := fastCrawler(saver).scrapePage(srv.URL)
	if err != nil {
		t.Fatalf("scrapePage: %v", err)
	}
	if inserted != 0 || len(saver.saved()) != 0 {
		t.Error("a card without a title must be dropped")
	}
}

func TestScrapePage_DetectsNextAnchor(t *testing.T) {
	page := resultsPage(true, jobCard("SWE", "NYC", "Junior", "Google"))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	_, hasNext, err := fastCrawler(&fakeSaver{}).scrapePage(srv.URL)
	if err != nil {
		t.Fatalf("scrapePage: %v", err)
	}
	if !hasNext {
		t.Error("next anchor not detected")
	}
}

func TestCrawlGoogleCareers_WalksUntilLastPage(t *testing.T) {
	const pages = 3
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.RawQuery)
		page := r.URL.Query().Get("page")
		fmt.Fprint(w, resultsPage(page != "3", jobCard("SWE "+page, "NYC", "L4", "Google")))
	}))
	defer srv.Close()

	saver := &fakeSaver{}
	c := fastCrawler(saver)

	inserted, err := c.crawlGoogleCareers(context.Background(), srv.URL, 1, 0)
	if err != nil {
		t.Fatalf("crawlGoogleCareers: %v", err)
	}
	if inserted != pages {
		t.Errorf("inserted = %d, want %d", inserted, pages)
	}
	if want := []string{"page=1", "page=2", "page=3"}; !reflect.DeepEqual(requested, want) {
		t.Errorf("requested pages %v, want %v", requested, want)
	}
}

func TestCrawlGoogleCareers_EndPageBound(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		// Every page claims to have a next one.
		fmt.Fprint(w, resultsPage(true, jobCard("SWE", "NYC", "L4", "Google")))
	}))
	defer srv.Close()

	saver := &fakeSaver{}
	inserted, err := fastCrawler(saver).crawlGoogleCareers(context.Background(), srv.URL, 2, 4)
	if err != nil {
		t.Fatalf("crawlGoogleCareers: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected pages 2..4 (3 fetches), got %d", calls)
	}
	if inserted != 3 {
		t.Errorf("inserted = %d, want 3", inserted)
	}
}

func TestRun_UnknownSource(t *testing.T) {
	c := fastCrawler(&fakeSaver{})
	if _, err := c.Run(context.Background(), []string{"https://example.com/jobs"}, 1, 1); err == nil {
		t.Fatal("expected error for a source with no registered crawler")
	}
}

func TestIsGoogleCareers(t *testing.T) {
	if !isGoogleCareers(googleCareersBase) {
		t.Error("base URL should route to the Google walker")
	}
	if isGoogleCareers("https://careers.example.com/") {
		t.Error("foreign URL should not route to the Google walker")
	}
}
