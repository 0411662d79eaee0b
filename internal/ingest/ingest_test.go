package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/mohammad-safakhou/sitechat/internal/crawler"
	"github.com/mohammad-safakhou/sitechat/internal/store"
	"github.com/mohammad-safakhou/sitechat/internal/vectorindex"
)

type fakeStore struct {
	mu        sync.Mutex
	sites     map[int64]*store.Site
	pages     []store.Page
	vectorIDs map[int64]string
	statuses  []store.SiteStatus
	createErr error
}

func newFakeStore(sites ...store.Site) *fakeStore {
	fs := &fakeStore{sites: map[int64]*store.Site{}, vectorIDs: map[int64]string{}}
	for i := range sites {
		s := sites[i]
		fs.sites[s.ID] = &s
	}
	return fs
}

func (f *fakeStore) GetSite(_ context.Context, id int64) (store.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sites[id]
	if !ok {
		return store.Site{}, store.ErrNotFound
	}
	return *s, nil
}

func (f *fakeStore) ClaimScraping(_ context.Context, id int64) (store.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sites[id]
	if !ok {
		return store.Site{}, store.ErrNotFound
	}
	if s.Status == store.SiteStatusScraping {
		return store.Site{}, store.ErrAlreadyScraping
	}
	s.Status = store.SiteStatusScraping
	f.statuses = append(f.statuses, s.Status)
	return *s, nil
}

func (f *fakeStore) SetSiteStatus(_ context.Context, id int64, status store.SiteStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sites[id]
	if !ok {
		return store.ErrNotFound
	}
	s.Status = status
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeStore) CompleteSite(_ context.Context, id int64, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sites[id]
	s.Status = store.SiteStatusComplete
	s.TotalPages = total
	f.statuses = append(f.statuses, s.Status)
	return nil
}

func (f *fakeStore) CreatePage(_ context.Context, siteID int64, url string, title *string, content string) (store.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return store.Page{}, f.createErr
	}
	p := store.Page{ID: int64(len(f.pages) + 1), SiteID: siteID, URL: url, Title: title, Content: content}
	f.pages = append(f.pages, p)
	return p, nil
}

func (f *fakeStore) SetPageVectorID(_ context.Context, pageID int64, vectorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectorIDs[pageID] = vectorID
	return nil
}

type fakeCrawler struct {
	pages   []crawler.Page
	err     error
	panics  bool
	gotSeed string
	gotMax  int
}

func (c *fakeCrawler) ResolveAndScrape(_ context.Context, seed string, maxPages int) ([]crawler.Page, error) {
	c.gotSeed, c.gotMax = seed, maxPages
	if c.panics {
		panic("parser exploded")
	}
	return c.pages, c.err
}

type fakeIndex struct {
	failFor map[string]bool
	docs    []vectorindex.Document
}

func (i *fakeIndex) AddPage(_ context.Context, doc vectorindex.Document) (string, error) {
	if i.failFor[doc.URL] {
		return "", errors.New("qdrant unavailable")
	}
	i.docs = append(i.docs, doc)
	return "vec-" + doc.URL, nil
}

func quiet() *log.Logger { return log.New(io.Discard, "", 0) }

func pendingSite() store.Site {
	return store.Site{ID: 1, URL: "https://example.com/sitemap.xml", Status: store.SiteStatusPending}
}

func TestIngestSuccess(t *testing.T) {
	st := newFakeStore(pendingSite())
	cr := &fakeCrawler{pages: []crawler.Page{
		{URL: "https://example.com/a", Title: "A", Content: "alpha"},
		{URL: "https://example.com/b", Title: "B", Content: "beta"},
	}}
	idx := &fakeIndex{}
	out := New(st, cr, idx, 10, quiet()).Ingest(context.Background(), 1)

	if out.Status != StatusSuccess || out.PagesScraped != 2 || out.SiteID != 1 {
		t.Fatalf("unexpected outcome %#v", out)
	}
	if cr.gotSeed != "https://example.com/sitemap.xml" || cr.gotMax != 10 {
		t.Fatalf("crawler called with %q/%d", cr.gotSeed, cr.gotMax)
	}
	site := st.sites[1]
	if site.Status != store.SiteStatusComplete || site.TotalPages != 2 {
		t.Fatalf("unexpected site state %#v", site)
	}
	if len(st.pages) != 2 || st.vectorIDs[1] != "vec-https://example.com/a" || st.vectorIDs[2] != "vec-https://example.com/b" {
		t.Fatalf("unexpected pages %#v vectors %#v", st.pages, st.vectorIDs)
	}
	if idx.docs[0].PageID != 1 || idx.docs[0].SiteID != 1 || idx.docs[0].Title != "A" {
		t.Fatalf("unexpected indexed doc %#v", idx.docs[0])
	}
	want := []store.SiteStatus{store.SiteStatusScraping, store.SiteStatusComplete}
	if len(st.statuses) != len(want) || st.statuses[0] != want[0] || st.statuses[1] != want[1] {
		t.Fatalf("unexpected status transitions %v", st.statuses)
	}
}

func TestIngestAlreadyClaimedByTrigger(t *testing.T) {
	site := pendingSite()
	site.Status = store.SiteStatusScraping
	st := newFakeStore(site)
	cr := &fakeCrawler{pages: []crawler.Page{{URL: "https://example.com/a", Title: "A", Content: "alpha"}}}
	out := New(st, cr, &fakeIndex{}, 10, quiet()).Ingest(context.Background(), 1)
	if out.Status != StatusSuccess {
		t.Fatalf("expected success when the trigger already claimed the site, got %#v", out)
	}
}

func TestIngestSiteNotFound(t *testing.T) {
	out := New(newFakeStore(), &fakeCrawler{}, &fakeIndex{}, 10, quiet()).Ingest(context.Background(), 42)
	if out.Status != StatusError || out.Message != "site not found" || out.SiteID != 42 {
		t.Fatalf("unexpected outcome %#v", out)
	}
}

func TestIngestNoPages(t *testing.T) {
	site := pendingSite()
	site.TotalPages = 7
	st := newFakeStore(site)
	out := New(st, &fakeCrawler{}, &fakeIndex{}, 10, quiet()).Ingest(context.Background(), 1)
	if out.Status != StatusError || out.Message != "No pages were scraped" {
		t.Fatalf("unexpected outcome %#v", out)
	}
	if st.sites[1].Status != store.SiteStatusFailed {
		t.Fatalf("expected failed, got %s", st.sites[1].Status)
	}
	if st.sites[1].TotalPages != 7 {
		t.Fatalf("total_pages must be untouched, got %d", st.sites[1].TotalPages)
	}
}

func TestIngestIndexFailureKeepsPage(t *testing.T) {
	st := newFakeStore(pendingSite())
	cr := &fakeCrawler{pages: []crawler.Page{
		{URL: "https://example.com/a", Title: "A", Content: "alpha"},
		{URL: "https://example.com/b", Title: "B", Content: "beta"},
	}}
	idx := &fakeIndex{failFor: map[string]bool{"https://example.com/a": true}}
	out := New(st, cr, idx, 10, quiet()).Ingest(context.Background(), 1)

	if out.Status != StatusSuccess || out.PagesScraped != 2 {
		t.Fatalf("unexpected outcome %#v", out)
	}
	if _, ok := st.vectorIDs[1]; ok {
		t.Fatalf("page without a vector must not get a vector id")
	}
	if st.vectorIDs[2] == "" {
		t.Fatalf("second page should be indexed")
	}
	if st.sites[1].TotalPages != 2 {
		t.Fatalf("total_pages counts persisted pages, got %d", st.sites[1].TotalPages)
	}
}

func TestIngestPersistenceErrorMarksFailed(t *testing.T) {
	st := newFakeStore(pendingSite())
	st.createErr = errors.New("disk full")
	cr := &fakeCrawler{pages: []crawler.Page{{URL: "https://example.com/a", Title: "A", Content: "alpha"}}}
	out := New(st, cr, &fakeIndex{}, 10, quiet()).Ingest(context.Background(), 1)
	if out.Status != StatusError || out.Message == "" {
		t.Fatalf("unexpected outcome %#v", out)
	}
	if st.sites[1].Status != store.SiteStatusFailed {
		t.Fatalf("expected failed, got %s", st.sites[1].Status)
	}
}

func TestIngestCrawlErrorAfterCancel(t *testing.T) {
	st := newFakeStore(pendingSite())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := New(st, &fakeCrawler{err: context.Canceled}, &fakeIndex{}, 10, quiet()).Ingest(ctx, 1)
	if out.Status != StatusError {
		t.Fatalf("unexpected outcome %#v", out)
	}
	if st.sites[1].Status != store.SiteStatusFailed {
		t.Fatalf("cancelled run must still mark failed, got %s", st.sites[1].Status)
	}
}

func TestIngestRecoversPanic(t *testing.T) {
	st := newFakeStore(pendingSite())
	out := New(st, &fakeCrawler{panics: true}, &fakeIndex{}, 10, quiet()).Ingest(context.Background(), 1)
	if out.Status != StatusError || out.Message != "parser exploded" {
		t.Fatalf("unexpected outcome %#v", out)
	}
	if st.sites[1].Status != store.SiteStatusFailed {
		t.Fatalf("expected failed after panic, got %s", st.sites[1].Status)
	}
}
