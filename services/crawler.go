package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chanakanakandala/ikman-lk-housing-data/models"
	"github.com/chanakanakandala/ikman-lk-housing-data/storage"
)

// PageFetcher is the listing source consumed by the crawler.
type PageFetcher interface {
	FetchPage(ctx context.Context, loc models.Location, page int) (*models.SerpPage, error)
	AdURL(slug string) string
}

// Crawler drives paginated retrieval for a batch of locations, filters and
// normalizes the returned ads, and persists accepted records to the
// snapshot store. Locations are processed sequentially with one request in
// flight at a time.
type Crawler struct {
	fetcher     PageFetcher
	snapshots   storage.SnapshotAppender
	ledger      storage.RunLedger
	logger      *zap.SugaredLogger
	skipPhrases []string
	onPage      func(models.PageEvent)
	now         func() time.Time
}

// NewCrawler creates a Crawler. skipPhrases are matched case-insensitively
// against ad titles; any hit rejects the ad.
func NewCrawler(
	fetcher PageFetcher,
	snapshots storage.SnapshotAppender,
	ledger storage.RunLedger,
	skipPhrases []string,
	logger *zap.SugaredLogger,
) *Crawler {
	lowered := make([]string, len(skipPhrases))
	for i, p := range skipPhrases {
		lowered[i] = strings.ToLower(p)
	}
	return &Crawler{
		fetcher:     fetcher,
		snapshots:   snapshots,
		ledger:      ledger,
		logger:      logger,
		skipPhrases: lowered,
		now:         time.Now,
	}
}

// OnPage registers a callback invoked after each successfully processed
// page. Used by front-ends for progress display.
func (c *Crawler) OnPage(fn func(models.PageEvent)) {
	c.onPage = fn
}

// Crawl scrapes every location in order and appends one aggregate run
// record to the ledger. Per-location failures truncate that location only;
// the batch always completes and always produces a run record.
func (c *Crawler) Crawl(ctx context.Context, locations []models.Location) (*models.RunRecord, error) {
	date := c.now().Format("2006-01-02")

	rec := models.RunRecord{
		Timestamp:        c.now().Format("2006-01-02 15:04:05"),
		Date:             date,
		LocationsScraped: make([]string, 0, len(locations)),
		SnapshotFile:     c.snapshots.PathFor(date),
	}

	for _, loc := range locations {
		sum := c.scrapeLocation(ctx, loc, date)
		rec.LocationsScraped = append(rec.LocationsScraped, sum.LocationName)
		rec.TotalPagesScraped += sum.PagesScraped
		rec.TotalAdsScraped += sum.AdsScraped
		if sum.Truncated {
			rec.Truncated = true
		}
		c.logger.Infof("[crawl] %s done — %d pages, %d ads (truncated=%v)",
			loc.Name, sum.PagesScraped, sum.AdsScraped, sum.Truncated)
	}

	if err := c.ledger.Append(rec); err != nil {
		return &rec, err
	}
	return &rec, nil
}

// scrapeLocation walks one location's pages. The first transport failure
// ends the walk; everything appended so far stays in the snapshot.
func (c *Crawler) scrapeLocation(ctx context.Context, loc models.Location, date string) models.LocationSummary {
	sum := models.LocationSummary{LocationName: loc.Name}

	current, err := c.fetcher.FetchPage(ctx, loc, 1)
	if err != nil {
		c.logger.Warnf("[crawl] %s: page 1 failed, skipping location: %v", loc.Slug, err)
		sum.Truncated = true
		return sum
	}

	totalPages := TotalPages(current.Pagination)
	if totalPages == 0 && len(current.Ads) > 0 {
		// Pagination metadata can be missing; don't discard a page we
		// already hold.
		totalPages = 1
	}

	for page := 1; page <= totalPages; page++ {
		if page > 1 {
			current, err = c.fetcher.FetchPage(ctx, loc, page)
			if err != nil {
				c.logger.Warnf("[crawl] %s: page %d failed, stopping: %v", loc.Slug, page, err)
				sum.Truncated = true
				break
			}
		}

		records := c.parseAds(current.Ads, loc.Slug, date)
		if len(records) > 0 {
			if _, err := c.snapshots.Append(date, records); err != nil {
				c.logger.Errorf("[crawl] %s: snapshot append failed, stopping: %v", loc.Slug, err)
				sum.Truncated = true
				break
			}
			sum.AdsScraped += len(records)
		}
		sum.PagesScraped++

		if c.onPage != nil {
			c.onPage(models.PageEvent{
				Location:    loc.Name,
				Page:        page,
				TotalPages:  totalPages,
				AdsAccepted: len(records),
				AdsSeen:     len(current.Ads),
			})
		}
	}

	return sum
}

// parseAds converts accepted ads into listing records, dropping any whose
// title contains a skip phrase.
func (c *Crawler) parseAds(ads []models.Ad, areaSlug, date string) []*models.ListingRecord {
	records := make([]*models.ListingRecord, 0, len(ads))
	for _, ad := range ads {
		if c.shouldSkip(ad.Title) {
			continue
		}
		records = append(records, &models.ListingRecord{
			AreaSlug:    areaSlug,
			Date:        date,
			Location:    ad.Location,
			Title:       ad.Title,
			Description: ad.Description,
			Details:     ad.Details,
			Price:       CleanPrice(ad.Price),
			SellerName:  ad.ShopName,
			URL:         c.fetcher.AdURL(ad.Slug),
		})
	}
	return records
}

func (c *Crawler) shouldSkip(title string) bool {
	lowered := strings.ToLower(title)
	for _, phrase := range c.skipPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// TotalPages derives the page count from pagination metadata:
// floor(total / pageSize), with a zero page size treated as zero pages.
func TotalPages(p models.Pagination) int {
	if p.PageSize == 0 {
		return 0
	}
	return p.Total / p.PageSize
}

// CleanPrice normalizes a free-text price like "Rs 19,500,000" to 19500000.
// Anything that does not reduce to an integer becomes 0, never an error.
func CleanPrice(raw string) int {
	cleaned := strings.ReplaceAll(raw, "Rs", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}
