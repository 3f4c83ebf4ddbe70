package models

// Location is one entry from the static location registry
// (assets/locations.json). Never mutated after load.
type Location struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Pagination is the serp response's paginationData block.
type Pagination struct {
	Total    int `json:"total"`
	PageSize int `json:"pageSize"`
}

// Ad is one raw listing as returned by the serp API. Price stays a free-text
// string here ("Rs 19,500,000"); normalization happens in the crawler.
type Ad struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Details     string `json:"details"`
	Price       string `json:"price"`
	ShopName    string `json:"shopName"`
	Slug        string `json:"slug"`
}

// SerpPage is one decoded page of serp results.
type SerpPage struct {
	Pagination Pagination `json:"paginationData"`
	Ads        []Ad       `json:"ads"`
}

// ListingRecord is one accepted ad, normalized and ready for the snapshot
// store. Immutable once appended.
type ListingRecord struct {
	AreaSlug    string
	Date        string // observation date, "2006-01-02"
	Location    string
	Title       string
	Description string
	Details     string
	Price       int // normalized; unparseable input becomes 0
	SellerName  string
	URL         string
	Note        string
}

// RunRecord summarizes one crawl invocation. Appended to the run ledger,
// never mutated.
type RunRecord struct {
	Timestamp         string   `json:"timestamp"`
	Date              string   `json:"date"`
	LocationsScraped  []string `json:"locations_scraped"`
	TotalPagesScraped int      `json:"total_pages_scraped"`
	TotalAdsScraped   int      `json:"total_ads_scraped"`
	SnapshotFile      string   `json:"snapshot_file"`
	Truncated         bool     `json:"truncated"`
}

// LocationSummary is the per-location outcome of one crawl.
type LocationSummary struct {
	LocationName string
	PagesScraped int
	AdsScraped   int
	Truncated    bool
}

// PageEvent is emitted after each successfully processed page.
type PageEvent struct {
	Location    string
	Page        int
	TotalPages  int
	AdsAccepted int
	AdsSeen     int
}

// SnapshotTable is the raw contents of one snapshot file: the header row
// plus every data row, in arrival order.
type SnapshotTable struct {
	Header []string
	Rows   [][]string
}

// CleanedRow is one surviving listing in a cleaned dataset.
type CleanedRow struct {
	Location string
	Date     string
	Title    string
	Price    int
	Link     string
}

// CleanupResult is the structured outcome of one merge request.
type CleanupResult struct {
	Success bool
	Message string
	File    string
}
