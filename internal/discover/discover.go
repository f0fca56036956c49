// Package discover locates and downloads MRT RIB dumps for a given day
// from the public RouteViews and RIPE RIS archives. There is no hosted
// index API wired here (see DESIGN.md) — URLs are built directly from
// each collector's well-known archive layout and its known dump
// schedule.
package discover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Collector names one RIB-dump source. RouteViews collectors publish a
// full RIB every 2 hours; RIPE RIS collectors (named "rrcNN") publish
// every 8 hours.
type Collector struct {
	Name  string
	IsRIS bool
}

// DefaultCollectors is a small, broadly representative set spanning
// both archives.
var DefaultCollectors = []Collector{
	{Name: "route-views2"},
	{Name: "route-views.linx"},
	{Name: "rrc00", IsRIS: true},
	{Name: "rrc01", IsRIS: true},
}

var (
	routeViewsHours = []int{0, 2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22}
	risHours        = []int{0, 8, 16}
)

// RibFile is one discovered (not yet necessarily downloaded) RIB dump.
type RibFile struct {
	URL      string
	Filename string
}

// ListForDate enumerates the RIB dumps expected to exist for date across
// collectors, using each collector's known dump schedule. date's time
// portion is ignored; only the calendar day matters.
func ListForDate(date time.Time, collectors []Collector) []RibFile {
	date = date.UTC()
	var out []RibFile
	for _, c := range collectors {
		hours := routeViewsHours
		if c.IsRIS {
			hours = risHours
		}
		for _, h := range hours {
			ts := time.Date(date.Year(), date.Month(), date.Day(), h, 0, 0, 0, time.UTC)
			out = append(out, buildRibFile(c, ts))
		}
	}
	return out
}

func buildRibFile(c Collector, ts time.Time) RibFile {
	var url, basename string
	if c.IsRIS {
		basename = fmt.Sprintf("bview.%04d%02d%02d.%02d%02d.gz", ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute())
		url = fmt.Sprintf("https://data.ris.ripe.net/%s/%04d.%02d/%s", c.Name, ts.Year(), ts.Month(), basename)
	} else {
		basename = fmt.Sprintf("rib.%04d%02d%02d.%02d%02d.bz2", ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute())
		url = fmt.Sprintf("http://archive.routeviews.org/%s/bgpdata/%04d.%02d/RIBS/%s", c.Name, ts.Year(), ts.Month(), basename)
	}

	// Prefix the on-disk name with the archive ("route-views" or "ris")
	// so files from both archives never collide in one directory, without
	// stuttering the prefix when the collector name already carries it
	// (e.g. "route-views2" already starts with "route-views").
	source := "route-views"
	if c.IsRIS {
		source = "ris"
	}

	var filename string
	if strings.HasPrefix(c.Name, source) {
		filename = fmt.Sprintf("%s.%s", c.Name, basename)
	} else {
		filename = fmt.Sprintf("%s.%s.%s", source, c.Name, basename)
	}

	return RibFile{URL: url, Filename: filename}
}

// Download fetches every file in files into dir, skipping any whose
// destination already exists. A failed download aborts the remaining
// batch: ingest runs are only ever launched against a complete day's
// worth of RIBs, so a partial directory is worse than no directory.
func Download(ctx context.Context, dir string, files []RibFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("discover: create %s: %w", dir, err)
	}

	client := &http.Client{Timeout: 5 * time.Minute}

	for _, f := range files {
		dest := filepath.Join(dir, f.Filename)
		if _, err := os.Stat(dest); err == nil {
			continue
		}

		if err := downloadOne(ctx, client, f.URL, dest); err != nil {
			return fmt.Errorf("discover: %s: %w", f.URL, err)
		}
	}

	return nil
}

func downloadOne(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}
