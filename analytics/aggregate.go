// Package analytics turns recorded page views into dashboard statistics and keeps an
// optional live counter of today's views in redis.
package analytics

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/adonese/folio/cms_fields"
)

const (
	dayLayout      = "2006-01-02"
	directReferrer = "direct"
	defaultTopN    = 10
)

// DailyCount is one point of the daily series.
type DailyCount struct {
	Date     string `json:"date"`
	Views    int    `json:"views"`
	Visitors int    `json:"visitors"`
}

// Ranked is a key with its count in a top-N list.
type Ranked struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Stats summarises the views of one window.
type Stats struct {
	From         string       `json:"from"`
	To           string       `json:"to"`
	Total        int          `json:"total"`
	Unique       int          `json:"unique"`
	Daily        []DailyCount `json:"daily"`
	TopPages     []Ranked     `json:"top_pages"`
	TopReferrers []Ranked     `json:"top_referrers"`
}

// Aggregate builds Stats for every UTC day from the day of from to the day of to, both
// included, from raw rows. Views outside those days are ignored. Referrers pointing at one of
// siteHosts count as direct traffic.
func Aggregate(views []cms_fields.PageView, from, to time.Time, topN int, siteHosts ...string) Stats {
	first, last := span(from, to)
	dayIndex := map[string]int{}
	visitors := map[string]struct{}{}
	dailyVisitors := map[string]map[string]struct{}{}
	pages := map[string]int{}
	referrers := map[string]int{}

	var rollup cms_fields.ViewRollup
	for _, v := range views {
		d := day(v.CreatedAt)
		if d.Before(first) || d.After(last) {
			continue
		}
		key := d.Format(dayLayout)
		i, ok := dayIndex[key]
		if !ok {
			i = len(rollup.Days)
			dayIndex[key] = i
			rollup.Days = append(rollup.Days, cms_fields.ViewDay{Date: key})
			dailyVisitors[key] = map[string]struct{}{}
		}
		rollup.Days[i].Views++
		if v.VisitorHash != "" {
			visitors[v.VisitorHash] = struct{}{}
			dailyVisitors[key][v.VisitorHash] = struct{}{}
		}
		pages[v.Path]++
		referrers[v.Referrer]++
	}
	for i := range rollup.Days {
		rollup.Days[i].Visitors = len(dailyVisitors[rollup.Days[i].Date])
	}
	rollup.Visitors = len(visitors)
	rollup.Pages = counts(pages)
	rollup.Referrers = counts(referrers)
	return Summarize(rollup, from, to, topN, siteHosts...)
}

// Summarize turns counts from the database into Stats: every day of the window is present,
// referrers are folded to hosts and both top lists are ranked and cut to topN.
func Summarize(rollup cms_fields.ViewRollup, from, to time.Time, topN int, siteHosts ...string) Stats {
	if topN <= 0 {
		topN = defaultTopN
	}
	first, last := span(from, to)
	stats := Stats{From: first.Format(dayLayout), To: last.Format(dayLayout)}

	byDate := make(map[string]cms_fields.ViewDay, len(rollup.Days))
	for _, d := range rollup.Days {
		byDate[d.Date] = d
	}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		counted := byDate[key]
		stats.Daily = append(stats.Daily, DailyCount{Date: key, Views: counted.Views, Visitors: counted.Visitors})
		stats.Total += counted.Views
	}
	stats.Unique = rollup.Visitors

	own := make(map[string]struct{}, len(siteHosts))
	for _, h := range siteHosts {
		if h = normalizeHost(h); h != "" {
			own[h] = struct{}{}
		}
	}
	pages := make(map[string]int, len(rollup.Pages))
	for _, p := range rollup.Pages {
		pages[p.Label] += p.Count
	}
	referrers := map[string]int{}
	for _, r := range rollup.Referrers {
		referrers[ReferrerHost(r.Label, own)] += r.Count
	}
	stats.TopPages = top(pages, topN)
	stats.TopReferrers = top(referrers, topN)
	return stats
}

func span(from, to time.Time) (time.Time, time.Time) {
	first, last := day(from), day(to)
	if last.Before(first) {
		return last, first
	}
	return first, last
}

func counts(m map[string]int) []cms_fields.ViewCount {
	out := make([]cms_fields.ViewCount, 0, len(m))
	for k, n := range m {
		out = append(out, cms_fields.ViewCount{Label: k, Count: n})
	}
	return out
}

// ReferrerHost reduces a referrer URL to its host. Empty, unparsable and same-site referrers
// are reported as "direct".
func ReferrerHost(ref string, own map[string]struct{}) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return directReferrer
	}
	if !strings.Contains(ref, "://") {
		ref = "http://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return directReferrer
	}
	host := normalizeHost(u.Hostname())
	if host == "" {
		return directReferrer
	}
	if _, ok := own[host]; ok {
		return directReferrer
	}
	return host
}

func normalizeHost(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if strings.Contains(h, "://") {
		if u, err := url.Parse(h); err == nil {
			h = u.Hostname()
		}
	}
	return strings.TrimPrefix(h, "www.")
}

// top sorts by count, ties alphabetically, and keeps n entries.
func top(counts map[string]int, n int) []Ranked {
	out := make([]Ranked, 0, len(counts))
	for k, c := range counts {
		out = append(out, Ranked{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Compare returns the percent change from previous to current, rounded to one decimal.
// Growth from zero counts as 100%.
func Compare(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	change := float64(current-previous) / float64(previous) * 100
	return math.Round(change*10) / 10
}

func day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
