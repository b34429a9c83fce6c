package app

import (
	"context"
	"sort"

	"github.com/liuran001/YandexMusic-Go/bot/platform"
)

// CheckResult is the outcome of classifying one known URL.
type CheckResult struct {
	Platform string            `json:"platform"`
	URL      string            `json:"url"`
	Title    string            `json:"title"`
	Want     platform.ItemType `json:"want"`
	Got      platform.ItemType `json:"got,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// OK reports whether the URL classified as expected.
func (r CheckResult) OK() bool {
	return r.Error == "" && r.Got == r.Want
}

// SelfTest classifies the known URLs of every loaded connector that ships
// them. Connectors without test data are skipped.
func (a *App) SelfTest(ctx context.Context) []CheckResult {
	var results []CheckResult
	for _, name := range a.PlatformManager.List() {
		streamer := a.PlatformManager.MustGet(name)
		provider, ok := streamer.(platform.TestDataProvider)
		if !ok {
			continue
		}
		items := provider.TestData()
		urls := make([]string, 0, len(items))
		for url := range items {
			urls = append(urls, url)
		}
		sort.Strings(urls)

		for _, url := range urls {
			item := items[url]
			res := CheckResult{Platform: name, URL: url, Title: item.Title, Want: item.Type}
			got, err := streamer.GetTypeFromURL(ctx, url)
			if err != nil {
				res.Error = err.Error()
				a.Logger.Warn("self test failed", "platform", name, "url", url, "error", err)
			}
			res.Got = got
			results = append(results, res)
		}
	}
	return results
}
