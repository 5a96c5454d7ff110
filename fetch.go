package hikeplan

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/gezmi/plan-hikes/downloader"
	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/parse"
	"github.com/gezmi/plan-hikes/trails"
)

// FetchFeed downloads and parses the national GTFS feed. The download
// is cached for a week; the zip only changes on that cadence.
func FetchFeed(ctx context.Context, d downloader.Downloader) (*parse.Feed, error) {
	slog.Info("fetching GTFS feed", "url", GTFSFeedURL)

	buf, err := d.Get(ctx, GTFSFeedURL, nil, downloader.GetOptions{
		MaxSize:  gtfsMaxSize,
		Timeout:  gtfsTimeout,
		Cache:    true,
		CacheTTL: gtfsCacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFeedUnavailable, err)
	}

	feed, err := parse.ParseFeed(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrFeedUnavailable, err)
	}

	slog.Info("parsed GTFS feed",
		"stops", len(feed.Stops),
		"trips", len(feed.Trips),
		"stop_times", len(feed.StopTimes))
	return feed, nil
}

// FetchTrails queries Overpass for all hiking route relations in
// Israel. Responses are cached for a month; the trail network changes
// slowly.
func FetchTrails(ctx context.Context, d downloader.Downloader) ([]*model.Trail, error) {
	slog.Info("fetching trails from Overpass")

	body, err := d.PostForm(ctx, trails.OverpassURL,
		url.Values{"data": {trails.OverpassQuery}},
		downloader.GetOptions{
			Timeout:  overpassTimeout,
			Cache:    true,
			CacheTTL: overpassCacheTTL,
		})
	if err != nil {
		return nil, fmt.Errorf("overpass query: %w", err)
	}

	parsed, err := trails.ParseOverpass(body)
	if err != nil {
		return nil, err
	}

	slog.Info("parsed trails", "count", len(parsed))
	return parsed, nil
}
