package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	hikeplan "github.com/gezmi/plan-hikes"
	"github.com/gezmi/plan-hikes/downloader"
	"github.com/gezmi/plan-hikes/elevation"
	"github.com/gezmi/plan-hikes/logging"
	"github.com/gezmi/plan-hikes/model"
	"github.com/gezmi/plan-hikes/parse"
	"github.com/gezmi/plan-hikes/schedule"
	"github.com/gezmi/plan-hikes/shabbat"
	"github.com/gezmi/plan-hikes/trails"
)

var rootCmd = &cobra.Command{
	Use:          "hikeplan",
	Short:        "Plans bus-reachable day hikes in Israel",
	Long:         "Finds trails reachable by public transport, sizes the hike to the bus schedule, and gets you home before dark.",
	SilenceUsage: true,
}

var (
	dataDir      string
	logLevel     string
	logFormat    string
	postgresConn string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "", "./data", "Directory for downloads and indexes")
	rootCmd.PersistentFlags().StringVarP(&postgresConn, "postgres", "", "", "Postgres connection string; keeps the schedule there instead of SQLite")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&logFormat, "log-format", "", "text", "Log format (text, json)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Setup(logLevel, logFormat)
		return os.MkdirAll(dataDir, 0755)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func dateLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseDate(s string) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", s, dateLocation())
	if err != nil {
		return time.Time{}, fmt.Errorf("'%s' is not on form YYYY-MM-DD", s)
	}
	return date, nil
}

func newDownloader() (downloader.Downloader, error) {
	return downloader.NewFilesystem(filepath.Join(dataDir, "download-cache.json"))
}

func indexPath() string {
	return filepath.Join(dataDir, "trail_index.json")
}

// openStore opens the date's schedule index, building it from the
// national feed on first use.
func openStore(ctx context.Context, date time.Time) (schedule.Store, error) {
	if postgresConn != "" {
		return openPostgresStore(ctx, date)
	}

	path := filepath.Join(dataDir, "schedule-"+date.Format("20060102")+".db")

	store, err := schedule.OpenSQLite(path)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, model.ErrMissingIndex) {
		return nil, err
	}

	feed, err := fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("building schedule index", "date", date.Format("2006-01-02"))
	if err := schedule.BuildSQLite(path, feed, date); err != nil {
		return nil, err
	}

	return schedule.OpenSQLite(path)
}

// openPostgresStore reuses the snapshot in Postgres when it covers the
// requested date, rebuilding it otherwise.
func openPostgresStore(ctx context.Context, date time.Time) (schedule.Store, error) {
	store, err := schedule.OpenPostgres(postgresConn)
	if err == nil && store.Date() == date.Format("20060102") {
		return store, nil
	}
	if err == nil {
		store.Close()
	}

	feed, err := fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	slog.Info("building schedule snapshot in postgres", "date", date.Format("2006-01-02"))
	if err := schedule.BuildPostgres(postgresConn, feed, date); err != nil {
		return nil, err
	}

	return schedule.OpenPostgres(postgresConn)
}

func fetchFeed(ctx context.Context) (*parse.Feed, error) {
	d, err := newDownloader()
	if err != nil {
		return nil, err
	}
	return hikeplan.FetchFeed(ctx, d)
}

// loadTrails reads the trail index, building it on first use.
func loadTrails(ctx context.Context) ([]*model.Trail, error) {
	trailList, err := trails.LoadIndex(indexPath())
	if err == nil {
		return trailList, nil
	}
	if !errors.Is(err, model.ErrMissingIndex) {
		return nil, err
	}
	return buildTrailIndex(ctx)
}

func buildTrailIndex(ctx context.Context) ([]*model.Trail, error) {
	d, err := newDownloader()
	if err != nil {
		return nil, err
	}

	trailList, err := hikeplan.FetchTrails(ctx, d)
	if err != nil {
		return nil, err
	}

	sampler := elevation.NewSampler(filepath.Join(dataDir, "srtm"))
	enriched := sampler.EnrichTrails(trailList)
	slog.Info("elevation sampled", "enriched", enriched, "total", len(trailList))

	if err := trails.SaveIndex(indexPath(), trailList); err != nil {
		return nil, err
	}
	slog.Info("trail index written", "path", indexPath())

	return trailList, nil
}

// plannerFor assembles a planner for one query: schedule store for the
// date, trail index, and the day's return deadline.
func plannerFor(ctx context.Context, query model.HikeQuery) (*hikeplan.Planner, error) {
	d, err := newDownloader()
	if err != nil {
		return nil, err
	}

	deadline, err := shabbat.NewClient(d).Deadline(ctx, query.Date, query.SafetyMarginHours)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, query.Date)
	if err != nil {
		return nil, err
	}

	trailList, err := loadTrails(ctx)
	if err != nil {
		return nil, err
	}

	return hikeplan.New(store, trailList, deadline, query)
}
