package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/legislator-panel/internal/fetcher"
)

var (
	scrapeIndexURL   string
	scrapeExtractDir string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Download legislator profile pages into a zip archive",
	Long:  "Reads profile links from a saved link-list page, downloads each profile politely and stores the pages in a zip archive. Links that keep failing are written to a recalcitrant list for a later pass.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:         cfg.Scrape.UserAgent,
			Timeout:           time.Duration(cfg.Scrape.TimeoutSecs) * time.Second,
			MaxRetries:        cfg.Scrape.MaxRetries,
			RequestsPerSecond: cfg.Scrape.RequestsPerSecond,
		})

		if scrapeIndexURL != "" {
			n, err := f.DownloadToFile(ctx, scrapeIndexURL, cfg.Scrape.LinksFile)
			if err != nil {
				return eris.Wrap(err, "scrape: download link list")
			}
			zap.L().Info("scrape: link list saved", zap.String("path", cfg.Scrape.LinksFile), zap.Int64("bytes", n))
		}

		cb := fetcher.NewCircuitBreaker(fetcher.BreakerConfig{
			FailureThreshold: cfg.Scrape.BreakerThreshold,
			Cooldown:         time.Duration(cfg.Scrape.BreakerCooldownSecs) * time.Second,
		})
		failed, err := scrapeArchive(ctx, f, cb, cfg.Scrape.LinksFile, cfg.Scrape.BaseURL, cfg.Scrape.Output)
		if werr := writeLines(cfg.Scrape.FailedFile, failed); werr != nil {
			zap.L().Warn("scrape: could not write recalcitrant list", zap.Error(werr))
		}
		if err != nil {
			return err
		}

		if scrapeExtractDir != "" {
			paths, err := fetcher.ExtractZIP(cfg.Scrape.Output, scrapeExtractDir)
			if err != nil {
				return eris.Wrap(err, "scrape: extract archive")
			}
			zap.L().Info("scrape: archive extracted", zap.String("dir", scrapeExtractDir), zap.Int("files", len(paths)))
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeIndexURL, "index-url", "", "download the link-list page from this URL first")
	scrapeCmd.Flags().StringVar(&scrapeExtractDir, "extract-dir", "", "also extract the archive into this directory")
	rootCmd.AddCommand(scrapeCmd)
}

// scrapeArchive downloads every profile linked from linksPath into a new archive at out
// and returns the links that failed.
func scrapeArchive(ctx context.Context, f fetcher.Fetcher, cb *fetcher.CircuitBreaker, linksPath, base, out string) ([]string, error) {
	in, err := os.Open(linksPath)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: open link list")
	}
	links, err := fetcher.ProfileLinks(in)
	_ = in.Close()
	if err != nil {
		return nil, err
	}
	zap.L().Info("scrape: starting", zap.Int("links", len(links)), zap.String("output", out))

	archive, err := os.Create(out)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create archive")
	}
	failed, err := fetcher.ScrapeProfiles(ctx, f, cb, base, links, archive)
	if cerr := archive.Close(); err == nil && cerr != nil {
		err = eris.Wrap(cerr, "scrape: close archive")
	}

	zap.L().Info("scrape: finished",
		zap.Int("links", len(links)),
		zap.Int("saved", len(links)-len(failed)),
		zap.Int("failed", len(failed)),
		zap.Int("breaker_trips", cb.Trips()),
	)
	return failed, err
}

// writeLines writes one line per entry. Nothing is written for an empty list.
func writeLines(path string, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
