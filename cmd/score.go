package cmd

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/dvsvc-crawler/internal/app"
	"github.com/JakeFAU/dvsvc-crawler/internal/config"
	"github.com/JakeFAU/dvsvc-crawler/internal/crawler"
	"github.com/JakeFAU/dvsvc-crawler/internal/domain"
	collyfetcher "github.com/JakeFAU/dvsvc-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

// newFetcher builds the fetcher used for --urls. Tests replace it.
var newFetcher = func(cfg config.Config) crawler.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.Crawler.DownloadTimeout,
		MaxURLLength:  cfg.Crawler.MaxURLLength,
		MaxBodyBytes:  cfg.Crawler.MaxBodyBytes,
	})
}

// newScoreCmd creates the 'score' subcommand. It scores local HTML files and
// fetched URLs and prints name,pscore,matched_aliases as CSV.
func newScoreCmd() *cobra.Command {
	var urlList string
	cmd := &cobra.Command{
		Use:   "score [file.html...]",
		Short: "Scores HTML files and URLs and prints a CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			pages, _, err := app.BuildScorers(rt.cfg, domain.NewResolver(), rt.logger)
			if err != nil {
				return fmt.Errorf("build scorers: %w", err)
			}

			var urls []string
			if urlList != "" {
				urls, err = readURLList(urlList)
				if err != nil {
					return err
				}
			}
			if len(args) == 0 && len(urls) == 0 {
				return fmt.Errorf("nothing to score: pass HTML files or --urls")
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write([]string{"name", "pscore", "matched_aliases"}); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			for _, path := range args {
				body, err := os.ReadFile(path)
				if err != nil {
					rt.logger.Warn("read html file", zap.String("path", path), zap.Error(err))
					continue
				}
				if err := writeScore(w, filepath.Base(path), pages.Score(string(body))); err != nil {
					return err
				}
			}
			if len(urls) > 0 {
				if err := scoreURLs(cmd.Context(), w, newFetcher(rt.cfg), pages, urls, rt.logger); err != nil {
					return err
				}
			}
			w.Flush()
			if err := w.Error(); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&urlList, "urls", "", "file with one URL per line to fetch and score")
	return cmd
}

func scoreURLs(
	ctx context.Context,
	w *csv.Writer,
	fetcher crawler.Fetcher,
	pages *scoring.PageScorer,
	urls []string,
	logger *zap.Logger,
) error {
	for _, u := range urls {
		resp, err := fetcher.Fetch(ctx, crawler.FetchRequest{URL: u})
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("score urls: %w", ctx.Err())
			}
			logger.Warn("fetch failed", zap.String("url", u), zap.Error(err))
			continue
		}
		if !resp.OK() {
			logger.Warn("non-success response", zap.String("url", u), zap.Int("status", resp.StatusCode))
			continue
		}
		if err := writeScore(w, u, pages.Score(string(resp.Body))); err != nil {
			return err
		}
	}
	return nil
}

func writeScore(w *csv.Writer, name string, sc scoring.Score) error {
	row := []string{name, strconv.FormatFloat(sc.Value, 'f', 4, 64), strings.Join(sc.Labels(), ";")}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// readURLList reads one URL per line. Blank lines and # comments are skipped.
func readURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer f.Close()
	return parseURLList(f)
}

func parseURLList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return out, nil
}
