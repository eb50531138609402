package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/penwyp/go-fleet-replay/internal/core/history"
	"github.com/penwyp/go-fleet-replay/internal/presentation/formatter"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

var (
	pagesOutput string
	pagesVerify bool
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List the change files of a history",
	Long: `Lists the change files of a history directory in replay order with their
time range, declared entry count and modification time. With --verify the
CRC32 fingerprint of each file tail is shown as well.`,
	RunE: runPages,
}

// pageInfo is one row of the listing
type pageInfo struct {
	Index       int     `json:"index"`
	File        string  `json:"file"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Entries     int     `json:"entries"`
	Modified    string  `json:"modified"`
	Fingerprint string  `json:"fingerprint,omitempty"`
}

type pageListing struct {
	Dir   string     `json:"dir"`
	Start float64    `json:"start"`
	End   float64    `json:"end"`
	Pages []pageInfo `json:"pages"`
}

func init() {
	rootCmd.AddCommand(pagesCmd)

	pagesCmd.Flags().StringVarP(&pagesOutput, "output", "o", "table",
		"Output format (table, json)")
	pagesCmd.Flags().BoolVar(&pagesVerify, "verify", false,
		"Fingerprint every change file")
}

func runPages(cmd *cobra.Command, args []string) error {
	config, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogging(config); err != nil {
		return err
	}

	service, err := history.NewDirService(config.Dir, config.PageCacheSize)
	if err != nil {
		return err
	}
	if config.ClipStart != nil {
		if err := service.ClipToRange(*config.ClipStart, *config.ClipEnd); err != nil {
			return err
		}
	}

	listing, err := listPages(service, pagesVerify)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch pagesOutput {
	case "json":
		data, err := sonic.ConfigStd.MarshalIndent(listing, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "table", "":
		span := time.Duration((listing.End - listing.Start) * float64(time.Second))
		fmt.Fprintf(out, "%s  %s - %s (%s)  %d pages\n", listing.Dir,
			util.FormatClock(listing.Start), util.FormatClock(listing.End), util.FormatDuration(span), len(listing.Pages))
		rows := make([]map[string]interface{}, len(listing.Pages))
		for i, p := range listing.Pages {
			rows[i] = map[string]interface{}{
				"id":       p.Index,
				"file":     p.File,
				"start":    util.FormatClock(p.Start),
				"end":      util.FormatClock(p.End),
				"entries":  p.Entries,
				"modified": p.Modified,
			}
			if p.Fingerprint != "" {
				rows[i]["fingerprint"] = p.Fingerprint
			}
		}
		return formatter.NewTableFormatter().Rows(out, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", pagesOutput)
	}
}

func listPages(service *history.DirService, verify bool) (pageListing, error) {
	r, err := service.TimeRange()
	if err != nil {
		return pageListing{}, err
	}
	listing := pageListing{Dir: service.Dir(), Start: r.Start, End: r.End}

	tp := util.GetTimeProvider()
	for i, pf := range service.Pages() {
		info := pageInfo{Index: i, File: pf.Name, Start: pf.Start, End: pf.End, Entries: pf.Count}
		if stat, err := os.Stat(filepath.Join(service.Dir(), pf.Name)); err == nil {
			info.Modified = tp.Format(stat.ModTime(), "2006-01-02 15:04:05")
		}
		if verify {
			fp, err := service.Fingerprint(i)
			if err != nil {
				return pageListing{}, fmt.Errorf("fingerprint %s: %w", pf.Name, err)
			}
			info.Fingerprint = fp
		}
		listing.Pages = append(listing.Pages, info)
	}
	return listing, nil
}
