package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"imgurdl/pkg/album"
	"imgurdl/pkg/config"
	errs "imgurdl/pkg/errors"
	"imgurdl/pkg/imgur"
	"imgurdl/pkg/logger"
	"imgurdl/pkg/ui"
)

var (
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	configFile   string
	logLevel     string
	timeout      time.Duration
	maxRetries   int
	skipExisting bool
	extensions   []string
	quiet        bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "imgurdl <album-url> [output-folder]",
	Short: "Download a whole imgur album in one go",
	Long: `imgurdl downloads every image of a public imgur album into a local folder.

The album page is fetched once, the image identifiers embedded in the page
are extracted, and each full-resolution image is downloaded sequentially.
A single failed image never aborts the album.

If the output folder is omitted, one named after the album key is created
in the current directory (http://imgur.com/a/uOOju downloads into uOOju/).`,
	Example: `  # Download an album into ./uOOju
  imgurdl https://imgur.com/a/uOOju

  # Download into a specific folder
  imgurdl https://imgur.com/a/uOOju ~/Pictures/vacation

  # Only grab jpg and png, keep files already on disk
  imgurdl https://imgur.com/a/uOOju --extensions .jpg,.png --skip-existing`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:    cobra.RangeArgs(1, 2),
	RunE:    runDownload,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/imgurdl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "HTTP timeout per request (default 30s)")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", 0, "maximum GET attempts per request (default 4)")
	rootCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip images already present in the output folder")
	rootCmd.Flags().StringSliceVar(&extensions, "extensions", nil, "restrict downloads to these extensions (e.g. .jpg,.png)")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")

	rootCmd.SetVersionTemplate(`imgurdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SilenceUsage = true
}

func runDownload(cmd *cobra.Command, args []string) error {
	albumURL := args[0]
	folder := ""
	if len(args) == 2 {
		folder = args[1]
	}

	flags := make(map[string]interface{})
	if timeout > 0 {
		flags["timeout"] = timeout
	}
	if maxRetries > 0 {
		flags["max-retries"] = maxRetries
	}
	if skipExisting {
		flags["skip-existing"] = true
	}
	if len(extensions) > 0 {
		flags["extensions"] = extensions
	}
	if quiet {
		logLevel = "error"
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("imgurdl starting")

	client := imgur.NewClient(cfg, log)
	downloader := album.New(cfg, client, nil, log)

	if ui.IsTerminal() && !quiet {
		downloader.SetObserver(ui.NewProgressObserver(log))
	} else {
		downloader.SetObserver(ui.NewLogObserver(log))
	}

	report, err := downloader.Run(context.Background(), albumURL, folder)
	if err != nil {
		var typed *errs.Error
		if errors.As(err, &typed) && !errs.IsFatal(typed.Type) {
			// Empty extraction: the run finished, there was just
			// nothing to download.
			log.WithField("album", report.Key).Warn(typed.Message)
		} else {
			return err
		}
	}

	printSummary(report)
	return nil
}

// printSummary prints the final counts and the extension histogram
func printSummary(report *album.Report) {
	if quiet {
		return
	}

	fmt.Printf("\nAlbum %s: %d images, %d saved, %d skipped, %d failed\n",
		report.Key, report.Total, report.Saved, report.Skipped, len(report.Failed))
	fmt.Printf("Saved to %s\n", report.Folder)

	exts := make([]string, 0, len(report.Extensions))
	for ext := range report.Extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Printf("  %d files with %s extension\n", report.Extensions[ext], ext)
	}

	for _, fail := range report.Failed {
		fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", fail.ID, fail.Err)
	}
}
