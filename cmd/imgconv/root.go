package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dunamismax/launchpad/internal/domain"
	"github.com/dunamismax/launchpad/internal/pipeline"
)

type convertFlags struct {
	format      string
	quality     int
	maxWidth    int
	outDir      string
	concurrency int
}

func newRootCommand() *cobra.Command {
	flags := convertFlags{}

	cmd := &cobra.Command{
		Use:           "imgconv [files...]",
		Short:         "Convert and resize images with the launchpad pipeline",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", domain.DefaultImageFormat, "Output format: webp, jpeg, png or gif")
	cmd.Flags().IntVarP(&flags.quality, "quality", "q", domain.DefaultQuality, "Output quality from 1 to 100")
	cmd.Flags().IntVarP(&flags.maxWidth, "max-width", "w", domain.DefaultMaxWidth, "Maximum output width in pixels")
	cmd.Flags().StringVarP(&flags.outDir, "out", "o", ".", "Directory for converted files")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 4, "Images converted in parallel")
	return cmd
}

func runConvert(cmd *cobra.Command, files []string, flags convertFlags) error {
	if err := pipeline.Startup(); err != nil {
		return err
	}
	defer pipeline.Shutdown()

	sources := make([]domain.SourceImage, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		sources = append(sources, domain.SourceImage{Name: path, Size: int64(len(data)), Data: data})
	}

	converter, err := pipeline.NewConverter(flags.concurrency)
	if err != nil {
		return err
	}

	opts := domain.ConvertOptions{
		Format:   flags.format,
		Quality:  flags.quality,
		MaxWidth: flags.maxWidth,
	}.Normalize()
	if cmd.Flags().Changed("quality") && !domain.SupportsQuality(opts.Format) {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: %s output is lossless, --quality is ignored\n", opts.Format)
	}

	results, stats, err := converter.ConvertBatch(cmd.Context(), sources, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	rows := make([][]string, 0, len(results))
	taken := make(map[string]bool, len(results))
	for _, result := range results {
		outPath := outputPath(flags.outDir, result.OriginalName, result.Format, taken)
		data, err := base64.StdEncoding.DecodeString(result.Base64)
		if err != nil {
			return fmt.Errorf("decode %s: %w", result.OriginalName, err)
		}
		if err := os.WriteFile(outPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		rows = append(rows, []string{
			filepath.Base(result.OriginalName),
			outPath,
			fmt.Sprintf("%dx%d", result.Width, result.Height),
			humanize.Bytes(uint64(result.OriginalSize)),
			humanize.Bytes(uint64(result.ProcessedSize)),
			savedPercent(result.OriginalSize, int64(result.ProcessedSize)),
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Source", "Output", "Size", "Before", "After", "Saved"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(out, "%d images, %s in, %s out, %s\n",
		stats.Items,
		humanize.Bytes(uint64(stats.BytesIn)),
		humanize.Bytes(uint64(stats.BytesOut)),
		stats.Duration.Round(time.Millisecond),
	)
	return nil
}

// outputPath never points back at the source file or at a path already in
// taken. Sources sharing a base name get -2, -3 and so on.
func outputPath(dir, source, format string, taken map[string]bool) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	ext := "." + format
	if format == domain.FormatJPEG {
		ext = ".jpg"
	}
	if sameFile(filepath.Join(dir, base+ext), source) {
		base += "-converted"
	}
	candidate := filepath.Join(dir, base+ext)
	for n := 2; taken[candidate]; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, n, ext))
	}
	taken[candidate] = true
	return candidate
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

func savedPercent(before, after int64) string {
	if before <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(before-after)/float64(before)*100)
}
