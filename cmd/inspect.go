package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/entity"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/inbound"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/store"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/campaign/usecase"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkglog"
	"github.com/Mindgaze/Gemini-Marketing-Inteligence/internal/pkg/pkguid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type inspectReport struct {
	Files []inbound.FileResponse `json:"files"`
	Stats inbound.StatsResponse  `json:"stats"`
	Chart []inbound.ChartPoint   `json:"spend_revenue,omitempty"`
}

func newInspectCommand() *cobra.Command {
	var (
		concurrency int
		maxBytes    int64
		charts      bool
	)

	c := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Ingest CSV files locally and print their aggregate metrics as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkglog.InitLogging("error")

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			report, err := inspect(ctx, args, concurrency, maxBytes, charts)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	c.Flags().IntVar(&concurrency, "concurrency", 4, "files ingested in parallel")
	c.Flags().Int64Var(&maxBytes, "max-bytes", 0, "per-file size limit in bytes (0 uses the service default)")
	c.Flags().BoolVar(&charts, "charts", false, "include the spend/revenue series")

	return c
}

func inspect(ctx context.Context, paths []string, concurrency int, maxBytes int64, charts bool) (inspectReport, error) {
	uc, err := usecase.New(usecase.Dependency{
		Store:          store.NewInMemoryStore(),
		FileID:         pkguid.NewUUID(),
		RootCtx:        ctx,
		MaxUploadBytes: maxBytes,
	})
	if err != nil {
		return inspectReport{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for _, path := range paths {
		g.Go(func() error {
			return ingestPath(gctx, uc, path)
		})
	}
	if err := g.Wait(); err != nil {
		return inspectReport{}, err
	}

	files, err := uc.Files(ctx)
	if err != nil {
		return inspectReport{}, err
	}
	stats, err := uc.Stats(ctx)
	if err != nil {
		return inspectReport{}, err
	}

	report := inspectReport{
		Files: make([]inbound.FileResponse, 0, len(files)),
		Stats: inbound.NewStatsResponse(stats),
	}
	for _, rec := range files {
		report.Files = append(report.Files, inbound.NewFileResponse(rec))
	}

	if charts {
		series, err := uc.Charts(ctx)
		if err != nil {
			return inspectReport{}, err
		}
		report.Chart = inbound.NewChartPoints(series.SpendRevenue)
	}

	return report, nil
}

func ingestPath(ctx context.Context, uc *usecase.Usecase, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	// IngestFile closes any io.Closer it is given; hide Close so f is
	// closed exactly once, here, with its error reported.
	_, err = uc.IngestFile(ctx, entity.FileMeta{
		Name:        filepath.Base(path),
		Size:        size,
		ContentType: "text/csv",
	}, struct{ io.Reader }{f})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}
