package records

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/shandysiswandi/epimap/internal/app"
	"github.com/shandysiswandi/epimap/internal/disease"
	"github.com/shandysiswandi/epimap/internal/disease/usecase"
	"github.com/shandysiswandi/epimap/internal/pkg/pkglog"
	"github.com/spf13/cobra"
)

// Command prints one page of a dataset's stored records as JSON lines.
func Command(configPath *string) *cobra.Command {
	in := &usecase.ListRecordsInput{}

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List stored records of a dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), *configPath, *in, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&in.Dataset, "dataset", "d", "", "Dataset label")
	cmd.Flags().IntVar(&in.Page, "page", 1, "Page number, starting at 1")
	cmd.Flags().IntVar(&in.PageSize, "size", usecase.DefaultPageSize, "Records per page")
	_ = cmd.MarkFlagRequired("dataset")

	return cmd
}

type line struct {
	ID      int64  `json:"id"`
	Date    string `json:"date"`
	Country string `json:"country"`
	Cases   *int64 `json:"cases"`
	Deaths  *int64 `json:"deaths"`
	Matched bool   `json:"matched"`
}

func run(ctx context.Context, configPath string, in usecase.ListRecordsInput, out io.Writer) (err error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	defer cfg.Close()

	pkglog.InitLogging(cfg.GetString("log.level"))

	uc, closer, err := disease.Build(disease.Dependency{Config: cfg, Context: ctx})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer(context.WithoutCancel(ctx)); err == nil {
			err = cerr
		}
	}()

	page, err := uc.ListRecords(ctx, in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, rec := range page.Items {
		if err := enc.Encode(line{
			ID:      rec.ID,
			Date:    rec.Date.Format(time.DateOnly),
			Country: rec.Country,
			Cases:   rec.Cases,
			Deaths:  rec.Deaths,
			Matched: len(rec.Geometry) > 0,
		}); err != nil {
			return err
		}
	}
	return nil
}
