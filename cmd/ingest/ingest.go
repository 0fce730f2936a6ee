package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/shandysiswandi/epimap/internal/app"
	"github.com/shandysiswandi/epimap/internal/disease"
	"github.com/shandysiswandi/epimap/internal/disease/entity"
	"github.com/shandysiswandi/epimap/internal/disease/usecase"
	"github.com/shandysiswandi/epimap/internal/pkg/pkglog"
	"github.com/shandysiswandi/epimap/internal/pkg/pkgroutine"
	"github.com/spf13/cobra"
)

type options struct {
	file      string
	dataset   string
	overrides usecase.ColumnOverrides
	progress  bool
}

// Command ingests one file with the storage and geometry source from config
// and prints the run summary as JSON.
func Command(configPath *string) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest a CSV or XLSX file",
		Long:  `Read a tabular disease file, attach country boundaries and store the records.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), *configPath, opts, cmd.OutOrStdout())
		},
	}

	setupFlags(cmd, opts)

	return cmd
}

func setupFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Path to the CSV or XLSX file")
	cmd.Flags().StringVarP(&opts.dataset, "dataset", "d", "", "Dataset label, e.g. covid or malaria")
	cmd.Flags().StringVar(&opts.overrides.Country, "country-col", "", "Column holding the country name")
	cmd.Flags().StringVar(&opts.overrides.Date, "date-col", "", "Column holding the date")
	cmd.Flags().StringVar(&opts.overrides.Cases, "cases-col", "", "Column holding the case count")
	cmd.Flags().StringVar(&opts.overrides.Deaths, "deaths-col", "", "Column holding the death count")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Print progress events as JSON lines")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("dataset")
}

func run(ctx context.Context, configPath string, opts *options, out io.Writer) (err error) {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	defer cfg.Close()

	pkglog.InitLogging(cfg.GetString("log.level"))

	goroutine := pkgroutine.NewManager(1)
	uc, closer, err := disease.Build(disease.Dependency{
		Config:    cfg,
		Goroutine: goroutine,
		Context:   ctx,
	})
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closer(context.WithoutCancel(ctx)))
	}()

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	in := usecase.IngestInput{
		File:      f,
		Filename:  filepath.Base(opts.file),
		Dataset:   opts.dataset,
		Overrides: opts.overrides,
	}

	enc := json.NewEncoder(out)

	if !opts.progress {
		summary, err := uc.Ingest(ctx, in)
		if err != nil {
			return err
		}
		enc.SetIndent("", "  ")
		return enc.Encode(toOutput(summary))
	}

	events, err := uc.IngestStream(ctx, in)
	if err != nil {
		return err
	}

	var runErr error
	for ev := range events {
		line := eventLine{RunID: ev.RunID, Type: string(ev.Type), Stage: string(ev.Stage), Message: ev.Message}
		if summary, ok := ev.Data.(entity.Summary); ok {
			o := toOutput(summary)
			line.Summary = &o
		}
		if ev.Type == entity.ProgressError {
			runErr = errors.New(ev.Message)
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}

	return errors.Join(runErr, goroutine.Wait())
}

type output struct {
	Status             string   `json:"status"`
	RunID              string   `json:"run_id"`
	Dataset            string   `json:"dataset"`
	Rows               int      `json:"rows"`
	Imported           int      `json:"imported"`
	Skipped            int      `json:"skipped"`
	NullCells          int      `json:"null_cells"`
	UnmatchedCountries []string `json:"unmatched_countries"`
	ElapsedSeconds     float64  `json:"elapsed_seconds"`
}

type eventLine struct {
	RunID   string  `json:"run_id"`
	Type    string  `json:"type"`
	Stage   string  `json:"stage"`
	Message string  `json:"message"`
	Summary *output `json:"summary,omitempty"`
}

func toOutput(s entity.Summary) output {
	unmatched := s.UnmatchedCountries
	if unmatched == nil {
		unmatched = []string{}
	}
	return output{
		Status:             string(s.Status),
		RunID:              s.RunID,
		Dataset:            s.Dataset,
		Rows:               s.TotalRows,
		Imported:           s.Imported,
		Skipped:            s.Skipped,
		NullCells:          s.NullCells,
		UnmatchedCountries: unmatched,
		ElapsedSeconds:     s.ElapsedSeconds,
	}
}
