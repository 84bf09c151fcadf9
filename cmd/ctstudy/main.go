package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/glow-mdsol/clinical-trials/config"
	"github.com/glow-mdsol/clinical-trials/providers/clinicaltrials"
	"github.com/glow-mdsol/clinical-trials/services"
	"github.com/glow-mdsol/clinical-trials/study"
)

type app struct {
	cfg    *config.Registry
	logger *zap.Logger
	out    io.Writer
	file   bool
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadRegistry()
	if err != nil {
		logger.Fatal("Config load error", zap.Error(err))
	}

	if err := newRootCmd(cfg, logger, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Registry, logger *zap.Logger, out io.Writer) *cobra.Command {
	a := &app{cfg: cfg, logger: logger, out: out}
	root := &cobra.Command{
		Use:          "ctstudy",
		Short:        "Inspect ClinicalTrials.gov study records",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&a.file, "file", "f", false, "Treat the argument as a path to a local XML record")
	root.PersistentFlags().StringVar(&cfg.RegistryBaseURL, "registry", cfg.RegistryBaseURL, "Registry base URL")

	root.AddCommand(&cobra.Command{
		Use:   "show <nct-id|path>",
		Short: "Print the study summary as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			summary, err := services.Summarize(st)
			if err != nil {
				return err
			}
			return a.print(summary)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "eligibility <nct-id|path>",
		Short: "Print inclusion and exclusion criteria",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			e, err := services.SummarizeEligibility(st)
			if err != nil {
				return err
			}
			if e == nil {
				return fmt.Errorf("study %s has no eligibility section", st.NCTID())
			}
			return a.printCriteria(e)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "people <nct-id|path>",
		Short: "List officials, contacts and investigators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, p := range st.People() {
				fmt.Fprintf(a.out, "%-12s %-40s %s\n", p.Kind, p.FullName(), strings.TrimSpace(p.Role+" "+p.Email))
			}
			return nil
		},
	})

	var (
		download bool
		dir      string
	)
	docsCmd := &cobra.Command{
		Use:   "documents <nct-id|path>",
		Short: "List study documents, optionally downloading provided documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.documents(cmd.Context(), st, download, dir)
		},
	}
	docsCmd.Flags().BoolVarP(&download, "download", "d", false, "Download provided documents")
	docsCmd.Flags().StringVar(&dir, "dir", cfg.DocumentDir, "Target directory for downloads")
	root.AddCommand(docsCmd)

	return root
}

func (a *app) load(ctx context.Context, arg string) (*study.Study, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	registry := clinicaltrials.NewFetcher(a.cfg, a.logger)
	opts := []study.Option{study.WithLogger(a.logger), study.WithDocumentLister(registry)}
	if a.file {
		return study.FromFile(arg, opts...)
	}
	return study.FromNCTID(ctx, strings.ToUpper(arg), registry, opts...)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printCriteria(e *services.EligibilitySummary) error {
	fmt.Fprintf(a.out, "Gender: %s  Age: %s - %s\n", e.Gender, e.MinimumAge, e.MaximumAge)
	fmt.Fprintln(a.out, "Inclusion:")
	for _, c := range e.Inclusion {
		fmt.Fprintf(a.out, "  * %s\n", c)
	}
	fmt.Fprintln(a.out, "Exclusion:")
	for _, c := range e.Exclusion {
		fmt.Fprintf(a.out, "  * %s\n", c)
	}
	return nil
}

func (a *app) documents(ctx context.Context, st *study.Study, download bool, dir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	docs, err := st.StudyDocuments(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		fmt.Fprintf(a.out, "study_doc\t%s\t%s\n", d.Type, d.URL)
	}
	provided, err := st.ProvidedDocuments()
	if err != nil {
		return err
	}
	if download && len(provided) > 0 {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	for _, d := range provided {
		fmt.Fprintf(a.out, "provided\t%s\t%s\n", d.Type, d.URL)
		if !download {
			continue
		}
		path, err := d.Fetch(ctx, nil, dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "saved\t%s\n", path)
	}
	return nil
}
