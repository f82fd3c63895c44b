package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"comicbook/internal/model"
	"comicbook/internal/service"
	"comicbook/internal/web"
)

type generateOptions struct {
	story     string
	file      string
	numPanels int
	out       string
	selection []int
	printJSON bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a comic from a story and export it as PDF",
		Long: `Plan panels for a story, render every panel image, and write the
selected panels to a PDF (one panel per A4 page).`,
		Example: `  comicbook generate --story "A fox finds a lost key..." --panels 4 --out fox.pdf
  cat story.txt | comicbook generate --file - --select 0,2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runGenerate(ctx, cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.story, "story", "s", "", "story text")
	f.StringVarP(&opts.file, "file", "f", "", "read the story from a file ('-' for stdin)")
	f.IntVarP(&opts.numPanels, "panels", "n", model.DefaultPanelCount, "number of panels (1-25)")
	f.StringVarP(&opts.out, "out", "o", "", "PDF output path (defaults to the configured file name)")
	f.IntSliceVar(&opts.selection, "select", nil, "panel indices to export (default: all)")
	f.BoolVar(&opts.printJSON, "json", false, "print the generated panels as JSON")
	return cmd
}

func readStory(opts generateOptions, stdin io.Reader) (string, error) {
	switch {
	case opts.story != "" && opts.file != "":
		return "", errors.New("use either --story or --file, not both")
	case opts.story != "":
		return opts.story, nil
	case opts.file == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case opts.file != "":
		b, err := os.ReadFile(opts.file)
		return string(b), err
	default:
		return "", errors.New("a story is required (--story or --file)")
	}
}

func runGenerate(ctx context.Context, stdout io.Writer, stdin io.Reader, opts generateOptions) error {
	story, err := readStory(opts, stdin)
	if err != nil {
		return err
	}

	cfg, logCloser, err := loadConfig(nil)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	pages, err := web.New(cfg.Theme, cfg.Export.CardWidthPx)
	if err != nil {
		return err
	}
	svc, err := service.Build(ctx, cfg, pages)
	if err != nil {
		return err
	}
	defer svc.Close()

	id, res := svc.Generate(ctx, model.GenerationRequest{StoryText: story, RequestedPanelCount: opts.numPanels})
	if f, ok := res.Failure(); ok {
		if len(f.Fields) > 0 {
			parts := make([]string, 0, len(f.Fields))
			for field, msg := range f.Fields {
				parts = append(parts, field+": "+msg)
			}
			return fmt.Errorf("%s (%s)", f.Message, strings.Join(parts, "; "))
		}
		return errors.New(f.Message)
	}
	panels, _ := res.Panels()

	if opts.printJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		for i, p := range panels {
			fmt.Fprintf(stdout, "Panel %d: %s\n  %s\n", i+1, p.CaptionText, p.ImageReference)
		}
	}

	sel := model.AllPanels(len(panels))
	if opts.selection != nil {
		sel = model.NewExportSelection(opts.selection...)
	}
	pdf, err := svc.Export(ctx, id, sel)
	if err != nil {
		var xerr *service.ExportError
		if errors.As(err, &xerr) {
			logrus.WithError(xerr.Err).Debug("export failed")
			return errors.New(xerr.Message)
		}
		return err
	}

	out := opts.out
	if out == "" {
		out = cfg.Export.FileName
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logrus.WithFields(logrus.Fields{"file": out, "pages": sel.Clamp(len(panels)).Len()}).Info("comic written")
	return nil
}
