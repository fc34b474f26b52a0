package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/config"
	"github.com/reqtrace/reqtrace/internal/render"
)

// RenderSectionError is one section that failed to resolve.
type RenderSectionError struct {
	SectionID string `json:"section_id"`
	Marker    string `json:"marker"`
	Error     string `json:"error"`
}

// RenderResult summarizes one render run. Document is populated only when
// writing to stdout, so JSON consumers can capture it.
type RenderResult struct {
	Output   string               `json:"output"`
	Rendered int                  `json:"rendered"`
	Document string               `json:"document,omitempty"`
	Failed   []RenderSectionError `json:"failed,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions, cfg *config.Config) *cobra.Command {
	output := cfg.OutputPath

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the design document from stored sections",
		Long: `Resolve the reference markers in every loaded document section against
the store and write the assembled document.

A section with a dangling reference is reported and omitted; the rest of
the document still renders. Pass --output - to write to stdout. Requires
loaded sections (see "reqtrace sections load").`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, output, cmd)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", output, "document output path (- for stdout)")

	return cmd
}

func runRender(opts *RootOptions, output string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	log := newLogger(opts)
	defer log.Sync()

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()

	sections, err := s.ListSections(ctx)
	if err != nil {
		return err
	}
	if len(sections) == 0 {
		return NewExitError(ExitCommandError, "no document sections loaded; run 'reqtrace sections load' first")
	}

	res, err := render.New(log).Render(ctx, s)
	if err != nil {
		return err
	}

	toStdout := output == "-"
	if toStdout {
		if formatter.Format != "json" {
			fmt.Fprint(formatter.Writer, res.Document)
		}
	} else if err := os.WriteFile(output, []byte(res.Document), 0o644); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("cannot write %s", output), err)
	}

	result := RenderResult{Output: output, Rendered: res.Rendered}
	if toStdout {
		result.Document = res.Document
	}
	for _, se := range res.Errors {
		result.Failed = append(result.Failed, RenderSectionError{
			SectionID: se.SectionID,
			Marker:    se.Marker,
			Error:     se.Err.Error(),
		})
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if output != "-" {
		fmt.Fprintf(formatter.Writer, "✓ Rendered %d section(s) to %s\n", result.Rendered, output)
		for _, fe := range result.Failed {
			fmt.Fprintf(formatter.Writer, "  ✗ %s: %s (%s)\n", fe.SectionID, fe.Error, fe.Marker)
		}
	}

	if len(result.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d section(s) failed to render", len(result.Failed)))
	}
	return nil
}
