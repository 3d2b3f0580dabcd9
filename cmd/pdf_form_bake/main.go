package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-forms/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/fields"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/session"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/synthesis"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/wrapper"
)

const (
	maxInputSize   = 100 * 1024 * 1024
	outputFilePerm = 0o644
)

var errUsage = errors.New("usage")

// options are the parsed command line
type options struct {
	input          string
	layout         string
	out            string
	library        string
	exportTemplate string
	format         string
	verbose        bool
}

// BakeResult is the outcome of one run
type BakeResult struct {
	Input    string             `json:"input"`
	Library  string             `json:"library"`
	Pages    int                `json:"pages"`
	Output   string             `json:"output,omitempty"`
	Template string             `json:"template,omitempty"`
	Imported int                `json:"imported"`
	Widgets  []synthesis.Widget `json:"widgets,omitempty"`
	Skipped  []string           `json:"skipped,omitempty"`
	Warnings []string           `json:"warnings,omitempty"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 2
	}

	result, err := bake(ctx, opts, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if err := writeResult(stdout, opts.format, result); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := pflag.NewFlagSet("pdf_form_bake", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.layout, "layout", "", "JSON field layout to bake into the PDF")
	fs.StringVar(&opts.out, "out", "", "Output PDF (default: <input>_form.pdf next to the input)")
	fs.StringVar(&opts.library, "library", string(wrapper.LibraryAuto), "PDF loader: auto, pdfcpu or ledongthuc")
	fs.StringVar(&opts.exportTemplate, "export-template", "", "Write the existing form of the PDF as a JSON layout")
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose output")

	fs.Usage = func() {
		fmt.Fprintln(stderr, "PDF Form Bake - apply a JSON field layout to a PDF and write a fillable form")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "USAGE:")
		fmt.Fprintln(stderr, "  pdf_form_bake --layout fields.json [--out form.pdf] <input.pdf>")
		fmt.Fprintln(stderr, "  pdf_form_bake --export-template fields.json <input.pdf>")
		fmt.Fprintln(stderr)
		fmt.Fprintln(stderr, "OPTIONS:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one PDF file path required\n\n")
		fs.Usage()
		return nil, errUsage
	}
	opts.input = fs.Arg(0)

	if opts.layout == "" && opts.exportTemplate == "" {
		return nil, fmt.Errorf("one of --layout or --export-template is required")
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, fmt.Errorf("unsupported output format: %s", opts.format)
	}
	return opts, nil
}

func bake(ctx context.Context, opts *options, logw io.Writer) (*BakeResult, error) {
	lib, err := wrapper.ParseLibraryType(opts.library)
	if err != nil {
		return nil, err
	}

	input, err := filepath.Abs(opts.input)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.input, err)
	}

	factory := wrapper.NewLoaderFactoryWithConfig(wrapper.FactoryConfig{
		PreferredLibrary: lib,
		MaxFileSize:      maxInputSize,
		DebugMode:        opts.verbose,
	})
	info, err := factory.Load(ctx, data)
	if err != nil {
		return nil, err
	}

	sessOpts := session.DefaultOptions()
	sessOpts.DebugMode = opts.verbose
	sess, err := session.New(filepath.Base(input), data, info, sessOpts)
	if err != nil {
		return nil, err
	}

	result := &BakeResult{Input: input, Library: string(info.Library), Pages: info.PageCount}
	if opts.verbose {
		fmt.Fprintf(logw, "Loaded %s with %s (%d pages)\n", input, info.Library, info.PageCount)
	}

	if opts.exportTemplate != "" {
		if err := exportTemplate(ctx, sess, data, opts.exportTemplate, result); err != nil {
			return nil, err
		}
		return result, nil
	}

	layout, err := os.ReadFile(opts.layout)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.layout, err)
	}
	imported, err := sess.ImportJSON(ctx, layout)
	if err != nil {
		return nil, err
	}
	result.Imported = len(imported.Imported)
	for _, fe := range imported.Errors {
		result.Skipped = append(result.Skipped, fe.Error())
	}

	out := opts.out
	if out == "" {
		out = filepath.Join(filepath.Dir(input), sess.PDFFilename())
	}
	if out, err = filepath.Abs(out); err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if out == input {
		return nil, fmt.Errorf("output would overwrite the source document %s", input)
	}

	synth, err := sess.Synthesize(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, synth.PDF, outputFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", out, err)
	}

	result.Output = out
	result.Widgets = synth.Widgets
	for _, fe := range synth.Report.Errors {
		result.Skipped = append(result.Skipped, fe.Error())
	}
	for _, fe := range synth.Report.Warnings {
		result.Warnings = append(result.Warnings, fe.Error())
	}
	return result, nil
}

// exportTemplate copies the text and checkbox fields already in the PDF into
// sess and writes them as a layout
func exportTemplate(ctx context.Context, sess *session.Session, data []byte, path string, result *BakeResult) error {
	inspection, err := extraction.NewFormExtractor(false).Inspect(ctx, data)
	if err != nil {
		return err
	}

	for _, f := range inspection.Fields {
		spec, ok := templateSpec(f)
		if !ok {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %s fields are not supported", f.Name, f.Type))
			continue
		}
		if _, err := sess.AddField(spec); err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", f.Name, err))
			continue
		}
		result.Imported++
	}

	layout, err := sess.ExportJSON(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, layout, outputFilePerm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	result.Template = path
	return nil
}

// templateSpec converts the first widget of an existing field
func templateSpec(f extraction.FormField) (fields.Spec, bool) {
	var kind fields.Kind
	switch f.Type {
	case extraction.FormFieldTypeText:
		kind = fields.KindText
	case extraction.FormFieldTypeCheckbox:
		kind = fields.KindCheckbox
	default:
		return fields.Spec{}, false
	}
	if len(f.Widgets) == 0 {
		return fields.Spec{}, false
	}

	w := f.Widgets[0]
	spec := fields.Spec{
		Name:   f.Name,
		Kind:   kind,
		Page:   w.Page,
		X:      w.Rect[0],
		Y:      w.Rect[1],
		Width:  w.Rect[2] - w.Rect[0],
		Height: w.Rect[3] - w.Rect[1],
	}
	if kind.HasFontSize() {
		spec.FontSize = f.FontSize
		if spec.FontSize <= 0 {
			spec.FontSize = fields.DefaultFontSize
		}
	}
	return spec, true
}

func writeResult(w io.Writer, format string, result *BakeResult) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Fprintf(w, "📄 %s (%d pages, %s)\n", result.Input, result.Pages, result.Library)
	if result.Template != "" {
		fmt.Fprintf(w, "✅ Wrote layout with %d field(s) to %s\n", result.Imported, result.Template)
	}
	if result.Output != "" {
		fmt.Fprintf(w, "✅ Imported %d field(s)\n", result.Imported)
		fmt.Fprintf(w, "✅ Wrote fillable PDF with %d widget(s) to %s\n", len(result.Widgets), result.Output)
		for i, wd := range result.Widgets {
			fmt.Fprintf(w, "[%d] %s (%s) page %d\n", i+1, wd.Name, wd.Kind, wd.Page)
		}
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(w, "⏭️  Skipped %s\n", s)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warning)
	}
	return nil
}
