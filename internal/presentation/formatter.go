package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Formatter handles output formatting. JSON is the default; a text formatter
// renders the same DTOs for terminals.
type Formatter struct {
	writer io.Writer
	text   bool
	styles styles
}

type styles struct {
	heading lipgloss.Style
	subtle  lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	rule    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		heading: r.NewStyle().Bold(true),
		subtle:  r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#696969", Dark: "#8C8C8C"}),
		ok:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#73F59F"}),
		fail:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF8787"}),
		rule:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5E35B1", Dark: "#B39DDB"}),
	}
}

// NewFormatter creates a new JSON formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// NewTextFormatter creates a formatter that writes styled text. Colors are
// only emitted when writer is a terminal.
func NewTextFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
		text:   true,
		styles: newStyles(lipgloss.NewRenderer(writer)),
	}
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *Formatter) println(lines ...string) error {
	_, err := io.WriteString(f.writer, strings.Join(lines, "\n")+"\n")
	return err
}

func (f *Formatter) verdict(ok bool, yes, no string) string {
	if ok {
		return f.styles.ok.Render(yes)
	}
	return f.styles.fail.Render(no)
}

// FormatTypes formats registered types
func (f *Formatter) FormatTypes(types []TypeDTO) error {
	if !f.text {
		return f.encode(types)
	}
	if len(types) == 0 {
		return f.println(f.styles.subtle.Render("no types registered"))
	}
	var lines []string
	for _, t := range types {
		lines = append(lines, f.styles.heading.Render(t.Identity)+" "+f.styles.subtle.Render(t.Kind))
		if t.Base != "" {
			lines = append(lines, "  base: "+t.Base)
		}
		if len(t.Interfaces) > 0 {
			lines = append(lines, "  implements: "+strings.Join(t.Interfaces, ", "))
		}
		if t.GenericDefinition != "" {
			lines = append(lines, "  definition: "+t.GenericDefinition)
		}
	}
	return f.println(lines...)
}

// FormatParts formats registered parts
func (f *Formatter) FormatParts(parts []PartDTO) error {
	if !f.text {
		return f.encode(parts)
	}
	if len(parts) == 0 {
		return f.println(f.styles.subtle.Render("no parts registered"))
	}
	var lines []string
	for _, p := range parts {
		lines = append(lines, f.styles.heading.Render(p.Identity)+" "+f.styles.subtle.Render(p.Origin))
		for _, e := range p.Exports {
			lines = append(lines, "  exports "+describeExport(e))
		}
		for _, i := range p.Imports {
			lines = append(lines, "  imports "+describeImport(i))
		}
	}
	return f.println(lines...)
}

// FormatMatch formats the resolution of a part's imports
func (f *Formatter) FormatMatch(match MatchDTO) error {
	if !f.text {
		return f.encode(match)
	}
	lines := []string{
		f.styles.heading.Render(match.Part) + " " + f.verdict(match.Satisfied, "satisfied", "unsatisfied"),
	}
	if len(match.Resolutions) == 0 {
		lines = append(lines, f.styles.subtle.Render("  no imports"))
	}
	for _, r := range match.Resolutions {
		lines = append(lines, fmt.Sprintf("  %s %s",
			describeImport(r.Import),
			f.verdict(r.Satisfied, fmt.Sprintf("%d candidates", len(r.Candidates)), fmt.Sprintf("%d candidates, unsatisfied", len(r.Candidates))),
		))
		for _, c := range r.Candidates {
			lines = append(lines, fmt.Sprintf("    %s %s %s",
				c.Part,
				f.styles.rule.Render("["+c.Rule+"]"),
				f.styles.subtle.Render(describeExport(c.Export)),
			))
		}
	}
	return f.println(lines...)
}

// FormatSubtype formats a subtype check
func (f *Formatter) FormatSubtype(result SubtypeDTO) error {
	if !f.text {
		return f.encode(result)
	}
	relation := f.verdict(result.IsSubtype, "derives from", "does not derive from")
	return f.println(result.Child + " " + relation + " " + result.Parent)
}

// FormatOrigins formats known origins
func (f *Formatter) FormatOrigins(list []OriginDTO) error {
	if !f.text {
		return f.encode(list)
	}
	if len(list) == 0 {
		return f.println(f.styles.subtle.Render("no origins"))
	}
	var lines []string
	for _, o := range list {
		lines = append(lines, f.styles.heading.Render(o.Origin)+" "+f.styles.subtle.Render(fmt.Sprintf("%d parts", len(o.Parts))))
		for _, p := range o.Parts {
			lines = append(lines, "  "+p)
		}
	}
	return f.println(lines...)
}

// FormatScanReport formats a scan summary
func (f *Formatter) FormatScanReport(report ScanReportDTO) error {
	if !f.text {
		return f.encode(report)
	}
	lines := []string{
		f.styles.heading.Render(fmt.Sprintf("scanned %d manifests", report.Files)) + " " +
			f.styles.subtle.Render(fmt.Sprintf("(%d cached, %dms)", report.Cached, report.DurationMS)),
		fmt.Sprintf("  added %d, replaced %d, unchanged %d, removed %d",
			len(report.Added), len(report.Replaced), len(report.Unchanged), len(report.Removed)),
		fmt.Sprintf("  registry: %d types, %d parts", report.Types, report.Parts),
	}
	if len(report.Failed) > 0 {
		lines = append(lines, f.styles.fail.Render(fmt.Sprintf("  %d failed", len(report.Failed))))
		for _, e := range report.Errors {
			lines = append(lines, "    "+e)
		}
		if len(report.Restored) > 0 {
			lines = append(lines, f.styles.subtle.Render(fmt.Sprintf("  %d kept their previous registration", len(report.Restored))))
		}
	}
	return f.println(lines...)
}

func describeExport(e ExportDTO) string {
	s := e.Kind + " " + e.Contract
	if e.Member != "" {
		s += " via " + e.Member
	}
	if e.Type != "" && e.Type != e.Contract {
		s += " : " + e.Type
	}
	return s
}

func describeImport(i ImportDTO) string {
	return fmt.Sprintf("%s %s : %s (%s)", i.Member, i.Contract, i.RequiredType, i.Cardinality)
}
