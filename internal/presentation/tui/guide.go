package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/wizard/pkg/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// GuideMarkdown describes a guide step by step, one table of fields per step.
func GuideMarkdown(g *domain.Guide) string {
	var b strings.Builder

	title := g.Title
	if title == "" {
		title = g.ID
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if g.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", g.Description)
	}
	fmt.Fprintf(&b, "`%s`", g.ID)
	if g.ServiceType != "" {
		fmt.Fprintf(&b, " · service `%s`", g.ServiceType)
	}
	fmt.Fprintf(&b, " · %d steps\n\n", len(g.Steps))

	for i, step := range g.Steps {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, step.Title)
		if step.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", step.Description)
		}
		if len(step.Fields) == 0 {
			b.WriteString("_No fields._\n\n")
			continue
		}
		writeFieldTable(&b, step.Fields)
		b.WriteString("\n")
	}
	return b.String()
}

// writeFieldTable renders the fields of one step as a markdown table.
func writeFieldTable(w io.Writer, fields []domain.Field) {
	table := tablewriter.NewTable(w, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Type", "Required", "Notes")
	for _, f := range fields {
		label := f.Name
		if f.Label != "" {
			label = fmt.Sprintf("%s (`%s`)", f.Label, f.Name)
		}
		required := ""
		if f.Required {
			required = "yes"
		}
		_ = table.Append(label, string(f.Kind), required, fieldNotes(f))
	}
	_ = table.Render()
}

func fieldNotes(f domain.Field) string {
	switch f.Kind {
	case domain.KindSingleSelect:
		return "options: " + strings.Join(f.Options, ", ")
	case domain.KindFile:
		return "accepts: " + strings.Join(f.AcceptedExtensions(), ", ")
	}
	return f.Placeholder
}
