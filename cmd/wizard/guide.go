package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/wizard/internal/presentation/tui"
	"github.com/aretw0/wizard/pkg/domain"
	"github.com/aretw0/wizard/pkg/schema"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errInvalidGuides = errors.New("some guides are invalid")

var guideCmd = &cobra.Command{
	Use:   "guide",
	Short: "Work with guide documents",
}

var guideValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check guide documents against the guide schema",
	Long:  `Validates YAML, JSON or Markdown (frontmatter) guide documents and reports every problem found.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGuideValidate(cmd.OutOrStdout(), args)
	},
}

var guideShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Render a guide document in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetBool("raw")
		return runGuideShow(cmd.OutOrStdout(), args[0], raw)
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
	guideCmd.AddCommand(guideValidateCmd)
	guideCmd.AddCommand(guideShowCmd)
	guideShowCmd.Flags().Bool("raw", false, "Print the markdown without styling")
}

func runGuideValidate(w io.Writer, paths []string) error {
	failed := false
	for _, path := range paths {
		g, err := readGuide(path)
		if err != nil {
			failed = true
			fmt.Fprintf(w, "✗ %s\n", path)
			if problems := schema.ValidationErrors(err); len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintf(w, "    - %v\n", p)
				}
			} else {
				fmt.Fprintf(w, "    - %v\n", err)
			}
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s, %d steps)\n", path, g.ID, len(g.Steps))
	}
	if failed {
		return errInvalidGuides
	}
	return nil
}

func runGuideShow(w io.Writer, path string, raw bool) error {
	g, err := readGuide(path)
	if err != nil {
		return err
	}
	md := tui.GuideMarkdown(g)
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}
	render, err := tui.NewRenderer(100)
	if err != nil {
		return err
	}
	out, err := render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// readGuide parses a guide file. Markdown files carry the guide in their
// frontmatter and may use the body as description.
func readGuide(path string) (*domain.Guide, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	body := ""
	if strings.EqualFold(filepath.Ext(path), ".md") {
		front, rest, ok := splitFrontmatter(data)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no frontmatter", domain.ErrInvalidGuide, path)
		}
		body = strings.TrimSpace(rest)
		if data, err = withImplicitID(front, path); err != nil {
			return nil, err
		}
	}

	g, err := schema.ParseGuide(data)
	if err != nil {
		return nil, err
	}
	if g.Description == "" {
		g.Description = body
	}
	return g, nil
}

// withImplicitID names a frontmatter guide after its file when it declares no id.
func withImplicitID(front []byte, path string) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(front, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidGuide, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if id, ok := doc["id"]; ok && id != nil && id != "" {
		return front, nil
	}
	doc["id"] = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return yaml.Marshal(doc)
}

func splitFrontmatter(data []byte) ([]byte, string, bool) {
	data = bytes.TrimPrefix(data, []byte("\uFEFF"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, []byte("---\n")) {
		return nil, "", false
	}
	rest := data[len("---\n"):]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, "", false
	}
	front := rest[:end+1]
	after := rest[end+len("\n---"):]
	if i := bytes.IndexByte(after, '\n'); i >= 0 {
		after = after[i+1:]
	} else {
		after = nil
	}
	return front, string(after), true
}
