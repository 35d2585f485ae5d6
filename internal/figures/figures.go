package figures

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/serapieum/docent/internal/llm"
	"github.com/serapieum/docent/internal/store"
)

// Figure is one figure reference extracted from a PDF markdown dump.
type Figure struct {
	Number      string // e.g. "Figure 2."
	Caption     string
	ImagePath   string
	Description string // filled by Describer
}

// Matches a "Figure N." label, a caption (possibly multi-line) and the
// following ![Image](path) reference produced by PDF-to-markdown converters.
var figureRe = regexp.MustCompile(`(?s)(Figure\s+\d+\.\s*)(.*?)\n?!\[Image\]\((.*?)\)`)

// ExtractFigures scans a markdown dump of a PDF for figures.
func ExtractFigures(mdText string) []Figure {
	matches := figureRe.FindAllStringSubmatch(mdText, -1)

	var figures []Figure
	for _, match := range matches {
		imagePath := strings.ReplaceAll(match[3], "%5C", "/")
		figures = append(figures, Figure{
			Number:    strings.TrimSpace(match[1]),
			Caption:   strings.TrimSpace(match[2]),
			ImagePath: strings.TrimSpace(imagePath),
		})
	}
	return figures
}

// NewImageDocument builds a document holding a base64-encoded image with its
// caption as searchable text. The ID is derived from the file name.
func NewImageDocument(imagePath, caption string) (store.Document, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return store.Document{}, err
	}

	name := filepath.Base(imagePath)
	text := ""
	if caption != "" {
		text = fmt.Sprintf("figure caption: %s\n", caption)
	}

	return store.Document{
		Path:    "img-" + name,
		Hash:    "img-" + name,
		Content: text,
		Meta: map[string]string{
			"filename":   name,
			"image_path": imagePath,
			"image":      base64.StdEncoding.EncodeToString(data),
		},
	}, nil
}

const defaultPrompt = "Describe this figure from a scientific paper. " +
	"Mention what is plotted, the axes and any notable patterns."

// Describer sends figures to a vision model for description.
type Describer struct {
	Generator *llm.Generator
	Prompt    string
}

func NewDescriber(gen *llm.Generator) *Describer {
	return &Describer{Generator: gen, Prompt: defaultPrompt}
}

// Describe returns the vision model's description of a single image.
// A figure caption, when known, is given to the model as context.
func (d *Describer) Describe(ctx context.Context, imagePath, caption string) (string, error) {
	prompt := d.Prompt
	if caption != "" {
		prompt = fmt.Sprintf("%s\nThe paper captions it: %q", d.Prompt, caption)
	}
	return d.Generator.Describe(ctx, imagePath, prompt)
}

// DescribeAll fills the Description of every figure whose image exists under
// baseDir. Missing image files are reported as errors but do not stop the
// run.
func (d *Describer) DescribeAll(ctx context.Context, baseDir string, figs []Figure) ([]Figure, error) {
	var firstErr error
	for i := range figs {
		path := figs[i].ImagePath
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}

		desc, err := d.Describe(ctx, path, figs[i].Caption)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("describe %s: %w", figs[i].ImagePath, err)
			}
			continue
		}
		figs[i].Description = desc
	}
	return figs, firstErr
}
