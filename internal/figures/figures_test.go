package figures

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractFigures(t *testing.T) {
	md := `
Some paper text.

Figure 1. A simple caption
![Image](images/fig1.png)

More prose in between.

Figure 2. A caption that spans
two lines of the dump
![Image](images%5Cfig2.png)
`
	figs := ExtractFigures(md)
	require.Len(t, figs, 2)

	assert.Equal(t, "Figure 1.", figs[0].Number)
	assert.Equal(t, "A simple caption", figs[0].Caption)
	assert.Equal(t, "images/fig1.png", figs[0].ImagePath)

	assert.Equal(t, "Figure 2.", figs[1].Number)
	assert.Equal(t, "A caption that spans\ntwo lines of the dump", figs[1].Caption)
	// Windows-style %5C separators are normalized
	assert.Equal(t, "images/fig2.png", figs[1].ImagePath)
}

func TestExtractFigures_NoMatches(t *testing.T) {
	figs := ExtractFigures("Just text, no figures.\n![Image](loose.png)\n")
	assert.Empty(t, figs)
}

func TestNewImageDocument(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "fig1.png")
	raw := []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, os.WriteFile(imgPath, raw, 0644))

	doc, err := NewImageDocument(imgPath, "Loss over epochs")
	require.NoError(t, err)

	assert.Equal(t, "img-fig1.png", doc.Path)
	assert.Equal(t, "img-fig1.png", doc.Hash)
	assert.Equal(t, "figure caption: Loss over epochs\n", doc.Content)
	assert.Equal(t, "fig1.png", doc.Meta["filename"])
	assert.Equal(t, imgPath, doc.Meta["image_path"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), doc.Meta["image"])
}

func TestNewImageDocument_MissingFile(t *testing.T) {
	_, err := NewImageDocument(filepath.Join(t.TempDir(), "nope.png"), "")
	assert.Error(t, err)
}
