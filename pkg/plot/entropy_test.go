package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, []float64{0, 0.9, 1.4, 1.2}, 0))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestWritePNG_SinglePoint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, []float64{0}, 0))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestEntropyChart_Empty(t *testing.T) {
	_, err := EntropyChart(nil, 0)
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestEntropyChart_Window(t *testing.T) {
	p, err := EntropyChart([]float64{1, 1.1}, 40)
	require.NoError(t, err)
	assert.Equal(t, "Entropy", p.Title.Text)
	assert.Equal(t, 0.0, p.Y.Min)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entropy.png")
	require.NoError(t, SavePNG(path, []float64{0, 1}, 0))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}
