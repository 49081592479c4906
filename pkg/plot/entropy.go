// Package plot renders entropy histories as charts.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/aretw0/ternlab/pkg/metrics"
	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Default chart dimensions.
const (
	Width  = 10 * vg.Inch
	Height = 4 * vg.Inch
)

// ErrEmptyHistory is returned when there is nothing to draw.
var ErrEmptyHistory = errors.New("entropy history is empty")

var (
	entropyColor = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	ceilingColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// EntropyChart plots history against step number. firstStep is the step of
// history[0], which is non-zero when history is a trailing window.
func EntropyChart(history []float64, firstStep int) (*gonumplot.Plot, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	p := gonumplot.New()
	p.Title.Text = "Entropy"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Entropy (bits)"
	p.Y.Min = 0
	p.Y.Max = metrics.MaxEntropy * 1.05
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(history))
	for i, h := range history {
		pts[i] = plotter.XY{X: float64(firstStep + i), Y: h}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build entropy line: %w", err)
	}
	line.Color = entropyColor
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("entropy", line)

	ceiling := plotter.NewFunction(func(float64) float64 { return metrics.MaxEntropy })
	ceiling.Color = ceilingColor
	ceiling.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ceiling)
	p.Legend.Add("log2(3)", ceiling)

	p.Legend.Top = false
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = 10
	return p, nil
}

// WritePNG renders the chart as PNG into w.
func WritePNG(w io.Writer, history []float64, firstStep int) error {
	p, err := EntropyChart(history, firstStep)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}

// SavePNG renders the chart to a file. The format follows the file extension.
func SavePNG(path string, history []float64, firstStep int) error {
	p, err := EntropyChart(history, firstStep)
	if err != nil {
		return err
	}
	if err := p.Save(Width, Height, path); err != nil {
		return fmt.Errorf("failed to save chart %s: %w", path, err)
	}
	return nil
}
