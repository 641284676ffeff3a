// Package report renders training summaries as images.
package report

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	cmlErrors "github.com/ezoic/carbonml/pkg/errors"
)

// DefaultTop is the number of bars drawn by ImportanceChart.
const DefaultTop = 10

// Bar is one labelled value.
type Bar struct {
	Label string
	Value float64
}

// ImportanceChart draws the first top bars as a horizontal bar chart, largest
// at the top. Bars are expected in descending order.
func ImportanceChart(bars []Bar, top int) (*plot.Plot, error) {
	if len(bars) == 0 {
		return nil, cmlErrors.NewValueError("ImportanceChart", "no bars")
	}
	if top <= 0 || top > len(bars) {
		top = len(bars)
	}

	// plot draws the first value at the bottom, so reverse.
	values := make(plotter.Values, top)
	labels := make([]string, top)
	for i := 0; i < top; i++ {
		b := bars[top-1-i]
		values[i] = b.Value
		labels[i] = b.Label
	}

	p := plot.New()
	p.Title.Text = "Top Feature Importances"
	p.X.Label.Text = "importance"

	chart, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, cmlErrors.Wrap(err, "failed to build bar chart")
	}
	chart.Horizontal = true
	chart.LineStyle.Width = vg.Length(0)
	chart.Color = plotter.DefaultLineStyle.Color
	p.Add(chart)
	p.NominalY(labels...)
	return p, nil
}

// WriteImportancePNG renders ImportanceChart as a PNG to w.
func WriteImportancePNG(w io.Writer, bars []Bar, top int) error {
	p, err := ImportanceChart(bars, top)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return cmlErrors.Wrap(err, "failed to render chart")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return cmlErrors.Wrap(err, "failed to write chart")
	}
	return nil
}
