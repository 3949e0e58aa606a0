package glm

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

// TracePlotter draws the coefficient path recorded in an OnlineOutput, one
// line per coefficient against the step index.
type TracePlotter struct {
	out *OnlineOutput

	coords []int
	labels []string
	title  string

	width  vg.Length
	height vg.Length
}

// NewTracePlotter returns a plotter for all coefficients of out.
func NewTracePlotter(out *OnlineOutput) *TracePlotter {
	return &TracePlotter{
		out:    out,
		title:  "Coefficient path",
		width:  6,
		height: 4,
	}
}

// Width sets the width of the plot in inches.
func (tp *TracePlotter) Width(w float64) *TracePlotter {
	tp.width = vg.Length(w)
	return tp
}

// Height sets the height of the plot in inches.
func (tp *TracePlotter) Height(h float64) *TracePlotter {
	tp.height = vg.Length(h)
	return tp
}

// Title sets the plot title.
func (tp *TracePlotter) Title(title string) *TracePlotter {
	tp.title = title
	return tp
}

// Coordinates restricts the plot to the given coefficient indices.
func (tp *TracePlotter) Coordinates(idx ...int) *TracePlotter {
	tp.coords = idx
	return tp
}

// Labels sets the legend entries, one per plotted coefficient.
func (tp *TracePlotter) Labels(names ...string) *TracePlotter {
	tp.labels = names
	return tp
}

// Plot constructs the plot. Step 0 is the initial estimate.
func (tp *TracePlotter) Plot() (*plot.Plot, error) {
	if tp.out == nil || tp.out.Len() == 0 {
		return nil, errors.NewValueError("TracePlotter.Plot", "no estimates to plot")
	}

	coords := tp.coords
	if len(coords) == 0 {
		coords = make([]int, tp.out.P())
		for j := range coords {
			coords[j] = j
		}
	}
	if len(tp.labels) > 0 && len(tp.labels) != len(coords) {
		return nil, errors.NewDimensionError("TracePlotter.Plot", len(coords), len(tp.labels), 1)
	}

	p := plot.New()
	p.Title.Text = tp.title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Estimate"

	k := tp.out.Len()
	initial := tp.out.Initial()
	for i, j := range coords {
		if j < 0 || j >= tp.out.P() {
			return nil, errors.NewValueError("TracePlotter.Plot", fmt.Sprintf("coefficient index %d out of range", j))
		}

		pts := make(plotter.XYs, k+1)
		pts[0].X = 0
		pts[0].Y = initial.AtVec(j)
		for t := 0; t < k; t++ {
			pts[t+1].X = float64(t + 1)
			pts[t+1].Y = tp.out.estimates[t].AtVec(j)
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrap(err, "trace line")
		}
		line.Color = plotutil.Color(i)
		p.Add(line)

		label := fmt.Sprintf("θ%d", j)
		if len(tp.labels) > 0 {
			label = tp.labels[i]
		}
		p.Legend.Add(label, line)
	}
	p.Legend.Top = true
	return p, nil
}

// Save writes the plot to fname. The format follows the file extension.
// Panics from the canvas backends (e.g. oversized images) come back as errors.
func (tp *TracePlotter) Save(fname string) error {
	p, err := tp.Plot()
	if err != nil {
		return err
	}
	return errors.SafeExecute("TracePlotter.Save", func() error {
		if err := p.Save(tp.width*vg.Inch, tp.height*vg.Inch, fname); err != nil {
			return errors.Wrapf(err, "save trace plot %s", fname)
		}
		return nil
	})
}
