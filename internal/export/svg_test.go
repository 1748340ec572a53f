package export

import (
	"strings"
	"testing"

	"github.com/san-kum/sphlab/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)

	svg := CanvasToSVG(c, 4)
	if !strings.HasPrefix(svg, `<?xml version="1.0"`) {
		t.Error("missing xml header")
	}
	if strings.Count(svg, "<circle") != 2 {
		t.Errorf("expected 2 dots, got %d", strings.Count(svg, "<circle"))
	}

	if CanvasToSVG(nil, 4) != "" {
		t.Error("nil canvas should render empty")
	}
}

func TestScatterToSVG(t *testing.T) {
	xs := []float64{0, 1, 2}
	ys := []float64{0, 1, 0}
	field := []float64{1, 2, 3}

	svg := ScatterToSVG(xs, ys, field, 100, 100)
	if strings.Count(svg, "<circle") != 3 {
		t.Errorf("expected 3 particles, got %d circles", strings.Count(svg, "<circle"))
	}
	if !strings.Contains(svg, "fill=\"#") {
		t.Error("expected per-particle fill colors")
	}

	if ScatterToSVG(nil, nil, nil, 100, 100) != "" {
		t.Error("empty input should render empty")
	}
	if ScatterToSVG(xs, ys[:2], nil, 100, 100) != "" {
		t.Error("mismatched lengths should render empty")
	}
}

func TestProfileToSVGSortsByX(t *testing.T) {
	// Unsorted x: the path must still start at the smallest x.
	xs := []float64{2, 0, 1}
	vals := []float64{4, 0, 1}

	svg := ProfileToSVG(xs, vals, 100, 100, "#00ccff")
	start := strings.Index(svg, `d="M`)
	if start < 0 {
		t.Fatal("missing path")
	}
	path := svg[start+4:]
	if !strings.HasPrefix(path, "8.3,91.7") {
		t.Errorf("path should start at the leftmost point, got %q", path[:12])
	}

	if ProfileToSVG(xs[:1], vals[:1], 100, 100, "#fff") != "" {
		t.Error("single point should render empty")
	}
}
