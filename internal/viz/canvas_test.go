package viz

import "testing"

func cellLit(c *Canvas, x, y int) bool {
	return c.Grid[y/4][x/2] != 0x2800
}

func TestSetLightsCell(t *testing.T) {
	c := NewCanvas(4, 4)
	c.Set(3, 5)
	if !cellLit(c, 3, 5) {
		t.Error("cell not lit after Set")
	}

	// Out-of-range coordinates must be ignored.
	c.Set(-1, 0)
	c.Set(0, -1)
	c.Set(8, 0)
	c.Set(0, 16)
}

func TestClear(t *testing.T) {
	c := NewCanvas(4, 4)
	c.Set(1, 1)
	c.Clear()
	if cellLit(c, 1, 1) {
		t.Error("cell still lit after Clear")
	}
}

func TestDrawLine(t *testing.T) {
	c := NewCanvas(10, 10)
	c.DrawLine(2, 3, 14, 27)

	if !cellLit(c, 2, 3) {
		t.Error("line start not lit")
	}
	if !cellLit(c, 14, 27) {
		t.Error("line end not lit")
	}
	// A vertical stem lights every sub-pixel on the way down.
	c.Clear()
	c.DrawLine(6, 0, 6, 8)
	for y := 0; y <= 8; y++ {
		if !cellLit(c, 6, y) {
			t.Errorf("vertical line missing pixel at y=%d", y)
		}
	}
}

func TestDrawCircleStaysOnRadius(t *testing.T) {
	c := NewCanvas(20, 20)
	c.DrawCircle(20, 40, 10, 1.0)

	// Center stays dark, the perimeter extremes are lit.
	if cellLit(c, 20, 40) {
		t.Error("circle center lit")
	}
	for _, p := range [][2]int{{30, 40}, {10, 40}, {20, 50}, {20, 30}} {
		if !cellLit(c, p[0], p[1]) {
			t.Errorf("perimeter point (%d,%d) not lit", p[0], p[1])
		}
	}
}

func TestDrawDotFillsDisc(t *testing.T) {
	c := NewCanvas(10, 10)
	c.DrawDot(10, 20, 2)
	for _, p := range [][2]int{{10, 20}, {12, 20}, {8, 20}, {10, 22}, {10, 18}} {
		if !cellLit(c, p[0], p[1]) {
			t.Errorf("disc point (%d,%d) not lit", p[0], p[1])
		}
	}
}
