package world

import (
	"strings"
	"testing"
)

func TestOverlaps(t *testing.T) {
	tile := Rect{X0: 0, Y0: 0, X1: 25, Y1: 25}
	cases := []struct {
		name   string
		center Vec2
		r      int
		want   bool
	}{
		{"exact corner touch", Vec2{25, 25}, 5, false},
		{"corner strictly inside", Vec2{20, 20}, 8, true},
		{"circle strictly inside", Vec2{12, 12}, 5, true},
		{"top-left corner inside", Vec2{2, 2}, 5, true},
		{"top-right corner inside", Vec2{24, 1}, 4, true},
		{"bottom-left corner inside", Vec2{-2, 27}, 4, true},
		{"crosses top edge", Vec2{12, -2}, 4, true},
		{"crosses bottom edge", Vec2{12, 27}, 4, true},
		{"crosses left edge", Vec2{-2, 12}, 4, true},
		{"crosses right edge", Vec2{27, 12}, 4, true},
		{"grazes right edge", Vec2{30, 12}, 5, false},
		{"grazes top edge", Vec2{12, -5}, 5, false},
		{"far away", Vec2{100, 100}, 5, false},
		{"inside touching left edge", Vec2{5, 12}, 5, false},
		{"tile inside big circle", Vec2{12, 12}, 40, true},
		{"centre on right edge", Vec2{25, 12}, 5, true},
		{"centre on top edge", Vec2{12, 0}, 5, true},
		{"centre on edge line above corner", Vec2{25, -1}, 5, true},
		{"centre on top-left corner", Vec2{0, 0}, 5, false},
	}
	for _, tc := range cases {
		if got := Overlaps(tile, tc.center, tc.r); got != tc.want {
			t.Errorf("%s: Overlaps(%v, r=%d) = %v, want %v", tc.name, tc.center, tc.r, got, tc.want)
		}
	}
}

func TestCheckAgainstMap(t *testing.T) {
	m, err := ParseTileMap(strings.NewReader("###\n# #\n###\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	const tile = 32
	spawn := m.Spawn(tile)
	if spawn != (Vec2{48, 48}) {
		t.Fatalf("spawn = %v, want {48 48}", spawn)
	}
	if CheckAgainstMap(m, tile, spawn, tile/4) {
		t.Fatalf("spawn point should be collision free")
	}
	if !CheckAgainstMap(m, tile, Vec2{40, 48}, 10) {
		t.Fatalf("circle crossing the left wall should collide")
	}
	rect, ok := FirstOverlap(m, tile, Vec2{48, 36}, 8)
	if !ok || rect != TileRect(1, 0, tile) {
		t.Fatalf("first overlap = %v %v, want top wall tile", rect, ok)
	}
}

func TestCentreOnTileLineCollides(t *testing.T) {
	const tile = 25
	m, err := ParseTileMap(strings.NewReader("##\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	// 圆心在两块阻挡格的公共边上
	rect, ok := FirstOverlap(m, tile, Vec2{25, 12}, 5)
	if !ok || rect != TileRect(0, 0, tile) {
		t.Fatalf("first overlap = %v %v, want left tile", rect, ok)
	}
	// 圆心在右侧格子的外边上
	if !CheckAgainstMap(m, tile, Vec2{50, 12}, 5) {
		t.Fatalf("circle centred on the right edge should collide")
	}
	// 圆心在角点上，圆在格子外侧
	if CheckAgainstMap(m, tile, Vec2{50, 25}, 5) {
		t.Fatalf("circle whose centre only touches a corner should not collide")
	}
}

func TestDefaultTileMap(t *testing.T) {
	m := DefaultTileMap()
	if m.Cols() != DefaultCols || m.Rows() != DefaultRows {
		t.Fatalf("default map is %dx%d", m.Cols(), m.Rows())
	}
	if m.At(0, 0) != Blocking || m.At(1, 1) != Open {
		t.Fatalf("unexpected border layout")
	}
	if CheckAgainstMap(m, 32, m.Spawn(32), 8) {
		t.Fatalf("default spawn collides")
	}
	lines := m.Lines()
	back, err := ParseTileMap(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	for y := 0; y < m.Rows(); y++ {
		for x := 0; x < m.Cols(); x++ {
			if back.At(x, y) != m.At(x, y) {
				t.Fatalf("cell %d,%d differs after reparse", x, y)
			}
		}
	}
}

func TestParseTileMapErrors(t *testing.T) {
	if _, err := ParseTileMap(strings.NewReader("\n\n")); err == nil {
		t.Fatalf("expected error for empty map")
	}
	if _, err := NewTileMap(2, 2, []Cell{Open}); err == nil {
		t.Fatalf("expected error for wrong cell count")
	}
}
