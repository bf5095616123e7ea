package world

// Rect 轴对齐矩形 (X0,Y0)-(X1,Y1)
type Rect struct {
	X0, Y0, X1, Y1 int
}

// TileRect 第 row 行第 col 列格子的像素矩形
func TileRect(col, row, tileLength int) Rect {
	x0, y0 := col*tileLength, row*tileLength
	return Rect{X0: x0, Y0: y0, X1: x0 + tileLength, Y1: y0 + tileLength}
}

// Overlaps 圆（圆心 center，半径 r）是否与 tile 重叠
// 用圆的外接正方形判断，所有比较都是严格的：只接触边界不算重叠；
// 格子角点恰好落在圆心上也只算接触
//
// 以下任一成立即重叠：圆严格在格子内部；其他角点严格在圆内；
// 某条边穿过圆
func Overlaps(tile Rect, center Vec2, r int) bool {
	a0, a1 := center.X-r, center.X+r
	b0, b1 := center.Y-r, center.Y+r

	inX := func(v int) bool { return a0 < v && v < a1 }
	inY := func(v int) bool { return b0 < v && v < b1 }
	corner := func(x, y int) bool {
		return inX(x) && inY(y) && (x != center.X || y != center.Y)
	}
	spansX := tile.X0 < a0 && a1 < tile.X1
	spansY := tile.Y0 < b0 && b1 < tile.Y1

	switch {
	case spansX && spansY:
		return true
	case corner(tile.X0, tile.Y0),
		corner(tile.X0, tile.Y1),
		corner(tile.X1, tile.Y1),
		corner(tile.X1, tile.Y0):
		return true
	case spansX && (inY(tile.Y0) || inY(tile.Y1)):
		return true
	case spansY && (inX(tile.X0) || inX(tile.X1)):
		return true
	}
	return false
}

// FirstOverlap 按行扫描阻挡格，返回第一个与圆重叠的格子
func FirstOverlap(m *TileMap, tileLength int, center Vec2, r int) (Rect, bool) {
	for row := 0; row < m.rows; row++ {
		for col := 0; col < m.cols; col++ {
			if m.cells[row*m.cols+col] != Blocking {
				continue
			}
			tile := TileRect(col, row, tileLength)
			if Overlaps(tile, center, r) {
				return tile, true
			}
		}
	}
	return Rect{}, false
}

// CheckAgainstMap 圆是否与任一阻挡格重叠
func CheckAgainstMap(m *TileMap, tileLength int, center Vec2, r int) bool {
	_, hit := FirstOverlap(m, tileLength, center, r)
	return hit
}
