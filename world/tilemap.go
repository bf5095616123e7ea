// Package world 静态地图与圆 / 格子碰撞检测
package world

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// DefaultCols / DefaultRows 与 MapData 线上负载一致
	DefaultCols = 20
	DefaultRows = 20
)

// Vec2 整数像素位置或速度
type Vec2 struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Cell 地图中的一格
type Cell uint8

const (
	Open Cell = iota
	Blocking
)

// TileMap 不可变的格子地图
type TileMap struct {
	cols, rows int
	cells      []Cell
}

var errEmptyMap = errors.New("world: empty tile map")

// NewTileMap 复制 cells（按行，长度 cols*rows）
func NewTileMap(cols, rows int, cells []Cell) (*TileMap, error) {
	if cols <= 0 || rows <= 0 {
		return nil, errEmptyMap
	}
	if len(cells) != cols*rows {
		return nil, fmt.Errorf("world: %d cells for a %dx%d map", len(cells), cols, rows)
	}
	cp := make([]Cell, len(cells))
	copy(cp, cells)
	return &TileMap{cols: cols, rows: rows, cells: cp}, nil
}

// ParseTileMap 每行文本对应一行格子：空格为 Open，其余为 Blocking；短行以 Open 补齐
func ParseTileMap(r io.Reader) (*TileMap, error) {
	var lines []string
	width := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if n := len([]rune(line)); n > width {
			width = n
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("world: read map: %w", err)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 || width == 0 {
		return nil, errEmptyMap
	}
	cells := make([]Cell, width*len(lines))
	for y, line := range lines {
		for x, ch := range []rune(line) {
			if ch != ' ' {
				cells[y*width+x] = Blocking
			}
		}
	}
	return &TileMap{cols: width, rows: len(lines), cells: cells}, nil
}

// LoadTileMap 读取地图文件
func LoadTileMap(path string) (*TileMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("world: open map: %w", err)
	}
	defer f.Close()
	return ParseTileMap(f)
}

const defaultLayout = `####################
#                  #
#  ####     ####   #
#  #           #   #
#  #   #####   #   #
#      #   #       #
#      #   #  ###  #
#  ##         #    #
#   #   ###   #    #
#   #     #        #
#       # #   ##   #
#  #### # #        #
#       #   ####   #
#   #   #      #   #
#   #####  #   #   #
#          #       #
#   ###    #####   #
#     #            #
#                  #
####################`

// DefaultTileMap 内置 20x20 带边界迷宫
func DefaultTileMap() *TileMap {
	m, err := ParseTileMap(strings.NewReader(defaultLayout))
	if err != nil {
		panic(err)
	}
	return m
}

func (m *TileMap) Cols() int { return m.cols }
func (m *TileMap) Rows() int { return m.rows }

// At 第 y 行第 x 列的格子，越界视为 Open
func (m *TileMap) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= m.cols || y >= m.rows {
		return Open
	}
	return m.cells[y*m.cols+x]
}

// Spawn 按行第一个 Open 格的中心；全部阻挡时返回左上角格中心
func (m *TileMap) Spawn(tileLength int) Vec2 {
	for i, c := range m.cells {
		if c == Open {
			return Vec2{
				X: (i%m.cols)*tileLength + tileLength/2,
				Y: (i/m.cols)*tileLength + tileLength/2,
			}
		}
	}
	return Vec2{X: tileLength / 2, Y: tileLength / 2}
}

// Cells 按行返回格子副本
func (m *TileMap) Cells() []Cell {
	cp := make([]Cell, len(m.cells))
	copy(cp, m.cells)
	return cp
}

// Lines 还原为文本形式
func (m *TileMap) Lines() []string {
	out := make([]string, m.rows)
	var b strings.Builder
	for y := 0; y < m.rows; y++ {
		b.Reset()
		for x := 0; x < m.cols; x++ {
			if m.At(x, y) == Blocking {
				b.WriteByte('#')
			} else {
				b.WriteByte(' ')
			}
		}
		out[y] = b.String()
	}
	return out
}
