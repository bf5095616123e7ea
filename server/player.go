package server

import (
	"lanarena/registry"
	"lanarena/world"
)

// Direction 方向键
type Direction int

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
)

// ParseDirection 渲染端按键名 -> 方向
func ParseDirection(s string) Direction {
	switch s {
	case "up", "ArrowUp", "w":
		return DirUp
	case "down", "ArrowDown", "s":
		return DirDown
	case "left", "ArrowLeft", "a":
		return DirLeft
	case "right", "ArrowRight", "d":
		return DirRight
	}
	return DirNone
}

// Vector 单位步长（屏幕坐标，y 向下）
func (d Direction) Vector() (dx, dy int) {
	switch d {
	case DirUp:
		return 0, -1
	case DirDown:
		return 0, 1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	}
	return "none"
}

const (
	// intentSpeed 每单位意图增加的速度
	intentSpeed = 3
	// intentNudge 每单位意图直接移动的位移
	intentNudge = 1
)

func unit(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// applyIntent 把一次移动意图作用到 p
func applyIntent(p *registry.Player, in Intent) {
	dx, dy := unit(in.DX), unit(in.DY)
	p.Velocity.X += intentSpeed * dx
	p.Velocity.Y += intentSpeed * dy
	p.Position.X += intentNudge * dx
	p.Position.Y += intentNudge * dy
}

// integrate 按速度移动 p，然后衰减速度；向零截断，漂移的玩家最终会停下
func integrate(p *registry.Player, friction float64) {
	p.Position = p.Position.Add(p.Velocity)
	p.Velocity.X = int(float64(p.Velocity.X) * friction)
	p.Velocity.Y = int(float64(p.Velocity.Y) * friction)
}

// respawn 把 p 放回出生格并静止
func respawn(p *registry.Player, spawn world.Vec2, radius int) {
	p.Position = spawn
	p.Velocity = world.Vec2{}
	p.Radius = radius
	p.Hit = true
}

// wireCoord 把像素坐标裁剪到位置数据报的 u16 范围
func wireCoord(v int) uint16 {
	switch {
	case v < 0:
		return 0
	case v > 0xFFFF:
		return 0xFFFF
	}
	return uint16(v)
}
