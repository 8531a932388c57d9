package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/samdwyer/idlecrawl/internal/world"
)

// Canvas is the drawing surface the renderer needs. *Screen implements it.
type Canvas interface {
	Clear()
	Show()
	SetContent(x, y int, r rune, style tcell.Style)
	Size() (width, height int)
}

// Gauge is one combatant or party member line.
type Gauge struct {
	Name   string
	Glyph  rune
	Color  tcell.Color
	HP     int
	MaxHP  int
	MP     int
	MaxMP  int
	Ready  float64 // 0..1 share of the ready threshold
	Marked bool    // awaiting a command
}

// View is everything drawn in one frame.
type View struct {
	Title   string
	Status  string
	Floor   *world.Floor
	Visited [][]bool
	Party   world.Point
	Members []Gauge
	Enemies []Gauge
	Log     []string
	Overlay []string
	Help    string
}

const (
	gaugeWidth = 10
	panelGap   = 3
)

var (
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleParty  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleMarked = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
)

// Renderer handles drawing the game to the screen.
type Renderer struct {
	screen Canvas
}

// NewRenderer creates a new renderer for the given screen.
func NewRenderer(screen Canvas) *Renderer {
	return &Renderer{screen: screen}
}

// Render draws a complete frame.
func (r *Renderer) Render(v View) {
	r.screen.Clear()
	width, height := r.screen.Size()

	r.drawText(0, 0, v.Title, styleTitle)
	r.drawText(0, 1, v.Status, styleText)

	panelX := 0
	if v.Floor != nil {
		r.drawFloor(v, 0, 3)
		panelX = v.Floor.Width*2 + panelGap
	}

	y := 3
	r.drawText(panelX, y, "Party", styleTitle)
	y++
	for _, g := range v.Members {
		r.drawGauge(panelX, y, g)
		y++
	}
	if len(v.Enemies) > 0 {
		y++
		r.drawText(panelX, y, "Enemies", styleTitle)
		y++
		for _, g := range v.Enemies {
			r.drawGauge(panelX, y, g)
			y++
		}
	}

	logTop := y + 1
	if v.Floor != nil {
		logTop = max(logTop, 3+v.Floor.Height+1)
	}
	logRows := height - logTop - 1
	if logRows > 0 {
		lines := v.Log
		if len(lines) > logRows {
			lines = lines[len(lines)-logRows:]
		}
		for i, line := range lines {
			r.drawText(0, logTop+i, line, styleText)
		}
	}

	if len(v.Overlay) > 0 {
		r.drawOverlay(v.Overlay, width)
	}
	if v.Help != "" {
		r.drawText(0, height-1, v.Help, styleDim)
	}

	r.screen.Show()
}

func (r *Renderer) drawFloor(v View, ox, oy int) {
	f := v.Floor
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			p := world.Point{X: x, Y: y}
			ch, style := '?', styleDim
			if visited(v.Visited, p) {
				room := f.At(p).Room
				ch, style = room.Rune(), roomStyle(room)
			}
			if p == v.Party {
				ch, style = '@', styleParty
			}
			r.screen.SetContent(ox+x*2, oy+y, ch, style)
		}
	}
}

func visited(grid [][]bool, p world.Point) bool {
	return p.Y >= 0 && p.Y < len(grid) && p.X >= 0 && p.X < len(grid[p.Y]) && grid[p.Y][p.X]
}

// roomStyle returns the style for a revealed room.
func roomStyle(room world.RoomType) tcell.Style {
	switch room {
	case world.RoomEnemy:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	case world.RoomBoss:
		return tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	case world.RoomGold, world.RoomKey:
		return tcell.StyleDefault.Foreground(tcell.ColorGold)
	case world.RoomTrap:
		return tcell.StyleDefault.Foreground(tcell.ColorPurple)
	case world.RoomNPC:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case world.RoomStairs, world.RoomEntrance:
		return tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}

func (r *Renderer) drawGauge(x, y int, g Gauge) {
	style := styleText
	if g.Color != tcell.ColorDefault {
		style = style.Foreground(g.Color)
	}
	if g.HP <= 0 {
		style = styleDim
	}
	if g.Marked {
		r.screen.SetContent(x, y, '>', styleMarked)
	}
	if g.Glyph != 0 {
		r.screen.SetContent(x+1, y, g.Glyph, style)
	}

	x = r.drawText(x+3, y, fmt.Sprintf("%-10s", g.Name), style)
	x = r.drawText(x+1, y, fmt.Sprintf("HP %3d/%-3d", max(g.HP, 0), g.MaxHP), style)
	if g.MaxMP > 0 {
		x = r.drawText(x+1, y, fmt.Sprintf("MP %3d/%-3d", g.MP, g.MaxMP), style)
	}
	r.drawText(x+1, y, bar(g.Ready, gaugeWidth), style)
}

// bar renders a fill fraction as a fixed-width bar.
func bar(frac float64, width int) string {
	frac = min(max(frac, 0), 1)
	filled := int(frac * float64(width))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

func (r *Renderer) drawOverlay(lines []string, screenWidth int) {
	w := 0
	for _, l := range lines {
		w = max(w, len([]rune(l)))
	}
	x0 := max((screenWidth-w-4)/2, 0)
	y0 := 2
	for i := -1; i <= len(lines); i++ {
		for x := x0; x < x0+w+4; x++ {
			r.screen.SetContent(x, y0+i+1, ' ', styleText.Reverse(true))
		}
	}
	for i, l := range lines {
		r.drawText(x0+2, y0+i+1, l, styleText.Reverse(true))
	}
}

// drawText writes s starting at (x, y) and returns the column after it.
func (r *Renderer) drawText(x, y int, s string, style tcell.Style) int {
	for _, ch := range s {
		r.screen.SetContent(x, y, ch, style)
		x++
	}
	return x
}

// RenderMessage displays a message at the bottom of the screen.
func (r *Renderer) RenderMessage(msg string, y int) {
	r.drawText(0, y, msg, styleText)
	r.screen.Show()
}
