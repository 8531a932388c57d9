// Package ui provides terminal rendering using tcell.
package ui

import (
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
)

// Screen is the terminal the game draws on. It satisfies Canvas and feeds
// key presses and clock ticks through one event queue.
type Screen struct {
	screen tcell.Screen
	once   sync.Once
}

// NewScreen creates and initializes a new terminal screen.
func NewScreen() (*Screen, error) {
	s, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewScreenFrom(s)
}

// NewScreenFrom initializes an existing tcell screen, such as a simulation
// screen in tests.
func NewScreenFrom(s tcell.Screen) (*Screen, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	s.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	s.HideCursor()
	s.Clear()
	return &Screen{screen: s}, nil
}

// Close restores the terminal. Later calls do nothing.
func (s *Screen) Close() {
	s.once.Do(s.screen.Fini)
}

// PollEvent waits for the next key, resize or tick. It returns nil once the
// screen is closed.
func (s *Screen) PollEvent() tcell.Event {
	return s.screen.PollEvent()
}

// PostEvent queues an event for PollEvent from any goroutine.
func (s *Screen) PostEvent(ev tcell.Event) error {
	return s.screen.PostEvent(ev)
}

// StartTicker posts an interrupt every interval until stop is called. A full
// event queue drops that tick rather than blocking.
func (s *Screen) StartTicker(interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-ticker.C:
				_ = s.screen.PostEvent(tcell.NewEventInterrupt(now))
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (s *Screen) Clear() { s.screen.Clear() }
func (s *Screen) Show() { s.screen.Show() }
func (s *Screen) Sync() { s.screen.Sync() }
func (s *Screen) Size() (width, height int) { return s.screen.Size() }

func (s *Screen) SetContent(x, y int, r rune, style tcell.Style) {
	s.screen.SetContent(x, y, r, nil, style)
}
