package display

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// Panel renders a 16x2 character LCD on a terminal screen.
type Panel struct {
	mu     sync.Mutex
	screen tcell.Screen
	text   [Rows][Columns]rune
	cursor int

	style       tcell.Style
	borderStyle tcell.Style
	titleStyle  tcell.Style
}

var _ LCD = (*Panel)(nil)

// NewPanel draws an empty panel on an initialised screen.
func NewPanel(screen tcell.Screen) *Panel {
	p := &Panel{
		screen:      screen,
		style:       tcell.StyleDefault.Background(tcell.ColorDarkGreen).Foreground(tcell.ColorBlack),
		borderStyle: tcell.StyleDefault.Foreground(tcell.ColorWhite),
		titleStyle:  tcell.StyleDefault.Foreground(tcell.ColorYellow),
	}
	for r := range p.text {
		for c := range p.text[r] {
			p.text[r][c] = ' '
		}
	}
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	p.mu.Lock()
	p.draw()
	p.mu.Unlock()
	return p
}

// OpenPanel takes over the controlling terminal.
func OpenPanel() (*Panel, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to open display: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to open display: %w", err)
	}
	slog.Info("Display panel initialized")
	return NewPanel(screen), nil
}

// Goto moves the cursor. Positions wrap around the 32 cells.
func (p *Panel) Goto(pos int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := Rows * Columns
	p.cursor = ((pos % n) + n) % n
}

// Puts writes s at the cursor and advances it.
func (p *Panel) Puts(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range s {
		p.text[p.cursor/Columns][p.cursor%Columns] = ch
		p.cursor = (p.cursor + 1) % (Rows * Columns)
	}
	p.draw()
}

// Text returns the contents of one row.
func (p *Panel) Text(row int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.text[row][:])
}

// Run handles screen events until the user presses Escape or Ctrl-C, then
// calls quit. It returns when the screen is finalised.
func (p *Panel) Run(quit func()) {
	for {
		ev := p.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return
		case *tcell.EventResize:
			p.mu.Lock()
			p.screen.Sync()
			p.draw()
			p.mu.Unlock()
		case *tcell.EventKey:
			if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
				slog.Debug("Display closed by user")
				quit()
				return
			}
		}
	}
}

// Close restores the terminal.
func (p *Panel) Close() error {
	p.screen.Fini()
	return nil
}

// draw renders the frame and text at the top left corner. Callers hold mu.
func (p *Panel) draw() {
	p.screen.SetContent(0, 0, '┌', nil, p.borderStyle)
	p.screen.SetContent(Columns+1, 0, '┐', nil, p.borderStyle)
	p.screen.SetContent(0, Rows+1, '└', nil, p.borderStyle)
	p.screen.SetContent(Columns+1, Rows+1, '┘', nil, p.borderStyle)
	for x := 1; x <= Columns; x++ {
		p.screen.SetContent(x, 0, '─', nil, p.borderStyle)
		p.screen.SetContent(x, Rows+1, '─', nil, p.borderStyle)
	}
	for y := 1; y <= Rows; y++ {
		p.screen.SetContent(0, y, '│', nil, p.borderStyle)
		p.screen.SetContent(Columns+1, y, '│', nil, p.borderStyle)
	}
	for i, ch := range " 6502 " {
		p.screen.SetContent(2+i, 0, ch, nil, p.titleStyle)
	}

	for r := range p.text {
		for c, ch := range p.text[r] {
			p.screen.SetContent(1+c, 1+r, ch, nil, p.style)
		}
	}
	p.screen.Show()
}
