package main

import (
	"context"
	"fmt"
	mrand "math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/sonata22/countries-quiz/internal/atlas"
	"github.com/sonata22/countries-quiz/internal/minimap"
	"github.com/sonata22/countries-quiz/internal/quiz"
	"github.com/sonata22/countries-quiz/internal/viewport"
)

// ---- styling ----

var (
	styleCorrect   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true) // green
	styleIncorrect = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	styleSkipped   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // yellow
	styleHeader    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleSubtle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleError     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(1)

	styleWater   = lipgloss.NewStyle().Foreground(lipgloss.Color("24"))               // dim blue
	styleLand    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))              // light gray
	styleGuessed = lipgloss.NewStyle().Foreground(lipgloss.Color("76"))               // lime green
	styleTarget  = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)   // gold
)

var cellGlyphs = map[minimap.Cell]string{
	minimap.CellWater:   styleWater.Render("·"),
	minimap.CellLand:    styleLand.Render("█"),
	minimap.CellGuessed: styleGuessed.Render("█"),
	minimap.CellTarget:  styleTarget.Render("█"),
}

// ---- model ----

type gameState int

const (
	statePlaying gameState = iota
	stateGameOver
)

type model struct {
	world *atlas.Atlas
	game  *quiz.Session

	vt   viewport.Transform
	view viewport.Bounds

	input  textinput.Model
	state  gameState
	result quiz.Result
	err    error

	mapW, mapH int
}

func newModel(world *atlas.Atlas, game *quiz.Session) model {
	ti := textinput.New()
	ti.Placeholder = "Type the country's name..."
	ti.CharLimit = 40
	ti.Width = 40
	ti.Prompt = "> "
	ti.Focus()

	m := model{
		world: world,
		game:  game,
		vt:    viewport.NewTransform(world.Bounds()),
		input: ti,
		state: statePlaying,
		mapW:  76,
		mapH:  22,
	}
	m.view = m.vt.World()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// ---- update ----

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.state {
	case statePlaying:
		return m.updatePlaying(msg)
	case stateGameOver:
		return m.updateGameOver(msg)
	default:
		return m, nil
	}
}

func (m *model) updatePlaying(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyShiftLeft:
			m.pan(-m.view.Width()/8, 0)
			return m, nil
		case tea.KeyShiftRight:
			m.pan(m.view.Width()/8, 0)
			return m, nil
		case tea.KeyShiftUp:
			m.pan(0, m.view.Height()/8)
			return m, nil
		case tea.KeyShiftDown:
			m.pan(0, -m.view.Height()/8)
			return m, nil

		case tea.KeyPgUp:
			m.zoom(0.8)
			return m, nil
		case tea.KeyPgDown:
			m.zoom(1.25)
			return m, nil
		case tea.KeyHome:
			m.view = m.vt.World()
			return m, nil
		case tea.KeyTab:
			m.focusTarget()
			return m, nil

		case tea.KeyEnter:
			res, err := m.game.SubmitGuess(m.input.Value())
			if err != nil {
				m.err = err
				return m, tea.Quit
			}
			m.result = res
			m.input.Reset()
			if res.GameOver {
				m.state = stateGameOver
			}
			return m, nil
		}
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) updateGameOver(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *model) resize(w, h int) {
	m.mapW = w - 2
	if m.mapW < 20 {
		m.mapW = 20
	}
	if m.mapW > 120 {
		m.mapW = 120
	}
	m.mapH = h - 9
	if m.mapH < 8 {
		m.mapH = 8
	}
	if m.mapH > 40 {
		m.mapH = 40
	}
}

func (m *model) pan(dx, dy float64) {
	m.view = m.vt.Pan(m.view, dx, dy, 1)
}

func (m *model) zoom(factor float64) {
	cx, cy := m.view.Center()
	m.view = m.vt.Zoom(m.view, factor, cx, cy)
}

// focusTarget jumps the view to the current target's neighborhood.
func (m *model) focusTarget() {
	target, ok := m.game.CurrentTarget()
	if !ok {
		return
	}
	c, ok := m.world.Country(target)
	if !ok {
		return
	}
	cx, cy := c.BBox.Center()
	m.view = m.vt.Around(cx, cy, c.BBox.Width()*2)
}

// ---- view ----

func (m model) View() string {
	if m.err != nil {
		return styleError.Render("Error: " + m.err.Error())
	}
	switch m.state {
	case stateGameOver:
		return m.viewGameOver()
	default:
		return m.viewPlaying()
	}
}

func (m model) viewPlaying() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("countries-quiz"))
	b.WriteRune('\n')

	guessed, total := m.game.Progress()
	zoom := m.vt.World().Width() / m.view.Width()
	b.WriteString(fmt.Sprintf("Guessed: %d/%d | Round %d | zoom %.1fx", guessed, total, m.game.Rounds()+1, zoom))
	b.WriteString("\n\n")

	b.WriteString(m.renderMap())
	b.WriteString(legendLine())
	b.WriteString("\n")

	if fb := m.feedbackLine(); fb != "" {
		b.WriteString(fb)
	} else {
		b.WriteString(styleSubtle.Render("Name the gold country, or press Enter with no text to skip."))
	}
	b.WriteString("\n\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(styleSubtle.Render("enter: guess (empty skips) | shift+arrows: pan | pgup/pgdn: zoom | tab: center target | home: world | esc: quit"))
	return b.String()
}

func (m model) viewGameOver() string {
	var b strings.Builder
	b.WriteString(styleHeader.Render("countries-quiz"))
	b.WriteRune('\n')
	b.WriteRune('\n')

	b.WriteString(m.renderMap())
	b.WriteString(legendLine())
	b.WriteString("\n")

	if fb := m.feedbackLine(); fb != "" {
		b.WriteString(fb)
		b.WriteRune('\n')
	}
	guessed, _ := m.game.Progress()
	b.WriteString(styleHeader.Render(fmt.Sprintf("🎯 Game over! You guessed %d countries correctly.", guessed)))
	b.WriteString("\n\n")
	b.WriteString(styleSubtle.Render("enter/esc: exit"))
	return b.String()
}

func (m model) renderMap() string {
	target, _ := m.game.CurrentTarget()
	grid := minimap.Rasterize(m.world, minimap.Options{
		Width:     m.mapW,
		Height:    m.mapH,
		View:      m.view,
		Target:    target,
		IsGuessed: m.game.IsGuessed,
	})

	var b strings.Builder
	for y := 0; y < grid.H; y++ {
		for x := 0; x < grid.W; x++ {
			b.WriteString(cellGlyphs[grid.At(x, y)])
		}
		b.WriteRune('\n')
	}
	return b.String()
}

func (m model) feedbackLine() string {
	switch m.result.Verdict {
	case quiz.VerdictCorrect:
		return styleCorrect.Render("✅ Correct! It was " + m.result.Answer + ".")
	case quiz.VerdictIncorrect:
		return styleIncorrect.Render("❌ Wrong! It was " + m.result.Answer + ".")
	case quiz.VerdictSkipped:
		return styleSkipped.Render("⏭️ Skipped! It was " + m.result.Answer + ".")
	}
	return ""
}

func legendLine() string {
	return styleTarget.Render("█") + " target  " + styleGuessed.Render("█") + " guessed  " + styleLand.Render("█") + " land  " + styleWater.Render("·") + " water"
}

// ---- main ----

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	world, err := atlas.Load(ctx, atlas.FromEnv())
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load country dataset")
	}

	game, err := quiz.New(world.Names(), mrand.New(mrand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start quiz")
	}

	p := tea.NewProgram(newModel(world, game))
	if _, err := p.Run(); err != nil {
		log.Fatal().Err(err).Msg("quiz ui exited")
	}
}
