package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"github.com/sonata22/countries-quiz/internal/atlas"
	"github.com/sonata22/countries-quiz/internal/flags"
	"github.com/sonata22/countries-quiz/internal/quiz"
	"github.com/sonata22/countries-quiz/internal/viewport"
)

const (
	windowWidth  = 1200
	panelHeight  = 120
	maxGuessLen  = 40
	flagRowPx    = 60
	zoomPerNotch = 1.12
)

var (
	colSea     = rgb(168, 202, 226)
	colLand    = rgb(211, 211, 211)
	colGuessed = rgb(50, 205, 50)
	colTarget  = rgb(255, 215, 0)
	colBorder  = rgb(130, 130, 130)
	colPanel   = rgb(244, 244, 244)
	colText    = rgb(20, 20, 20)
	colSubtle  = rgb(110, 110, 110)
	colWrong   = rgb(200, 40, 40)
	colSkip    = rgb(200, 140, 0)
	colOverlay = color.RGBA{0, 0, 0, 140}
)

// whiteSubImage is the 1x1 source for DrawTriangles fills, taken from the
// middle of a 3x3 image so antialiased edges do not bleed neighbors in.
var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

type flagMsg struct {
	iso string
	img image.Image
}

type game struct {
	world *atlas.Atlas
	quiz  *quiz.Session
	flags *flags.Fetcher

	vt   viewport.Transform
	view viewport.Bounds

	mapW, mapH int
	mapLayer   *ebiten.Image
	dirty      bool

	typed    string
	runes    []rune
	feedback string
	feedCol  color.Color
	gameOver bool

	flagImg  *ebiten.Image
	flagWant string
	flagCh   chan flagMsg

	dragging       bool
	lastMx, lastMy int

	tick     int
	fontMain font.Face
}

func newGame(world *atlas.Atlas, qz *quiz.Session, fl *flags.Fetcher) *game {
	vt := viewport.NewTransform(world.Bounds())
	g := &game{
		world:    world,
		quiz:     qz,
		flags:    fl,
		vt:       vt,
		view:     vt.World(),
		mapW:     windowWidth,
		dirty:    true,
		flagCh:   make(chan flagMsg, 4),
		fontMain: basicfont.Face7x13,
	}

	wb := world.Bounds()
	g.mapH = int(float64(g.mapW) * wb.Height() / wb.Width())
	if g.mapH < 200 {
		g.mapH = 200
	}
	if g.mapH > 800 {
		g.mapH = 800
	}
	g.mapLayer = ebiten.NewImage(g.mapW, g.mapH)

	ebiten.SetWindowSize(g.mapW, g.mapH+panelHeight)
	ebiten.SetWindowTitle("Geography Quiz")
	return g
}

func (g *game) Layout(_, _ int) (int, int) {
	return g.mapW, g.mapH + panelHeight
}

// ---- update ----

func (g *game) Update() error {
	g.tick++

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyHome) {
		g.setView(g.vt.World())
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.focusTarget()
	}
	if g.gameOver && inpututil.IsKeyJustPressed(ebiten.KeyN) {
		g.restart()
	}

	g.handleMouse()
	if !g.gameOver {
		g.handleTyping()
	}
	g.drainFlag()
	return nil
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()

	if _, wy := ebiten.Wheel(); wy != 0 && my < g.mapH {
		lon, lat := g.screenToWorld(mx, my)
		g.setView(g.vt.Zoom(g.view, math.Pow(zoomPerNotch, -wy), lon, lat))
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) && my < g.mapH {
		g.dragging = true
		g.lastMx, g.lastMy = mx, my
	}
	if g.dragging {
		if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
			g.dragging = false
			return
		}
		dx, dy := mx-g.lastMx, my-g.lastMy
		if dx != 0 || dy != 0 {
			ux := g.view.Width() / float64(g.mapW)
			uy := g.view.Height() / float64(g.mapH)
			g.setView(g.vt.Pan(g.view, -float64(dx)*ux, float64(dy)*uy, 1))
			g.lastMx, g.lastMy = mx, my
		}
	}
}

func (g *game) handleTyping() {
	g.runes = ebiten.AppendInputChars(g.runes[:0])
	for _, r := range g.runes {
		if len([]rune(g.typed)) < maxGuessLen {
			g.typed += string(r)
		}
	}
	if repeatingKeyPressed(ebiten.KeyBackspace) && g.typed != "" {
		rs := []rune(g.typed)
		g.typed = string(rs[:len(rs)-1])
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.submit()
	}
}

func (g *game) submit() {
	res, err := g.quiz.SubmitGuess(g.typed)
	if err != nil {
		return
	}
	g.typed = ""
	switch res.Verdict {
	case quiz.VerdictCorrect:
		g.feedback = "Correct! It was " + res.Answer + "."
		g.feedCol = colGuessed
	case quiz.VerdictIncorrect:
		g.feedback = "Wrong! It was " + res.Answer + "."
		g.feedCol = colWrong
	default:
		g.feedback = "Skipped! It was " + res.Answer + "."
		g.feedCol = colSkip
	}
	if res.GameOver {
		g.gameOver = true
	}
	g.dirty = true
	g.requestFlag(res.Answer)
}

func (g *game) restart() {
	qz, err := quiz.New(g.world.Names(), rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return
	}
	g.quiz = qz
	g.gameOver = false
	g.typed = ""
	g.feedback = ""
	g.flagImg = nil
	g.flagWant = ""
	g.dirty = true
}

// requestFlag asks the flag CDN for the answered country's flag off the
// game loop. Countries without a usable ISO code clear the slot.
func (g *game) requestFlag(name string) {
	c, ok := g.world.Country(name)
	if !ok || c.ISO2 == "" {
		g.flagImg = nil
		g.flagWant = ""
		return
	}
	g.flagWant = c.ISO2
	go func(iso string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		img, err := g.flags.Image(ctx, iso)
		if err != nil {
			return
		}
		select {
		case g.flagCh <- flagMsg{iso: iso, img: img}:
		default:
		}
	}(c.ISO2)
}

func (g *game) drainFlag() {
	select {
	case m := <-g.flagCh:
		if m.iso == g.flagWant {
			g.flagImg = ebiten.NewImageFromImage(m.img)
		}
	default:
	}
}

func (g *game) setView(v viewport.Bounds) {
	if v != g.view {
		g.view = v
		g.dirty = true
	}
}

func (g *game) focusTarget() {
	target, ok := g.quiz.CurrentTarget()
	if !ok {
		return
	}
	c, ok := g.world.Country(target)
	if !ok {
		return
	}
	cx, cy := c.BBox.Center()
	g.setView(g.vt.Around(cx, cy, c.BBox.Width()*2))
}

// ---- draw ----

func (g *game) Draw(screen *ebiten.Image) {
	if g.dirty {
		g.redrawMap()
		g.dirty = false
	}
	screen.DrawImage(g.mapLayer, nil)
	g.drawPanel(screen)
	if g.gameOver {
		g.drawBanner(screen)
	}
}

func (g *game) redrawMap() {
	g.mapLayer.Fill(colSea)
	target, _ := g.quiz.CurrentTarget()
	for _, c := range g.world.Countries() {
		if !intersects(g.view, c.BBox) {
			continue
		}
		fill := colLand
		switch {
		case strings.EqualFold(c.Name, target):
			fill = colTarget
		case g.quiz.IsGuessed(c.Name):
			fill = colGuessed
		}
		g.drawCountry(c, fill)
	}
}

func (g *game) drawCountry(c atlas.Country, fill color.Color) {
	var path vector.Path
	for _, ring := range c.Rings {
		for i, p := range ring {
			x, y := g.worldToScreen(p.X, p.Y)
			if i == 0 {
				path.MoveTo(x, y)
			} else {
				path.LineTo(x, y)
			}
		}
		path.Close()
	}

	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	tintVertices(vs, fill)
	g.mapLayer.DrawTriangles(vs, is, whiteSubImage, &ebiten.DrawTrianglesOptions{
		AntiAlias: true,
		FillRule:  ebiten.FillRuleNonZero,
	})

	sop := &vector.StrokeOptions{}
	sop.Width = 1
	svs, sis := path.AppendVerticesAndIndicesForStroke(nil, nil, sop)
	tintVertices(svs, colBorder)
	g.mapLayer.DrawTriangles(svs, sis, whiteSubImage, &ebiten.DrawTrianglesOptions{
		AntiAlias: true,
	})
}

func (g *game) drawPanel(screen *ebiten.Image) {
	py := g.mapH
	ebitenutil.DrawRect(screen, 0, float64(py), float64(g.mapW), panelHeight, colPanel)

	guessed, total := g.quiz.Progress()
	text.Draw(screen, fmt.Sprintf("Guessed: %d/%d", guessed, total), g.fontMain, 16, py+24, colText)

	lx := 160
	swatch := func(c color.Color, label string) {
		ebitenutil.DrawRect(screen, float64(lx), float64(py+14), 12, 12, c)
		text.Draw(screen, label, g.fontMain, lx+18, py+24, colText)
		lx += 18 + len(label)*7 + 24
	}
	swatch(colTarget, "Target")
	swatch(colGuessed, "Guessed")
	swatch(colLand, "Land")

	in := "Your guess: " + g.typed
	if !g.gameOver && (g.tick/30)%2 == 0 {
		in += "_"
	}
	text.Draw(screen, in, g.fontMain, 16, py+56, colText)

	if g.feedback != "" {
		text.Draw(screen, g.feedback, g.fontMain, 16, py+80, g.feedCol)
	} else {
		text.Draw(screen, "Which country is highlighted?", g.fontMain, 16, py+80, colSubtle)
	}

	help := "Enter: submit (empty = skip) | wheel: zoom | drag: pan | Tab: center target | Home: world | Esc: quit"
	text.Draw(screen, help, g.fontMain, 16, py+106, colSubtle)

	if g.flagImg != nil {
		b := g.flagImg.Bounds()
		s := flagRowPx / float64(b.Dy())
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(s, s)
		op.GeoM.Translate(float64(g.mapW)-16-float64(b.Dx())*s, float64(py)+30)
		screen.DrawImage(g.flagImg, op)
	}
}

func (g *game) drawBanner(screen *ebiten.Image) {
	w := 480
	x := (g.mapW - w) / 2
	ebitenutil.DrawRect(screen, float64(x), 20, float64(w), 56, colOverlay)

	guessed, total := g.quiz.Progress()
	msg := fmt.Sprintf("Game over! You guessed %d countries correctly.", guessed)
	drawTextCentered(screen, msg, g.fontMain, x, 26, w, rgb(255, 255, 255))
	drawTextCentered(screen, fmt.Sprintf("%d of %d - N: play again, Esc: quit", guessed, total), g.fontMain, x, 48, w, rgb(225, 225, 225))
}

// ---- projection ----

func (g *game) worldToScreen(lon, lat float64) (float32, float32) {
	x := (lon - g.view.X0) / g.view.Width() * float64(g.mapW)
	y := (g.view.Y1 - lat) / g.view.Height() * float64(g.mapH)
	return float32(x), float32(y)
}

func (g *game) screenToWorld(mx, my int) (lon, lat float64) {
	lon = g.view.X0 + (float64(mx)+0.5)/float64(g.mapW)*g.view.Width()
	lat = g.view.Y1 - (float64(my)+0.5)/float64(g.mapH)*g.view.Height()
	return lon, lat
}

func intersects(a, b viewport.Bounds) bool {
	return a.X0 <= b.X1 && b.X0 <= a.X1 && a.Y0 <= b.Y1 && b.Y0 <= a.Y1
}

// ---- helpers ----

func tintVertices(vs []ebiten.Vertex, clr color.Color) {
	r, g, b, a := clr.RGBA()
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(r) / 0xffff
		vs[i].ColorG = float32(g) / 0xffff
		vs[i].ColorB = float32(b) / 0xffff
		vs[i].ColorA = float32(a) / 0xffff
	}
}

// repeatingKeyPressed fires on the initial press and then on a key-repeat
// cadence while the key stays held.
func repeatingKeyPressed(key ebiten.Key) bool {
	const (
		delay    = 30
		interval = 3
	)
	d := inpututil.KeyPressDuration(key)
	if d == 1 {
		return true
	}
	if d >= delay && (d-delay)%interval == 0 {
		return true
	}
	return false
}

func drawTextCentered(screen *ebiten.Image, s string, f font.Face, x, y, w int, clr color.Color) {
	b := text.BoundString(f, s)
	text.Draw(screen, s, f, x+(w-b.Dx())/2, y+13, clr)
}

func rgb(r, g, b uint8) color.Color {
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	world, err := atlas.Load(ctx, atlas.FromEnv())
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load country dataset")
	}

	qz, err := quiz.New(world.Names(), rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start quiz")
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	if err := ebiten.RunGame(newGame(world, qz, flags.FromEnv())); err != nil {
		log.Fatal().Err(err).Msg("gui exited")
	}
}
