// Command desktop shows the syntax tree of a program next to the output of
// running it on the stack machine.
//
//	desktop [-input "5 3"] [-snapshot state.zip] prog.sya
//
// Tab switches between the parsed and the optimized tree, arrow keys and
// the mouse wheel scroll it, R restarts the machine.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"stackc/pkg/compiler"
	"stackc/pkg/config"
	"stackc/pkg/utils"
	"stackc/pkg/vm"
)

const (
	stepsPerFrame = 10000
	boxHeight     = 20.0
	paneWidth     = 240 // machine pane on the right
	scrollSpeed   = 8.0
	autosaveTicks = 180 // three seconds at the default tick rate
)

var (
	edgeColor = color.RGBA{0x70, 0x70, 0x90, 0xff}
	boxColor  = color.RGBA{0xc0, 0xc0, 0xe0, 0xff}
	opColor   = color.RGBA{0xff, 0xc0, 0x60, 0xff}
	paneColor = color.RGBA{0x20, 0x20, 0x28, 0xff}
)

type Game struct {
	face *text.GoXFace

	raw, optimized []placedNode
	showOptimized  bool
	scrollX        float64
	scrollY        float64

	code     *vm.Program
	machine  *vm.VM
	input    string
	output   bytes.Buffer
	runErr   error
	snapshot string
	maxSteps int
	ticks    int

	width, height int
}

func newGame(res *compiler.Result, raw *compiler.Node, input, snapshot string, maxSteps int) *Game {
	face := text.NewGoXFace(basicfont.Face7x13)
	charWidth, _ := text.Measure("M", face, 0)
	g := &Game{
		face:          face,
		raw:           layoutTree(res.Program, raw, charWidth),
		optimized:     layoutTree(res.Program, res.Tree, charWidth),
		showOptimized: true,
		code:          res.Code,
		input:         input,
		snapshot:      snapshot,
		maxSteps:      maxSteps,
	}
	g.restart()
	return g
}

func (g *Game) restart() {
	g.output.Reset()
	g.runErr = nil
	g.machine = vm.New(g.code)
	g.machine.Input = strings.NewReader(g.input)
	g.machine.Output = &g.output
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyTab) {
		g.showOptimized = !g.showOptimized
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.restart()
	}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		g.scrollX += scrollSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		g.scrollX -= scrollSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		g.scrollY += scrollSpeed
	}
	if ebiten.IsKeyPressed(ebiten.KeyDown) {
		g.scrollY -= scrollSpeed
	}
	wx, wy := ebiten.Wheel()
	g.scrollX += wx * scrollSpeed * 4
	g.scrollY += wy * scrollSpeed * 4

	for i := 0; i < stepsPerFrame && !g.machine.Halted && g.runErr == nil; i++ {
		if g.maxSteps > 0 && g.machine.Steps >= g.maxSteps {
			g.runErr = vm.ErrStepLimit
			break
		}
		if err := g.machine.Step(); err != nil {
			g.runErr = err
			break
		}
	}

	g.ticks++
	if g.snapshot != "" && g.ticks%autosaveTicks == 0 && !g.machine.Halted && g.runErr == nil {
		if err := g.machine.HibernateToFile(g.snapshot); err != nil {
			log.Printf("snapshot failed: %v", err)
		}
	}
	return nil
}

func (g *Game) tree() []placedNode {
	if g.showOptimized {
		return g.optimized
	}
	return g.raw
}

func (g *Game) Draw(screen *ebiten.Image) {
	nodes := g.tree()
	ox, oy := g.scrollX+10, g.scrollY+30

	for _, n := range nodes {
		if n.Parent < 0 {
			continue
		}
		px, py := nodes[n.Parent].anchor(true, boxHeight)
		cx, cy := n.anchor(false, boxHeight)
		vector.StrokeLine(screen, float32(px+ox), float32(py+oy), float32(cx+ox), float32(cy+oy), 1, edgeColor, true)
	}

	for _, n := range nodes {
		clr := boxColor
		if isOperator(n.Label) {
			clr = opColor
		}
		x, y := float32(n.X+ox), float32(n.Y+oy)
		vector.StrokeRect(screen, x, y, float32(n.W), boxHeight, 1, clr, true)

		op := &text.DrawOptions{}
		op.GeoM.Translate(n.X+ox+boxPadding, n.Y+oy+3)
		op.ColorScale.ScaleWithColor(clr)
		text.Draw(screen, n.Label, g.face, op)
	}

	g.drawMachine(screen)

	mode := "parsed"
	if g.showOptimized {
		mode = "optimized"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s tree, %d nodes  [tab] switch  [r] restart", mode, len(nodes)), 10, 4)
}

// drawMachine renders the machine state and program output on the right.
func (g *Game) drawMachine(screen *ebiten.Image) {
	left := float32(g.width - paneWidth)
	vector.DrawFilledRect(screen, left, 0, paneWidth, float32(g.height), paneColor, false)

	m := g.machine
	status := "running"
	switch {
	case g.runErr != nil:
		status = "fault"
	case m.Halted:
		status = "halted"
	}
	lines := []string{
		fmt.Sprintf("%s after %d steps", status, m.Steps),
		fmt.Sprintf("pc %d  stack depth %d", m.PC, len(m.Stack)),
	}
	if top, ok := m.Top(); ok {
		lines = append(lines, fmt.Sprintf("top %d", top))
	}
	if g.runErr != nil {
		lines = append(lines, wrap(g.runErr.Error(), paneWidth/6)...)
	}
	lines = append(lines, "", "output:")
	lines = append(lines, tail(strings.Split(strings.TrimRight(g.output.String(), "\n"), "\n"), (g.height-120)/16)...)

	for i, l := range lines {
		ebitenutil.DebugPrintAt(screen, l, int(left)+8, 8+i*16)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.width, g.height = outsideWidth, outsideHeight
	return outsideWidth, outsideHeight
}

func isOperator(label string) bool {
	switch label {
	case "+", "-", "*", "/", "==", "!=", ">", "<", ">=", "<=", "&&", "||", "!", "=",
		"input", "print", "sqrt", "sin", "cos":
		return true
	}
	return false
}

// tail returns at most n trailing lines.
func tail(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) > n {
		return lines[len(lines)-n:]
	}
	return lines
}

// wrap splits s into lines of at most width characters.
func wrap(s string, width int) []string {
	var out []string
	for len(s) > width && width > 0 {
		out = append(out, s[:width])
		s = s[width:]
	}
	return append(out, s)
}

func main() {
	cfg := config.Load()
	input := flag.String("input", "", "whitespace separated values read by input")
	snapshot := flag.String("snapshot", "", "periodically hibernate the running machine to this file")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: desktop [-input values] [-snapshot file] prog.sya")
		os.Exit(2)
	}

	source, _, err := utils.ReadSource(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}

	_, raw, err := compiler.Frontend(source, log.Default())
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}
	res, err := compiler.Compile(source, compiler.Options{NoOptimize: cfg.NoOptimize, DumpDir: cfg.DumpDir})
	if err != nil {
		log.Fatalf("Compilation failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(1024, 640)
	ebiten.SetWindowTitle("stackc desktop: " + flag.Arg(0))

	game := newGame(res, raw, *input, *snapshot, cfg.MaxSteps)
	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}

	// Final flush so an unfinished run can be resumed with stackc -resume.
	if *snapshot != "" && !game.machine.Halted {
		if err := game.machine.HibernateToFile(*snapshot); err != nil {
			log.Printf("snapshot failed: %v", err)
		}
	}
}
