// Copyright 2016 Hajime Hoshi
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/metalblueberry/bard/pkg/config"
	"github.com/metalblueberry/bard/pkg/loop"
	"github.com/metalblueberry/bard/pkg/session"
	"github.com/metalblueberry/bard/pkg/tone"
	"github.com/metalblueberry/bard/pkg/tuner"
	"github.com/metalblueberry/bard/pkg/tuning"
)

const (
	screenWidth  = 640
	screenHeight = 480

	// highest frequency shown in the spectrum view
	spectrumCeiling = 600.0
)

var stringKeys = []ebiten.Key{
	ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3,
	ebiten.KeyDigit4, ebiten.KeyDigit5, ebiten.KeyDigit6,
}

type Game struct {
	ctx     context.Context
	session *session.Session
	clock   *loop.FrameClock
	buff    []float64

	vertices []ebiten.Vertex
	indices  []uint16
}

func (g *Game) Update() error {
	if err := g.ctx.Err(); err != nil {
		return err
	}

	g.handleInput()
	g.clock.Tick()
	return nil
}

func (g *Game) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if err := g.session.Toggle(g.ctx); err != nil {
			log.Println(err)
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		g.session.ToggleMute()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowUp):
		g.session.VolumeUp()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowDown):
		g.session.VolumeDown()
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		g.session.NextPreset(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		g.session.NextPreset(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		if err := g.session.PlaySelected(); err != nil {
			log.Println(err)
		}
	}

	for i, k := range stringKeys {
		if inpututil.IsKeyJustPressed(k) {
			if err := g.session.PlayString(i); err != nil {
				log.Println(err)
			}
		}
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	st := g.session.State()
	ebitenutil.DebugPrint(screen, describe(st))

	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	meter := screen.SubImage(image.Rect(20, h/2-40, w-20, h/2-10)).(*ebiten.Image)
	down := screen.SubImage(image.Rect(0, h/2, w, h)).(*ebiten.Image)

	g.drawMeter(meter, st.Status)

	if !st.Listening {
		return
	}

	var err error
	g.buff, err = g.session.Spectrum(g.buff)

	if err != nil || len(g.buff) == 0 {
		return
	}

	// bin i is at i * rate / (2 * len)
	shown := int(spectrumCeiling * 2 * float64(len(g.buff)) / g.session.SampleRate())

	if shown > 0 && shown < len(g.buff) {
		g.drawWave(down, g.buff[:shown], 255)
	}

}

func describe(st session.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", st.Preset.Name)

	for i, s := range st.Preset.Strings {
		marker := "  "

		if i == st.SelectedString {
			marker = "> "
		}

		fmt.Fprintf(&b, "%s%d %-3s %7.2f Hz\n", marker, i+1, s.Label, s.Frequency)
	}

	b.WriteString("\n")

	switch {
	case st.Err != nil && !st.Listening:
		fmt.Fprintf(&b, "Microphone unavailable: %v\n", st.Err)
	case !st.Listening:
		b.WriteString("Press space to start tuning\n")
	case st.Status.Empty():
		b.WriteString("Listening...\n")
	default:
		fmt.Fprintf(&b, "%s  %s (%.2f Hz) %+d cents\n", st.Status.Label(), st.Status.Note, st.Status.Frequency, st.Status.Cents)
	}

	mute := ""

	if st.Muted {
		mute = " (muted)"
	}

	fmt.Fprintf(&b, "Volume %.0f%%%s\n", st.Volume*100, mute)
	b.WriteString("\n[space] listen  [1-6/enter] tone  [m] mute  [up/down] volume  [left/right] tuning")
	return b.String()
}

var (
	whiteImage = ebiten.NewImage(3, 3)

	// whiteSubImage is an internal sub image of whiteImage.
	// Use whiteSubImage at DrawTriangles instead of whiteImage in order to avoid bleeding edges.
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

func bandColor(s tuner.Status) color.RGBA {
	switch {
	case s.Empty():
		return color.RGBA{0x80, 0x80, 0x80, 0xff}
	case s.Band == tuner.InTune:
		return color.RGBA{0x2e, 0xcc, 0x71, 0xff}
	case s.Severity == tuner.Severe:
		return color.RGBA{0xe7, 0x4c, 0x3c, 0xff}
	default:
		return color.RGBA{0xf3, 0x9c, 0x12, 0xff}
	}
}

// drawMeter draws a scale from -50 to +50 cents with the needle at the
// current deviation.
func (g *Game) drawMeter(screen *ebiten.Image, s tuner.Status) {
	b := screen.Bounds()
	x0, y0 := float32(b.Min.X), float32(b.Min.Y)
	width, height := float32(b.Dx()), float32(b.Dy())

	var scale vector.Path
	scale.MoveTo(x0, y0+height/2)
	scale.LineTo(x0+width, y0+height/2)
	scale.MoveTo(x0+width/2, y0)
	scale.LineTo(x0+width/2, y0+height)
	g.stroke(screen, &scale, color.RGBA{0x60, 0x60, 0x60, 0xff}, 1)

	if s.Empty() {
		return
	}

	x := x0 + width*float32(s.MeterPosition()/100)
	var needle vector.Path
	needle.MoveTo(x, y0)
	needle.LineTo(x, y0+height)
	g.stroke(screen, &needle, bandColor(s), 4)
}

func (g *Game) drawWave(screen *ebiten.Image, data []float64, size float64) {
	var path vector.Path
	bottom := screen.Bounds().Max.Y
	height := screen.Bounds().Dy()
	width := screen.Bounds().Dx()

	path.MoveTo(0, float32(bottom))

	scale := float64(height) / size
	for i := range data {
		y := float32(float64(bottom) - data[i]*scale)
		path.LineTo(float32(i*width)/float32(len(data)), y)
	}

	g.stroke(screen, &path, color.RGBA{0xff, 0xff, 0xff, 0xff}, 1)
}

func (g *Game) stroke(screen *ebiten.Image, path *vector.Path, clr color.RGBA, width float32) {
	op := &vector.StrokeOptions{}
	op.Width = width
	vs, is := path.AppendVerticesAndIndicesForStroke(g.vertices[:0], g.indices[:0], op)
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(clr.R) / 0xff
		vs[i].ColorG = float32(clr.G) / 0xff
		vs[i].ColorB = float32(clr.B) / 0xff
		vs[i].ColorA = float32(clr.A) / 0xff
	}
	screen.DrawTriangles(vs, is, whiteSubImage, &ebiten.DrawTrianglesOptions{
		AntiAlias: true,
	})
	g.vertices, g.indices = vs, is
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := cfg.Logger()

	ctx, done := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		log.Println("done")
		done()
		<-time.After(5 * time.Second)
		log.Println("TIMEOUT")
		os.Exit(1)
	}()

	table := tuning.Default()
	clock := loop.NewFrameClock()
	lp := loop.New(cfg.Source(logger), clock, tuner.Create(cfg.TunerSettings()), table.MustPreset(cfg.Tuner.Preset), logger)
	gen := tone.NewGenerator(newAudioOutput(cfg.Tone.SampleRate), logger)
	s := session.New(table, lp, gen, session.Options{
		PresetID:     cfg.Tuner.Preset,
		Volume:       cfg.Tone.Volume,
		ToneDuration: cfg.Tone.Duration,
	}, logger)
	defer s.Close()

	// one Update per displayed frame
	ebiten.SetTPS(ebiten.SyncWithFPS)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Guitar Tuner")

	if err := ebiten.RunGame(&Game{
		ctx:     ctx,
		session: s,
		clock:   clock,
	}); err != nil && err != context.Canceled {
		log.Println(err)
	}

}
