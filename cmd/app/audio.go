package main

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/metalblueberry/bard/pkg/tone"
)

// audioOutput plays reference tones through the ebiten audio context.
type audioOutput struct {
	context *audio.Context
}

func newAudioOutput(sampleRate int) audioOutput {
	return audioOutput{context: audio.NewContext(sampleRate)}
}

func (o audioOutput) SampleRate() int {
	return o.context.SampleRate()
}

func (o audioOutput) Play(pcm io.Reader) (tone.Voice, error) {
	p, err := o.context.NewPlayer(pcm)
	if err != nil {
		return nil, fmt.Errorf("cannot create player: %w", err)
	}

	p.Play()
	return audioVoice{player: p}, nil
}

type audioVoice struct {
	player *audio.Player
}

func (v audioVoice) Stop() error {
	v.player.Pause()
	return v.player.Close()
}
