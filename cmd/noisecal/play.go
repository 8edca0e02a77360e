package main

import (
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
)

// sampleReader streams a mono float64 buffer to the device as
// little-endian float32 frames.
type sampleReader struct {
	data []float64
	pos  int
}

func (r *sampleReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := 0
	for n+4 <= len(p) && r.pos < len(r.data) {
		bits := math.Float32bits(float32(r.data[r.pos]))
		binary.LittleEndian.PutUint32(p[n:], bits)
		n += 4
		r.pos++
	}
	return n, nil
}

// playBand blocks until the shaped band has played out on the default
// audio device.
func playBand(data []float64, sampleRate float64) error {
	op := &oto.NewContextOptions{
		SampleRate:   int(sampleRate),
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return err
	}
	<-ready

	player := ctx.NewPlayer(&sampleReader{data: data})
	player.Play()
	for player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(playDone)
	return player.Close()
}
