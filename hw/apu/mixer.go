package apu

import (
	"github.com/arl/blip"
)

const ntscClockRate = 1789773

// MaxSampleRate bounds the output device rate the mixer can feed.
const MaxSampleRate = 96000

const maxSamplesPerFrame = MaxSampleRate / 60 * 2

// Mixer combines the channel outputs with the 2A03 non-linear mixing
// formula, resamples from the CPU clock to the output rate through a
// band-limited (blip) buffer, then shapes the result with the NTSC console
// output chain: first-order high-pass at 90 Hz, high-pass at 440 Hz,
// low-pass at 14 kHz.
type Mixer struct {
	buf        *blip.Buffer
	sampleRate uint32

	prevOut int16
	outbuf  [maxSamplesPerFrame]int16
	samples []int16

	// expansion audio contributed by the cartridge, [-1, 1]
	expansion func() float64

	hp90  hipass
	hp440 hipass
	lp14k lopass
}

func NewMixer(sampleRate uint32) *Mixer {
	m := &Mixer{
		buf:        blip.NewBuffer(maxSamplesPerFrame),
		sampleRate: sampleRate,
	}
	m.buf.SetRates(float64(ntscClockRate), float64(sampleRate))
	m.updateFilterRates()
	return m
}

func (m *Mixer) Reset() {
	m.prevOut = 0
	m.buf.Clear()
	m.samples = m.samples[:0]
	m.hp90.reset()
	m.hp440.reset()
	m.lp14k.reset()
}

func (m *Mixer) SampleRate() uint32 { return m.sampleRate }

func (m *Mixer) updateFilterRates() {
	dt := 1.0 / float64(m.sampleRate)
	m.hp90.setCutoff(90, dt)
	m.hp440.setCutoff(440, dt)
	m.lp14k.setCutoff(14000, dt)
}

// SetExpansionAudio registers the cartridge audio hook. The returned level
// is summed into the mix before filtering.
func (m *Mixer) SetExpansionAudio(fn func() float64) {
	m.expansion = fn
}

// outputVolume implements the 2A03 mixer transfer function.
func outputVolume(sq1, sq2, tri, noise, dmc uint8) int16 {
	var square, tnd float64

	if s := float64(sq1) + float64(sq2); s > 0 {
		square = 95.88 / (8128.0/s + 100.0)
	}
	if t := float64(tri)/8227.0 + float64(noise)/12241.0 + float64(dmc)/22638.0; t > 0 {
		tnd = 159.79 / (1.0/t + 100.0)
	}

	return int16((square + tnd) * 0x7FFF / 2)
}

// AddSample records the mixed output level at the given CPU-cycle timestamp
// within the current frame.
func (m *Mixer) AddSample(time uint32, sq1, sq2, tri, noise, dmc uint8) {
	out := outputVolume(sq1, sq2, tri, noise, dmc)
	if m.expansion != nil {
		out += int16(m.expansion() * 0x2000)
	}
	if delta := int32(out) - int32(m.prevOut); delta != 0 {
		m.buf.AddDelta(uint64(time), delta)
		m.prevOut = out
	}
}

// EndFrame resamples the frame worth of deltas and appends the filtered
// samples to the output queue.
func (m *Mixer) EndFrame(time uint32) {
	m.buf.EndFrame(int(time))

	n := m.buf.ReadSamples(m.outbuf[:], maxSamplesPerFrame, blip.Mono)
	for _, s := range m.outbuf[:n] {
		f := float32(s) / 0x8000
		f = m.hp90.apply(f)
		f = m.hp440.apply(f)
		f = m.lp14k.apply(f)
		m.samples = append(m.samples, int16(f*0x7FFF))
	}
}

// TakeSamples returns the samples produced since the last call and resets
// the queue.
func (m *Mixer) TakeSamples() []int16 {
	out := make([]int16, len(m.samples))
	copy(out, m.samples)
	m.samples = m.samples[:0]
	return out
}

/* first-order output filters */

type hipass struct {
	a       float32
	prevIn  float32
	prevOut float32
}

func (f *hipass) setCutoff(hz, dt float64) {
	rc := 1.0 / (2 * 3.141592653589793 * hz)
	f.a = float32(rc / (rc + dt))
}

func (f *hipass) reset() {
	f.prevIn = 0
	f.prevOut = 0
}

func (f *hipass) apply(in float32) float32 {
	out := f.a * (f.prevOut + in - f.prevIn)
	f.prevIn = in
	f.prevOut = out
	return out
}

type lopass struct {
	a    float32
	prev float32
}

func (f *lopass) setCutoff(hz, dt float64) {
	rc := 1.0 / (2 * 3.141592653589793 * hz)
	f.a = float32(dt / (rc + dt))
}

func (f *lopass) reset() {
	f.prev = 0
}

func (f *lopass) apply(in float32) float32 {
	out := f.prev + f.a*(in-f.prev)
	f.prev = out
	return out
}
