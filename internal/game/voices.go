package game

import (
	"math/rand"
	"sync"

	"DialogueRuntime/internal/dialogue"
)

// Blip is one gibberish voice sound the client should play.
type Blip struct {
	Buffer int     `json:"buffer"`
	Audio  string  `json:"audio"`
	Pitch  float64 `json:"pitch"`
	At     float64 `json:"at"`
}

type blipChannel struct {
	next     int
	lastPlay float64
	played   bool
}

// VoicePool hands out gibberish blips from a small rotating set of buffers per
// player, never faster than GibberishMinSpacing.
type VoicePool struct {
	mu       sync.Mutex
	buffers  int
	spacing  float64
	rng      *rand.Rand
	channels map[string]*blipChannel
}

func NewVoicePool(buffers int, spacing float64, rng *rand.Rand) *VoicePool {
	if buffers <= 0 {
		buffers = GibberishBuffers
	}
	return &VoicePool{
		buffers:  buffers,
		spacing:  spacing,
		rng:      rng,
		channels: map[string]*blipChannel{},
	}
}

// Play returns a blip for player at now, or false when the last one was too
// recent or the actor has no gibberish configured.
func (v *VoicePool) Play(player string, now float64, g *dialogue.Gibberish) (Blip, bool) {
	if g == nil || g.Audio == "" {
		return Blip{}, false
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := v.channels[player]
	if ch == nil {
		ch = &blipChannel{}
		v.channels[player] = ch
	}
	if ch.played && now-ch.lastPlay < v.spacing {
		return Blip{}, false
	}

	pitch := g.Pitch
	if g.Variation > 0 {
		pitch += (v.rng.Float64()*2 - 1) * g.Variation
	}
	b := Blip{Buffer: ch.next, Audio: g.Audio, Pitch: pitch, At: now}
	ch.next = (ch.next + 1) % v.buffers
	ch.lastPlay = now
	ch.played = true
	return b, true
}

// Forget drops a player's channel.
func (v *VoicePool) Forget(player string) {
	v.mu.Lock()
	delete(v.channels, player)
	v.mu.Unlock()
}
