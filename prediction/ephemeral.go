package prediction

import "github.com/df-mc/dragonfly/server/block/cube"

// Sound is a looping sound played by a block, such as a jukebox record.
type Sound struct {
	Name string
	// Until is the tick the sound stops at. Zero means the sound plays until it is stopped.
	Until uint64
}

// TitleTimes are the fade timings, in ticks, used for titles.
type TitleTimes struct {
	FadeIn, Stay, FadeOut int32
}

// DefaultTitleTimes are the timings titles use unless the server overrides them.
var DefaultTitleTimes = TitleTimes{FadeIn: 10, Stay: 70, FadeOut: 20}

// ephemeral is per-session state that expires with time. Expired entries are pruned once per tick rather
// than checked on every read.
type ephemeral struct {
	tick uint64

	sounds    map[cube.Pos]Sound
	cooldowns map[string]uint64

	titles      TitleTimes
	titlesUntil uint64
}

func (e *ephemeral) reset() {
	e.sounds = make(map[cube.Pos]Sound)
	e.cooldowns = make(map[string]uint64)
	e.titles, e.titlesUntil = DefaultTitleTimes, 0
}

// Tick advances the current tick and prunes sounds, cooldowns and title overrides that expired.
func (e *ephemeral) Tick(tick uint64) {
	e.tick = tick
	for pos, s := range e.sounds {
		if s.Until != 0 && s.Until <= tick {
			delete(e.sounds, pos)
		}
	}
	for item, until := range e.cooldowns {
		if until <= tick {
			delete(e.cooldowns, item)
		}
	}
	if e.titlesUntil != 0 && e.titlesUntil <= tick {
		e.titles, e.titlesUntil = DefaultTitleTimes, 0
	}
}

// StartSound registers a looping sound at pos. A duration of zero keeps the sound until StopSound.
func (e *ephemeral) StartSound(pos cube.Pos, name string, duration uint64) {
	s := Sound{Name: name}
	if duration > 0 {
		s.Until = e.tick + duration
	}
	e.sounds[pos] = s
}

// StopSound removes the sound at pos and reports whether there was one.
func (e *ephemeral) StopSound(pos cube.Pos) (Sound, bool) {
	s, ok := e.sounds[pos]
	delete(e.sounds, pos)
	return s, ok
}

// Sound returns the sound playing at pos.
func (e *ephemeral) Sound(pos cube.Pos) (Sound, bool) {
	s, ok := e.sounds[pos]
	return s, ok
}

// Sounds returns the amount of tracked sounds, including expired sounds that were not pruned yet.
func (e *ephemeral) Sounds() int {
	return len(e.sounds)
}

// SetCooldown puts the item on cooldown for the amount of ticks passed. A duration of zero removes the
// cooldown.
func (e *ephemeral) SetCooldown(item string, ticks uint64) {
	if ticks == 0 {
		delete(e.cooldowns, item)
		return
	}
	e.cooldowns[item] = e.tick + ticks
}

// CoolingDown reports whether the item is on cooldown and how many ticks remain.
func (e *ephemeral) CoolingDown(item string) (uint64, bool) {
	until, ok := e.cooldowns[item]
	if !ok || until <= e.tick {
		return 0, false
	}
	return until - e.tick, true
}

// SetTitleTimes overrides the title timings. The override ends once a title shown with it would have faded
// out.
func (e *ephemeral) SetTitleTimes(t TitleTimes) {
	e.titles = t
	e.titlesUntil = e.tick + uint64(max(t.FadeIn+t.Stay+t.FadeOut, 1))
}

// TitleTimes returns the timings currently in use.
func (e *ephemeral) TitleTimes() TitleTimes {
	return e.titles
}

// ResetTitleTimes drops any title timing override.
func (e *ephemeral) ResetTitleTimes() {
	e.titles, e.titlesUntil = DefaultTitleTimes, 0
}
