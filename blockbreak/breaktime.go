package blockbreak

import (
	"math"

	"github.com/oomph-ac/relay/registry"
)

// Conditions are everything besides the block that decides how fast it breaks.
type Conditions struct {
	Held      Held
	Effects   Effects
	OnGround  bool
	Submerged bool
}

// ProgressPerTick returns the fraction of the block that breaks every tick. A result of 1 or more breaks the
// block instantly, and 0 means it never breaks.
func ProgressPerTick(state registry.BlockState, c Conditions) float64 {
	switch {
	case state.Hardness < 0:
		return 0
	case state.Hardness == 0:
		return 1
	}
	divisor := 100.0
	if c.Held.Item.CanHarvest(state) {
		divisor = 30.0
	}
	return miningSpeed(state, c) / state.Hardness / divisor
}

// BreakTicks returns the amount of ticks the block takes to break at the progress passed. Unbreakable
// blocks take math.MaxInt ticks.
func BreakTicks(progress float64) int {
	if progress <= 0 {
		return math.MaxInt
	}
	if progress >= 1 {
		return 1
	}
	return int(math.Ceil(1/progress - 1e-9))
}

// miningSpeed computes the speed multiplier applied to the base break time.
func miningSpeed(state registry.BlockState, c Conditions) float64 {
	speed := 1.0
	it := c.Held.Item
	if it.Effective(state) {
		speed = toolSpeed(it, state)
		if c.Held.Efficiency > 0 {
			speed += float64(c.Held.Efficiency*c.Held.Efficiency + 1)
		}
	}

	if c.Effects.Haste > 0 {
		speed *= 1 + 0.2*float64(c.Effects.Haste)
	}
	switch c.Effects.MiningFatigue {
	case 0:
	case 1:
		speed *= 0.3
	case 2:
		speed *= 0.09
	case 3:
		speed *= 0.0027
	default:
		speed *= 0.00081
	}

	if c.Submerged && !c.Effects.AquaAffinity {
		speed /= 5
	}
	if !c.OnGround {
		speed /= 5
	}
	return speed
}

func toolSpeed(it registry.Item, state registry.BlockState) float64 {
	switch it.Tool {
	case registry.ToolShears:
		if state.Wool() {
			return 5
		}
		return 15
	case registry.ToolSword:
		if state.Name == "minecraft:cobweb" {
			return 15
		}
		return 1.5
	}
	return it.Tier.Speed()
}
