package registry

import "strings"

// PistonBehavior is how a block reacts to being pushed or pulled by a piston.
type PistonBehavior uint8

const (
	// PistonNormal blocks are moved along with the piston.
	PistonNormal PistonBehavior = iota
	// PistonDestroy blocks are broken when a piston pushes into them.
	PistonDestroy
	// PistonBlock blocks cannot be moved and stop the piston from extending.
	PistonBlock
	// PistonPushOnly blocks can be pushed but a sticky piston does not pull them.
	PistonPushOnly
)

// ToolType is the family of tools that mine a block efficiently.
type ToolType uint8

const (
	ToolNone ToolType = iota
	ToolPickaxe
	ToolAxe
	ToolShovel
	ToolHoe
	ToolSword
	ToolShears
)

var toolNames = map[string]ToolType{
	"":        ToolNone,
	"none":    ToolNone,
	"pickaxe": ToolPickaxe,
	"axe":     ToolAxe,
	"shovel":  ToolShovel,
	"hoe":     ToolHoe,
	"sword":   ToolSword,
	"shears":  ToolShears,
}

// ToolTier is the material of a tool.
type ToolTier uint8

const (
	TierNone ToolTier = iota
	TierWood
	TierGold
	TierStone
	TierIron
	TierDiamond
	TierNetherite
)

var tierNames = map[string]ToolTier{
	"":          TierNone,
	"none":      TierNone,
	"wood":      TierWood,
	"wooden":    TierWood,
	"gold":      TierGold,
	"golden":    TierGold,
	"stone":     TierStone,
	"iron":      TierIron,
	"diamond":   TierDiamond,
	"netherite": TierNetherite,
}

// HarvestLevel returns the mining level of the tier. Gold mines at the same level as wood.
func (t ToolTier) HarvestLevel() int {
	switch t {
	case TierWood, TierGold:
		return 0
	case TierStone:
		return 1
	case TierIron:
		return 2
	case TierDiamond:
		return 3
	case TierNetherite:
		return 4
	}
	return -1
}

// Speed returns the mining speed multiplier of a tool made of the tier.
func (t ToolTier) Speed() float64 {
	switch t {
	case TierWood:
		return 2
	case TierStone:
		return 4
	case TierIron:
		return 6
	case TierDiamond:
		return 8
	case TierNetherite:
		return 9
	case TierGold:
		return 12
	}
	return 1
}

// BlockState is one state of a block as the upstream server numbers it. Values are never mutated once the
// Registry holding them is built.
type BlockState struct {
	// ID is the upstream state ID. ID 0 is always air.
	ID uint32
	// Name is the namespaced identifier of the block, e.g. "minecraft:stone".
	Name string
	// RuntimeID is the client runtime ID the state translates to.
	RuntimeID uint32

	// Hardness is the base break time factor. A negative hardness means the block cannot be broken.
	Hardness float64
	// Tool is the tool family that breaks the block efficiently.
	Tool ToolType
	// Tier is the minimum tier needed for the block to drop anything when RequiresTool is set.
	Tier ToolTier
	// RequiresTool is set if the block cannot be harvested by hand.
	RequiresTool bool

	Waterlogged bool
	Piston      PistonBehavior
	BlockEntity bool
	// Solid is set if the block has a full collision box.
	Solid bool
	// Custom is set for blocks added by the server that the client only knows through a resource pack.
	Custom bool
	// GameMaster is set for blocks that only operators may break, such as command blocks.
	GameMaster bool
}

// Air reports whether the state is the default state.
func (s BlockState) Air() bool {
	return s.ID == 0
}

// Slime reports whether the state is a slime block.
func (s BlockState) Slime() bool {
	return s.Name == "minecraft:slime_block"
}

// Honey reports whether the state is a honey block.
func (s BlockState) Honey() bool {
	return s.Name == "minecraft:honey_block"
}

// Sticky reports whether blocks next to this one are dragged along when it is moved by a piston.
func (s BlockState) Sticky() bool {
	return s.Slime() || s.Honey()
}

// Fire reports whether the state is any kind of fire.
func (s BlockState) Fire() bool {
	return s.Name == "minecraft:fire" || s.Name == "minecraft:soul_fire"
}

// PistonBase reports whether the state is a piston or sticky piston base.
func (s BlockState) PistonBase() bool {
	return s.Name == "minecraft:piston" || s.Name == "minecraft:sticky_piston"
}

// Liquid reports whether the state is water or lava.
func (s BlockState) Liquid() bool {
	return s.Name == "minecraft:water" || s.Name == "minecraft:lava"
}

// Wool reports whether the state is any colour of wool.
func (s BlockState) Wool() bool {
	return strings.HasSuffix(s.Name, "_wool")
}

// Item is a held item as far as mining is concerned.
type Item struct {
	Name string
	Tool ToolType
	Tier ToolTier
	// Custom is set for server-defined items.
	Custom bool
	// NoCreativeBreak is set for items that cannot break blocks in creative mode, such as swords.
	NoCreativeBreak bool
}

// Hand is the item used when nothing is held.
var Hand = Item{Name: "minecraft:air"}

// Effective reports whether the item is the right tool for the block.
func (i Item) Effective(b BlockState) bool {
	return i.Tool != ToolNone && i.Tool == b.Tool
}

// CanHarvest reports whether breaking the block with the item yields drops.
func (i Item) CanHarvest(b BlockState) bool {
	if !b.RequiresTool {
		return true
	}
	return i.Tool == b.Tool && i.Tier.HarvestLevel() >= b.Tier.HarvestLevel()
}
