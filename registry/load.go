package registry

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/oomph-ac/relay/game"
	"github.com/oomph-ac/relay/oerror"
	"github.com/pelletier/go-toml"
)

// Category is one kind of static data the registry is built from.
type Category string

const (
	CategoryBlocks Category = "blocks"
	CategoryItems  Category = "items"
)

// requiredCategories must all have a reader for Load to succeed.
var requiredCategories = []Category{CategoryBlocks, CategoryItems}

type blockEntry struct {
	ID           uint32         `toml:"id"`
	Name         string         `toml:"name"`
	Bedrock      string         `toml:"bedrock_name"`
	Properties   map[string]any `toml:"bedrock_properties"`
	Hardness     float64        `toml:"hardness"`
	Tool         string         `toml:"tool"`
	Tier         string         `toml:"tier"`
	RequiresTool bool           `toml:"requires_tool"`
	Waterlogged  bool           `toml:"waterlogged"`
	Piston       string         `toml:"piston"`
	BlockEntity  bool           `toml:"block_entity"`
	Solid        bool           `toml:"solid"`
	Custom       bool           `toml:"custom"`
	GameMaster   bool           `toml:"game_master"`
}

type itemEntry struct {
	Name            string `toml:"name"`
	Tool            string `toml:"tool"`
	Tier            string `toml:"tier"`
	Custom          bool   `toml:"custom"`
	NoCreativeBreak bool   `toml:"no_creative_break"`
}

type blockFile struct {
	Blocks []blockEntry `toml:"block"`
}

type itemFile struct {
	Items []itemEntry `toml:"item"`
}

var pistonNames = map[string]PistonBehavior{
	"":          PistonNormal,
	"normal":    PistonNormal,
	"destroy":   PistonDestroy,
	"block":     PistonBlock,
	"push_only": PistonPushOnly,
}

// Load reads every category from the readers passed and builds a Registry. A missing reader for a required
// category is an integration error and is returned as such; callers are expected to abort start-up.
func Load(readers map[Category]io.Reader) (*Registry, error) {
	for _, c := range requiredCategories {
		if readers[c] == nil {
			return nil, oerror.New(game.ErrorInternalMissingRegistry, c)
		}
	}

	digest := xxhash.New()
	read := func(c Category, v any) error {
		data, err := io.ReadAll(readers[c])
		if err != nil {
			return fmt.Errorf("read %s registry: %w", c, err)
		}
		_, _ = digest.Write(data)
		if err := toml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode %s registry: %w", c, err)
		}
		return nil
	}

	var bf blockFile
	if err := read(CategoryBlocks, &bf); err != nil {
		return nil, err
	}
	var itf itemFile
	if err := read(CategoryItems, &itf); err != nil {
		return nil, err
	}

	blocks := make([]BlockState, 0, len(bf.Blocks)+1)
	hasAir := false
	for _, e := range bf.Blocks {
		hasAir = hasAir || e.ID == 0
		b, err := e.state()
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if !hasAir {
		blocks = append(blocks, BlockState{Name: "minecraft:air", RuntimeID: airRuntimeID, Piston: PistonDestroy})
	}
	items := make([]Item, 0, len(itf.Items))
	for _, e := range itf.Items {
		it, err := e.item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	r, err := New(blocks, items)
	if err != nil {
		return nil, err
	}
	r.fingerprint = digest.Sum64()
	r.waterRuntimeID = waterRuntimeID
	return r, nil
}

func (e blockEntry) state() (BlockState, error) {
	tool, ok := toolNames[e.Tool]
	if !ok {
		return BlockState{}, fmt.Errorf("block %s: unknown tool %q", e.Name, e.Tool)
	}
	tier, ok := tierNames[e.Tier]
	if !ok {
		return BlockState{}, fmt.Errorf("block %s: unknown tier %q", e.Name, e.Tier)
	}
	piston, ok := pistonNames[e.Piston]
	if !ok {
		return BlockState{}, fmt.Errorf("block %s: unknown piston behaviour %q", e.Name, e.Piston)
	}

	bedrockName := e.Bedrock
	if bedrockName == "" {
		bedrockName = e.Name
	}
	rid, ok := runtimeID(bedrockName, e.Properties)
	if !ok {
		rid = airRuntimeID
	}
	return BlockState{
		ID:           e.ID,
		Name:         e.Name,
		RuntimeID:    rid,
		Hardness:     e.Hardness,
		Tool:         tool,
		Tier:         tier,
		RequiresTool: e.RequiresTool,
		Waterlogged:  e.Waterlogged,
		Piston:       piston,
		BlockEntity:  e.BlockEntity,
		Solid:        e.Solid,
		Custom:       e.Custom,
		GameMaster:   e.GameMaster,
	}, nil
}

func (e itemEntry) item() (Item, error) {
	tool, ok := toolNames[e.Tool]
	if !ok {
		return Item{}, fmt.Errorf("item %s: unknown tool %q", e.Name, e.Tool)
	}
	tier, ok := tierNames[e.Tier]
	if !ok {
		return Item{}, fmt.Errorf("item %s: unknown tier %q", e.Name, e.Tier)
	}
	return Item{
		Name:            e.Name,
		Tool:            tool,
		Tier:            tier,
		Custom:          e.Custom,
		NoCreativeBreak: e.NoCreativeBreak,
	}, nil
}
