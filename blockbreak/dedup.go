package blockbreak

import "github.com/df-mc/dragonfly/server/block/cube"

type dedupKey struct {
	kind Kind
	pos  cube.Pos
}

// Dedupe drops every positioned action that is repeated later in the batch with the same kind and
// position, keeping the last one in its place. The client sometimes sends the same intent several times in
// one tick, and only the last of those counts. Actions without a position are always kept.
func Dedupe(actions []Action) []Action {
	if len(actions) < 2 {
		return actions
	}
	seen := make(map[dedupKey]struct{}, len(actions))
	keep := make([]bool, len(actions))
	kept := 0
	for i := len(actions) - 1; i >= 0; i-- {
		p, ok := actions[i].(Positioned)
		if !ok {
			keep[i] = true
			kept++
			continue
		}
		key := dedupKey{kind: p.Kind(), pos: p.Position()}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep[i] = true
		kept++
	}

	out := make([]Action, 0, kept)
	for i, a := range actions {
		if keep[i] {
			out = append(out, a)
		}
	}
	return out
}
