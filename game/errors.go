package game

const (
	ErrorInternalOrphanedMovingBlock  = "moving block index holds %d entries with no active piston"
	ErrorInternalMovingBlockCollision = "moving block at %v is already owned by piston at %v"
	ErrorInternalMissingRegistry      = "no reader registered for required %s registry"
	ErrorInternalDuplicateBlockState  = "duplicate block state id %d in registry"
	ErrorInternalUnknownAction        = "no handler registered for block action %v"

	WarningPredictWithoutBreak = "client predicted destruction of %v without breaking it (breaking=%v)"
	WarningUnknownBlockFace    = "client sent block action with invalid face %d"
)
