package game

const (
	// TicksPerSecond is the rate at which the session loop ticks.
	TicksPerSecond = 20

	// MaxPistonDisplacement bounds how far piston contact may move the player on any axis within one tick.
	MaxPistonDisplacement = 0.51
	// PistonCollisionTolerance is the amount a player's box is shrunk on the axes a piston is not moving along.
	PistonCollisionTolerance = 1e-5
	// PistonPushLimit is the maximum amount of blocks a single piston moves.
	PistonPushLimit = 12
	// PistonProgressStep is the amount of progress a piston makes every tick.
	PistonProgressStep = 0.5
	// PistonRemovalDelay is the amount of ticks a finished piston movement is kept around for collisions.
	PistonRemovalDelay = 5
	// PistonIntersectionPadding is added to the intersection depth when pushing a player out of a moving block.
	PistonIntersectionPadding = 0.01

	// BreakSlackTicks is the amount of ticks a tick-accurate break may lag behind the computed break time.
	BreakSlackTicks = 2
	// CreativeDestroyDelay is the amount of ticks that must pass between two creative mode breaks.
	CreativeDestroyDelay = 5
	// BreakProgressEpsilon absorbs floating point drift when break progress is accumulated.
	BreakProgressEpsilon = 1e-9

	// DefaultBorderDiameter is the world border diameter used until the server sends one.
	DefaultBorderDiameter = 5.9999968e7

	// GameMasterPermissionLevel is the operator level required to break game master blocks.
	GameMasterPermissionLevel = 2
)
