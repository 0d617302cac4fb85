package game

const (
	SimHz               = 20.0 // default server tick rate
	UpdateRateHz        = 10.0 // per-client WS view pushes
	RoomMaxPlayers      = 8
	HistoryKeep         = 64    // events kept per player
	ActorCacheSize      = 32    // most recently used actors kept resolved
	GibberishBuffers    = 5     // rotating voice-blip buffers per player
	GibberishMinSpacing = 0.005 // seconds between two blips
	EmptyRoomTTL        = 60.0  // seconds an empty room survives
)
