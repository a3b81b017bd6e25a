package nakama

const (
	// MatchNameCardTable is the authoritative match handler name registered
	// with Nakama.
	MatchNameCardTable = "cardtable_match"

	// RpcQuickMatch is the Nakama RPC id clients call to find or create a
	// joinable table.
	RpcQuickMatch = "quick_match"
)

// Op codes for client messages and server events. Payloads are the JSON
// protocol envelopes on both directions.
const (
	// Client -> Server
	OpStartGame   int64 = 1
	OpClientBatch int64 = 2

	// Server -> Client
	OpServerRule    int64 = 101
	OpServerBatch   int64 = 102
	OpServerConfig  int64 = 103
	OpServerNewGame int64 = 104
)
