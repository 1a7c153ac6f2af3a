package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	ChunkSize  [2]int `json:"chunk_size"`
	Seed       int64  `json:"seed"`
	CacheLimit int    `json:"cache_limit"`
}

// GET_ENTRY (client -> server): read one world cell.
type GetEntryMsg struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
	X    uint16 `json:"x"`
	Y    uint16 `json:"y"`
}

// SET_ENTRY (client -> server): write one world cell.
type SetEntryMsg struct {
	Type  string `json:"type"`
	ID    uint64 `json:"id"`
	X     uint16 `json:"x"`
	Y     uint16 `json:"y"`
	Entry uint16 `json:"entry"`
}

// GET_CHUNK (client -> server): read one whole chunk.
type GetChunkMsg struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
	CX   uint16 `json:"cx"`
	CY   uint16 `json:"cy"`
}

// FLUSH (client -> server): persist all dirty chunks now.
type FlushMsg struct {
	Type string `json:"type"`
	ID   uint64 `json:"id"`
}

// RESULT (server -> client): success reply; at most one payload field is
// set, matching the request type (SET_ENTRY carries none).
type ResultMsg struct {
	Type    string        `json:"type"`
	ID      uint64        `json:"id"`
	Entry   *uint16       `json:"entry,omitempty"`
	Chunk   *ChunkPayload `json:"chunk,omitempty"`
	Flushed *int          `json:"flushed,omitempty"`
}

// ChunkPayload carries one chunk's cells as base64 RLE (see EncodeRLE).
type ChunkPayload struct {
	CX      uint16 `json:"cx"`
	CY      uint16 `json:"cy"`
	W       int    `json:"w"`
	H       int    `json:"h"`
	Entries string `json:"entries"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	ID      uint64 `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
