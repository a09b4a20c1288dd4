// Package protocol defines the wire protocol shared by the master, zone and
// game servers: numeric opcodes, message payloads and the error enums carried
// inside responses. All messages travel inside an Envelope on a single
// websocket channel; the opcode selects the payload shape.
package protocol

import "encoding/json"

// Opcode identifies the payload shape of a message. Values are stable within
// a deployment; every distinct payload gets its own opcode.
type Opcode uint16

const (
	// Authentication.
	OpLogin          Opcode = 1
	OpLoginResult    Opcode = 2
	OpRegister       Opcode = 3
	OpRegisterResult Opcode = 4

	// Directory queries and pings.
	OpPing             Opcode = 5
	OpPong             Opcode = 6
	OpFindRooms        Opcode = 10
	OpFindRoomsResult  Opcode = 11
	OpCreateRoom       Opcode = 12
	OpCreateRoomResult Opcode = 13
	OpJoinRoom         Opcode = 14
	OpJoinRoomResult   Opcode = 15
	OpPlayNow          Opcode = 16

	// Server registration bookkeeping (zone/game -> master).
	OpRegisterZone      Opcode = 20
	OpRegisterGame      Opcode = 21
	OpUnregisterGame    Opcode = 22
	OpUnregisterGameAck Opcode = 23
	OpGameState         Opcode = 24
	OpGameReady         Opcode = 25

	// Provisioning (master -> zone, zone -> spawned game).
	OpSpawnRoom       Opcode = 30
	OpSpawnRoomResult Opcode = 31
	OpDestroyRoom     Opcode = 32
	OpDestroyRoomAck  Opcode = 33
	OpRoomConfig      Opcode = 34
	OpRoomConfigAck   Opcode = 35

	// Chat.
	OpChatPublic  Opcode = 40
	OpChatPrivate Opcode = 41
	OpChatMessage Opcode = 42

	// Player identity announce.
	OpAnnounce Opcode = 43
)

// Envelope frames every message. Seq is non-zero for request/response pairs
// (the response echoes the request's Seq); pushes carry Seq 0.
type Envelope struct {
	Op   Opcode          `json:"op"`
	Seq  uint64          `json:"seq,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}
