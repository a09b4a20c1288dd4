package protocol

// Property is an arbitrary (name, value) tag attached to a room. Rooms treat
// their properties as an unordered set but transmit them as an ordered slice.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RoomInfo describes a registered room as returned by FindRooms.
type RoomInfo struct {
	ID         int        `json:"id"`
	IP         string     `json:"ip"`
	Port       int        `json:"port"`
	Name       string     `json:"name"`
	NumPlayers int        `json:"numPlayers"`
	MaxPlayers int        `json:"maxPlayers"`
	IsPrivate  bool       `json:"isPrivate"`
	Properties []Property `json:"properties,omitempty"`
}

type LoginRequest struct {
	IsAnonymous bool   `json:"isAnonymous"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
}

type LoginResult struct {
	Success  bool       `json:"success"`
	Error    LoginError `json:"error,omitempty"`
	Username string     `json:"username,omitempty"`
	Token    string     `json:"token,omitempty"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResult struct {
	Success bool              `json:"success"`
	Error   RegistrationError `json:"error,omitempty"`
}

type PingRequest struct{}

type PongResult struct {
	NumConnectedPlayers int `json:"numConnectedPlayers"`
}

type FindRoomsRequest struct {
	IncludeProperties []Property `json:"includeProperties,omitempty"`
	ExcludeProperties []Property `json:"excludeProperties,omitempty"`
}

type FindRoomsResult struct {
	Rooms []RoomInfo `json:"rooms"`
}

type CreateRoomRequest struct {
	Name       string     `json:"name"`
	MaxPlayers int        `json:"maxPlayers"`
	Password   string     `json:"password,omitempty"`
	Properties []Property `json:"properties,omitempty"`
}

type CreateRoomResult struct {
	Success bool            `json:"success"`
	Error   CreateRoomError `json:"error,omitempty"`
	IP      string          `json:"ip,omitempty"`
	Port    int             `json:"port,omitempty"`
}

type JoinRoomRequest struct {
	ID       int    `json:"id"`
	Password string `json:"password,omitempty"`
}

type JoinRoomResult struct {
	Success bool          `json:"success"`
	Error   JoinRoomError `json:"error,omitempty"`
	IP      string        `json:"ip,omitempty"`
	Port    int           `json:"port,omitempty"`
}

type PlayNowRequest struct{}

type RegisterZoneRequest struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
}

type RegisterGameRequest struct {
	IP           string     `json:"ip"`
	Port         int        `json:"port"`
	Name         string     `json:"name"`
	MaxPlayers   int        `json:"maxPlayers"`
	Password     string     `json:"password,omitempty"`
	HideWhenFull bool       `json:"hideWhenFull"`
	Properties   []Property `json:"properties,omitempty"`
}

type UnregisterGameRequest struct{}

type UnregisterGameAck struct{}

// GameStateUpdate is pushed periodically by a game server to refresh its
// player count in the master's directory.
type GameStateUpdate struct {
	NumPlayers int `json:"numPlayers"`
}

// GameReadyNotice is sent by a game server once it has registered with the
// master. PlayerConnID names the player whose create request spawned the
// room; it is empty for standalone servers.
type GameReadyNotice struct {
	PlayerConnID string `json:"playerConnId,omitempty"`
	IP           string `json:"ip"`
	Port         int    `json:"port"`
}

// SpawnRoomRequest is forwarded by the master to a zone server.
type SpawnRoomRequest struct {
	PlayerConnID string     `json:"playerConnId,omitempty"`
	Name         string     `json:"name"`
	MaxPlayers   int        `json:"maxPlayers"`
	Password     string     `json:"password,omitempty"`
	Properties   []Property `json:"properties,omitempty"`
}

// SpawnRoomResult only reports whether spawning was attempted successfully;
// the terminal answer to the player arrives later via GameReadyNotice.
type SpawnRoomResult struct {
	Success      bool   `json:"success"`
	PlayerConnID string `json:"playerConnId,omitempty"`
	IP           string `json:"ip,omitempty"`
	Port         int    `json:"port,omitempty"`
}

type DestroyRoomRequest struct {
	Port int `json:"port"`
}

type DestroyRoomAck struct{}

// RoomConfig is pushed by the zone to a freshly spawned game server process.
type RoomConfig struct {
	PlayerConnID string     `json:"playerConnId,omitempty"`
	ZoneIP       string     `json:"zoneIp"`
	ZonePort     int        `json:"zonePort"`
	Name         string     `json:"name"`
	MaxPlayers   int        `json:"maxPlayers"`
	Password     string     `json:"password,omitempty"`
	Properties   []Property `json:"properties,omitempty"`
}

type RoomConfigAck struct{}

type ChatPublicRequest struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type ChatPrivateRequest struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Text      string `json:"text"`
}

// ChatMessage is the fan-out push for both public and private chat; the
// server fills in Sender from its connection registry.
type ChatMessage struct {
	Channel   string `json:"channel"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient,omitempty"`
	Text      string `json:"text"`
	Private   bool   `json:"private,omitempty"`
}

// AnnounceRequest carries a player's display name to the server it just
// connected to.
type AnnounceRequest struct {
	Username string `json:"username"`
}
