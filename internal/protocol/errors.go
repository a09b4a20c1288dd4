package protocol

// LoginError enumerates the reasons a login can be rejected.
type LoginError int

const (
	LoginErrNone LoginError = iota
	LoginErrDatabaseConnection
	LoginErrMissingUsername
	LoginErrMissingPassword
	LoginErrNonexistingUser
	LoginErrInvalidCredentials
	LoginErrServerFull
	LoginErrAuthenticationRequired
	LoginErrUserAlreadyLoggedIn
)

func (e LoginError) String() string {
	switch e {
	case LoginErrDatabaseConnection:
		return "database connection error"
	case LoginErrMissingUsername:
		return "missing username"
	case LoginErrMissingPassword:
		return "missing password"
	case LoginErrNonexistingUser:
		return "nonexisting user"
	case LoginErrInvalidCredentials:
		return "invalid credentials"
	case LoginErrServerFull:
		return "server full"
	case LoginErrAuthenticationRequired:
		return "authentication required"
	case LoginErrUserAlreadyLoggedIn:
		return "user already logged in"
	}
	return "unknown"
}

// RegistrationError enumerates the reasons a registration can be rejected.
type RegistrationError int

const (
	RegistrationErrNone RegistrationError = iota
	RegistrationErrDatabaseConnection
	RegistrationErrMissingEmailAddress
	RegistrationErrMissingUsername
	RegistrationErrMissingPassword
	RegistrationErrAlreadyExistingEmailAddress
	RegistrationErrAlreadyExistingUsername
)

func (e RegistrationError) String() string {
	switch e {
	case RegistrationErrDatabaseConnection:
		return "database connection error"
	case RegistrationErrMissingEmailAddress:
		return "missing email address"
	case RegistrationErrMissingUsername:
		return "missing username"
	case RegistrationErrMissingPassword:
		return "missing password"
	case RegistrationErrAlreadyExistingEmailAddress:
		return "already existing email address"
	case RegistrationErrAlreadyExistingUsername:
		return "already existing username"
	}
	return "unknown"
}

// CreateRoomError enumerates the reasons a room creation can fail. Spawn
// failures on the zone are reported generically as CreateRoomErrSpawnFailed.
type CreateRoomError int

const (
	CreateRoomErrNone CreateRoomError = iota
	CreateRoomErrZoneServerUnavailable
	CreateRoomErrSpawnFailed
)

func (e CreateRoomError) String() string {
	switch e {
	case CreateRoomErrZoneServerUnavailable:
		return "zone server unavailable"
	case CreateRoomErrSpawnFailed:
		return "spawn failed"
	}
	return "unknown"
}

// JoinRoomError enumerates the reasons joining a room can fail.
type JoinRoomError int

const (
	JoinRoomErrNone JoinRoomError = iota
	JoinRoomErrGameFull
	JoinRoomErrGameExpired
	JoinRoomErrInvalidPassword
)

func (e JoinRoomError) String() string {
	switch e {
	case JoinRoomErrGameFull:
		return "game full"
	case JoinRoomErrGameExpired:
		return "game expired"
	case JoinRoomErrInvalidPassword:
		return "invalid password"
	}
	return "unknown"
}
