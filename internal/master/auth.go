package master

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/lobbykit/lobbykit/internal/protocol"
	"github.com/lobbykit/lobbykit/internal/registry"
	"github.com/lobbykit/lobbykit/internal/store"
	"github.com/lobbykit/lobbykit/internal/transport"
	"github.com/sirupsen/logrus"
)

// AuthPolicy controls who may log in. MaxPlayers of zero means unlimited;
// GuestName is the display name prefix assigned to anonymous players.
type AuthPolicy struct {
	MaxPlayers  int
	AllowGuests bool
	GuestName   string
}

// TokenMinter issues session tokens for authenticated usernames.
// auth.Sessions satisfies it.
type TokenMinter interface {
	Mint(username string) (string, error)
}

// AuthAddon handles login and registration on the master server. A player
// enters the connection registry only after the store confirms the
// credentials (or immediately, for accepted guests).
type AuthAddon struct {
	accounts    store.AccountStore
	sessions    TokenMinter
	players     *registry.Registry
	policy      AuthPolicy
	logger      *logrus.Logger
	nextGuestID atomic.Int64
}

func NewAuthAddon(accounts store.AccountStore, sessions TokenMinter, players *registry.Registry, policy AuthPolicy, logger *logrus.Logger) *AuthAddon {
	return &AuthAddon{
		accounts: accounts,
		sessions: sessions,
		players:  players,
		policy:   policy,
		logger:   logger,
	}
}

func (a *AuthAddon) Register(mux *transport.Mux) {
	mux.Handle(protocol.OpLogin, a.handleLogin)
	mux.Handle(protocol.OpRegister, a.handleRegister)
}

func (a *AuthAddon) OnPeerDisconnected(p *transport.Peer) {}

func (a *AuthAddon) handleLogin(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.LoginRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed login request: %v", err)
		return
	}
	p.Reply(env.Seq, protocol.OpLoginResult, a.login(ctx, p.ID, p, req))
}

func (a *AuthAddon) handleRegister(ctx context.Context, p *transport.Peer, env protocol.Envelope) {
	var req protocol.RegisterRequest
	if err := json.Unmarshal(env.Data, &req); err != nil {
		a.logger.WithField("peer", p.ID).Warnf("malformed register request: %v", err)
		return
	}
	p.Reply(env.Seq, protocol.OpRegisterResult, a.register(ctx, req))
}

// login checks the preconditions in a fixed order: duplicate name, server
// capacity, guest policy, then the account store. Only a login that passes
// all of them adds the player to the registry.
func (a *AuthAddon) login(ctx context.Context, peerID uuid.UUID, conn registry.Conn, req protocol.LoginRequest) protocol.LoginResult {
	if !req.IsAnonymous {
		if _, taken := a.players.FindByName(req.Username); taken {
			return protocol.LoginResult{Error: protocol.LoginErrUserAlreadyLoggedIn}
		}
	}
	if a.policy.MaxPlayers > 0 && a.players.Count() >= a.policy.MaxPlayers {
		return protocol.LoginResult{Error: protocol.LoginErrServerFull}
	}

	if req.IsAnonymous {
		if !a.policy.AllowGuests {
			return protocol.LoginResult{Error: protocol.LoginErrAuthenticationRequired}
		}
		prefix := a.policy.GuestName
		if prefix == "" {
			prefix = "Guest"
		}
		name := prefix + strconv.FormatInt(a.nextGuestID.Add(1), 10)
		a.players.Add(peerID, name, conn)
		a.logger.WithFields(logrus.Fields{"peer": peerID, "username": name}).Info("guest logged in")
		return protocol.LoginResult{Success: true, Username: name}
	}

	username, err := a.accounts.Login(ctx, req.Username, req.Password)
	if err != nil {
		code := store.AsLoginError(err)
		a.logger.WithFields(logrus.Fields{"peer": peerID, "username": req.Username}).
			Infof("login rejected: %v", code)
		return protocol.LoginResult{Error: code}
	}

	token, err := a.sessions.Mint(username)
	if err != nil {
		a.logger.Errorf("failed to mint session token: %v", err)
		return protocol.LoginResult{Error: protocol.LoginErrDatabaseConnection}
	}

	a.players.Add(peerID, username, conn)
	a.logger.WithFields(logrus.Fields{"peer": peerID, "username": username}).Info("player logged in")
	return protocol.LoginResult{Success: true, Username: username, Token: token}
}

func (a *AuthAddon) register(ctx context.Context, req protocol.RegisterRequest) protocol.RegisterResult {
	username, err := a.accounts.Register(ctx, req.Email, req.Username, req.Password)
	if err != nil {
		code := store.AsRegistrationError(err)
		a.logger.WithField("username", req.Username).Infof("registration rejected: %v", code)
		return protocol.RegisterResult{Error: code}
	}
	a.logger.WithField("username", username).Info("account registered")
	return protocol.RegisterResult{Success: true}
}
