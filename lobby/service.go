// Package lobby implements game lobbies on top of the document dialect.
//
// Lobbies are stored in the game_lobbies collection with their chat in a
// chat sub-collection. Chat history is kept when a lobby is deleted.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/nasdf/meeple/docstore"
	"github.com/nasdf/meeple/games"
	"github.com/nasdf/meeple/log"
	"github.com/nasdf/meeple/record"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound         = errors.New("lobby does not exist")
	ErrAlreadyStarted   = errors.New("game has already started")
	ErrWrongPassword    = errors.New("password does not match")
	ErrFull             = errors.New("lobby is full")
	ErrAlreadyJoined    = errors.New("already joined the lobby")
	ErrNotJoined        = errors.New("user has not joined the lobby")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotReady         = errors.New("every player must be ready")
	ErrInvalidPlayers   = errors.New("max players must be between 2 and 8")
	ErrInvalidName      = errors.New("lobby name must be 2 to 20 characters")
	ErrPasswordRequired = errors.New("private lobby requires a password")
	ErrInvalidMessage   = errors.New("message must be 1 to 200 characters")
)

const (
	MinPlayers = 2
	MaxPlayers = 8

	minNameLength    = 2
	maxNameLength    = 20
	minMessageLength = 1
	maxMessageLength = 200
)

// Service implements the lobby business rules.
type Service struct {
	docs   *docstore.Client
	games  *games.Registry
	logger zerolog.Logger
	newID  func() string
	now    func() time.Time
}

type Option func(*Service)

// WithRegistry sets the game registry used to validate lobbies and initialize games.
func WithRegistry(reg *games.Registry) Option {
	return func(s *Service) {
		s.games = reg
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithIDGenerator sets the function used to allocate lobby and game ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithClock sets the function used for timestamps.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		s.now = fn
	}
}

func NewService(docs *docstore.Client, opts ...Option) *Service {
	s := &Service{
		docs:   docs,
		logger: log.Lobby,
		newID:  uuid.NewString,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest holds the parameters of a new lobby.
type CreateRequest struct {
	HostID     string
	HostName   string
	GameType   string
	Name       string
	MaxPlayers int
	IsPublic   bool
	Password   string
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(record.TimeFormat)
}

func (s *Service) lobbyRef(id string) *docstore.DocumentRef {
	return s.docs.Collection(LobbiesCollection).Doc(id)
}

// validate checks the request against the lobby limits and the registered game, if any.
func (s *Service) validate(req CreateRequest) error {
	minPlayers, maxPlayers := MinPlayers, MaxPlayers
	if s.games != nil && s.games.Exists(req.GameType) {
		game, err := s.games.Get(req.GameType)
		if err != nil {
			return err
		}
		cfg := game.Config()
		minPlayers = max(minPlayers, cfg.MinPlayers)
		maxPlayers = min(maxPlayers, cfg.MaxPlayers)
	}
	if req.MaxPlayers < minPlayers || req.MaxPlayers > maxPlayers {
		return fmt.Errorf("%w: %s allows %d to %d", ErrInvalidPlayers, req.GameType, minPlayers, maxPlayers)
	}
	n := utf8.RuneCountInString(req.Name)
	if n < minNameLength || n > maxNameLength {
		return ErrInvalidName
	}
	if !req.IsPublic && req.Password == "" {
		return ErrPasswordRequired
	}
	return nil
}

// Create creates a lobby with the host as its first, ready player and returns its id.
func (s *Service) Create(ctx context.Context, req CreateRequest) (string, error) {
	if err := s.validate(req); err != nil {
		return "", err
	}
	now := s.timestamp()
	l := &Lobby{
		ID:         s.newID(),
		HostID:     req.HostID,
		HostName:   req.HostName,
		GameType:   req.GameType,
		Name:       req.Name,
		IsPublic:   req.IsPublic,
		Password:   req.Password,
		MaxPlayers: req.MaxPlayers,
		Players: []Player{{
			ID:          req.HostID,
			DisplayName: req.HostName,
			IsReady:     true,
			IsHost:      true,
		}},
		Status:    StatusWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.lobbyRef(l.ID).Set(ctx, l.data()); err != nil {
		return "", err
	}
	if _, err := s.systemMessage(ctx, l.ID, fmt.Sprintf("%s created the lobby.", req.HostName)); err != nil {
		return "", err
	}
	s.logger.Info().Str("lobby", l.ID).Str("host", req.HostID).Msg("lobby created")
	return l.ID, nil
}

// Get returns the lobby with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Lobby, error) {
	snap, err := s.lobbyRef(id).Get(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return lobbyFromSnapshot(snap), nil
}

// Join adds the user to a waiting lobby.
func (s *Service) Join(ctx context.Context, lobbyID, userID, userName, password string) error {
	l, err := s.Get(ctx, lobbyID)
	if err != nil {
		return err
	}
	if l.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	if !l.IsPublic && l.Password != password {
		return ErrWrongPassword
	}
	if l.Full() {
		return ErrFull
	}
	if l.HasPlayer(userID) {
		return ErrAlreadyJoined
	}
	players := append(l.Players, Player{ID: userID, DisplayName: userName})
	err = s.lobbyRef(lobbyID).Update(ctx, map[string]any{
		"players":   playersData(players),
		"updatedAt": s.timestamp(),
	})
	if err != nil {
		return err
	}
	_, err = s.systemMessage(ctx, lobbyID, fmt.Sprintf("%s joined.", userName))
	return err
}

// Leave removes the user from the lobby and returns true if the lobby was deleted.
//
// When the host leaves, the next player becomes host. A host leaving alone deletes the lobby.
func (s *Service) Leave(ctx context.Context, lobbyID, userID string) (bool, error) {
	l, err := s.Get(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	i := l.playerIndex(userID)
	if i < 0 {
		return false, ErrNotJoined
	}
	leaving := l.Players[i]
	if _, err := s.systemMessage(ctx, lobbyID, fmt.Sprintf("%s left.", leaving.DisplayName)); err != nil {
		return false, err
	}

	remaining := make([]Player, 0, len(l.Players)-1)
	remaining = append(remaining, l.Players[:i]...)
	remaining = append(remaining, l.Players[i+1:]...)

	ref := s.lobbyRef(lobbyID)
	if !leaving.IsHost {
		err = ref.Update(ctx, map[string]any{
			"players":   playersData(remaining),
			"updatedAt": s.timestamp(),
		})
		return false, err
	}
	if len(remaining) == 0 {
		if err := ref.Delete(ctx); err != nil {
			return false, err
		}
		s.logger.Info().Str("lobby", lobbyID).Msg("lobby deleted")
		return true, nil
	}

	host := &remaining[0]
	host.IsHost = true
	host.IsReady = true
	err = ref.Update(ctx, map[string]any{
		"hostId":    host.ID,
		"hostName":  host.DisplayName,
		"players":   playersData(remaining),
		"updatedAt": s.timestamp(),
	})
	if err != nil {
		return false, err
	}
	_, err = s.systemMessage(ctx, lobbyID, fmt.Sprintf("%s is now the host.", host.DisplayName))
	return false, err
}

// ToggleReady flips the ready state of a player and returns the new state.
//
// The host is always ready.
func (s *Service) ToggleReady(ctx context.Context, lobbyID, userID string) (bool, error) {
	l, err := s.Get(ctx, lobbyID)
	if err != nil {
		return false, err
	}
	i := l.playerIndex(userID)
	if i < 0 {
		return false, ErrNotJoined
	}
	if l.Players[i].IsHost {
		return true, nil
	}
	l.Players[i].IsReady = !l.Players[i].IsReady
	err = s.lobbyRef(lobbyID).Update(ctx, map[string]any{
		"players":   playersData(l.Players),
		"updatedAt": s.timestamp(),
	})
	if err != nil {
		return false, err
	}
	return l.Players[i].IsReady, nil
}

// CanStart returns true if the lobby has at least two players and all of them are ready.
func (s *Service) CanStart(ctx context.Context, lobbyID string) (bool, error) {
	l, err := s.Get(ctx, lobbyID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(l.Players) >= MinPlayers && l.AllReady(), nil
}

// Start creates the active game for the lobby and returns its id.
//
// If the lobby's game is registered its initial state is stored with the game.
func (s *Service) Start(ctx context.Context, lobbyID, hostID string) (string, error) {
	l, err := s.Get(ctx, lobbyID)
	if err != nil {
		return "", err
	}
	if l.HostID != hostID {
		return "", ErrNotHost
	}
	if l.Status != StatusWaiting {
		return "", ErrAlreadyStarted
	}
	if len(l.Players) < MinPlayers || !l.AllReady() {
		return "", ErrNotReady
	}

	now := s.timestamp()
	gameID := s.newID()
	game := map[string]any{
		"gameId":    gameID,
		"lobbyId":   lobbyID,
		"gameType":  l.GameType,
		"players":   playersData(l.Players),
		"status":    StatusInProgress,
		"createdAt": now,
		"updatedAt": now,
	}
	state, err := s.initialState(l)
	if err != nil {
		return "", err
	}
	if state != nil {
		game["state"] = state
	}
	if err := s.docs.Collection(GamesCollection).Doc(gameID).Set(ctx, game); err != nil {
		return "", err
	}
	err = s.lobbyRef(lobbyID).Update(ctx, map[string]any{
		"status":    StatusInProgress,
		"gameId":    gameID,
		"updatedAt": now,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("lobby", lobbyID).Str("game", gameID).Msg("game started")
	return gameID, nil
}

func (s *Service) initialState(l *Lobby) (map[string]any, error) {
	if s.games == nil || !s.games.Exists(l.GameType) {
		return nil, nil
	}
	game, err := s.games.Get(l.GameType)
	if err != nil {
		return nil, err
	}
	players := make([]games.Player, len(l.Players))
	for i, p := range l.Players {
		players[i] = games.Player{ID: p.ID, Name: p.DisplayName}
	}
	return game.InitializeState(players)
}

// Game returns the active game document with the given id.
func (s *Service) Game(ctx context.Context, gameID string) (map[string]any, error) {
	snap, err := s.docs.Collection(GamesCollection).Doc(gameID).Get(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Exists() {
		return nil, fmt.Errorf("game %s: %w", gameID, docstore.ErrNotFound)
	}
	return snap.Data(), nil
}

// SendChat posts a user message to the lobby chat and returns its id.
func (s *Service) SendChat(ctx context.Context, lobbyID, userID, userName, message string) (string, error) {
	n := utf8.RuneCountInString(message)
	if n < minMessageLength || n > maxMessageLength {
		return "", ErrInvalidMessage
	}
	if _, err := s.Get(ctx, lobbyID); err != nil {
		return "", err
	}
	return s.addMessage(ctx, lobbyID, ChatMessage{
		UserID:   userID,
		UserName: userName,
		Message:  message,
		Type:     MessageText,
	})
}

func (s *Service) systemMessage(ctx context.Context, lobbyID, message string) (string, error) {
	return s.addMessage(ctx, lobbyID, ChatMessage{
		UserID:   systemUserID,
		UserName: systemUserName,
		Message:  message,
		Type:     MessageSystem,
	})
}

func (s *Service) addMessage(ctx context.Context, lobbyID string, msg ChatMessage) (string, error) {
	msg.Timestamp = s.timestamp()
	ref, err := s.lobbyRef(lobbyID).Collection(ChatCollection).Add(ctx, msg.data())
	if err != nil {
		return "", err
	}
	return ref.ID, nil
}

func (s *Service) chatQuery(lobbyID string) docstore.Query {
	return s.lobbyRef(lobbyID).Collection(ChatCollection).OrderBy("timestamp", docstore.Asc)
}

// Chat returns the chat history of the lobby in posting order.
//
// History is returned even if the lobby has been deleted.
func (s *Service) Chat(ctx context.Context, lobbyID string) ([]ChatMessage, error) {
	snaps, err := s.chatQuery(lobbyID).Get(ctx)
	if err != nil {
		return nil, err
	}
	return chatMessages(snaps), nil
}

// ListOpen returns public lobbies that are waiting for players, newest first.
//
// A limit of zero or less returns every lobby.
func (s *Service) ListOpen(ctx context.Context, limit int) ([]*Lobby, error) {
	snaps, err := s.docs.Collection(LobbiesCollection).
		Where("isPublic", "==", true).
		Where("status", "==", StatusWaiting).
		OrderBy("createdAt", docstore.Desc).
		Limit(limit).
		Get(ctx)
	if err != nil {
		return nil, err
	}
	lobbies := make([]*Lobby, len(snaps))
	for i, snap := range snaps {
		lobbies[i] = lobbyFromSnapshot(snap)
	}
	return lobbies, nil
}

// WatchLobby calls fn with the lobby now and after every change. The lobby is nil once deleted.
func (s *Service) WatchLobby(lobbyID string, fn func(*Lobby) error) *docstore.Subscription {
	return s.lobbyRef(lobbyID).Subscribe(func(snap *docstore.Snapshot) error {
		if !snap.Exists() {
			return fn(nil)
		}
		return fn(lobbyFromSnapshot(snap))
	})
}

// WatchChat calls fn with the full chat history now and after every new message.
func (s *Service) WatchChat(lobbyID string, fn func([]ChatMessage) error) *docstore.Subscription {
	return s.chatQuery(lobbyID).Subscribe(func(snaps []*docstore.Snapshot) error {
		return fn(chatMessages(snaps))
	})
}

func chatMessages(snaps []*docstore.Snapshot) []ChatMessage {
	msgs := make([]ChatMessage, len(snaps))
	for i, snap := range snaps {
		msgs[i] = chatFromSnapshot(snap)
	}
	return msgs
}
