package lobby

import (
	"github.com/nasdf/meeple/docstore"
	"github.com/nasdf/meeple/record"
)

// Collection names used by the service.
const (
	LobbiesCollection = "game_lobbies"
	ChatCollection    = "chat"
	GamesCollection   = "active_games"
)

// Lobby status values.
const (
	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
)

// Chat message types.
const (
	MessageSystem = "system"
	MessageText   = "text"
)

// systemUser is the author of system chat messages.
const (
	systemUserID   = "system"
	systemUserName = "System"
)

type Player struct {
	ID          string
	DisplayName string
	IsReady     bool
	IsHost      bool
}

func (p Player) data() map[string]any {
	return map[string]any{
		"id":          p.ID,
		"displayName": p.DisplayName,
		"isReady":     p.IsReady,
		"isHost":      p.IsHost,
	}
}

type Lobby struct {
	ID         string
	HostID     string
	HostName   string
	GameType   string
	Name       string
	IsPublic   bool
	Password   string
	MaxPlayers int
	Players    []Player
	Status     string
	GameID     string
	CreatedAt  string
	UpdatedAt  string
}

// HasPlayer returns true if the user has joined the lobby.
func (l *Lobby) HasPlayer(userID string) bool {
	return l.playerIndex(userID) >= 0
}

func (l *Lobby) playerIndex(userID string) int {
	for i, p := range l.Players {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

// Full returns true if no more players can join.
func (l *Lobby) Full() bool {
	return len(l.Players) >= l.MaxPlayers
}

// AllReady returns true if every player is ready.
func (l *Lobby) AllReady() bool {
	for _, p := range l.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

func (l *Lobby) data() map[string]any {
	data := map[string]any{
		"lobbyId":    l.ID,
		"hostId":     l.HostID,
		"hostName":   l.HostName,
		"gameType":   l.GameType,
		"lobbyName":  l.Name,
		"isPublic":   l.IsPublic,
		"maxPlayers": l.MaxPlayers,
		"players":    playersData(l.Players),
		"status":     l.Status,
		"createdAt":  l.CreatedAt,
		"updatedAt":  l.UpdatedAt,
	}
	if l.Password != "" {
		data["password"] = l.Password
	}
	if l.GameID != "" {
		data["gameId"] = l.GameID
	}
	return data
}

func playersData(players []Player) []any {
	out := make([]any, len(players))
	for i, p := range players {
		out[i] = p.data()
	}
	return out
}

func lobbyFromSnapshot(snap *docstore.Snapshot) *Lobby {
	rec := snap.Record()
	l := &Lobby{
		ID:         snap.ID(),
		HostID:     text(rec, "hostId"),
		HostName:   text(rec, "hostName"),
		GameType:   text(rec, "gameType"),
		Name:       text(rec, "lobbyName"),
		IsPublic:   flag(rec, "isPublic", true),
		Password:   text(rec, "password"),
		MaxPlayers: number(rec, "maxPlayers"),
		Status:     text(rec, "status"),
		GameID:     text(rec, "gameId"),
		CreatedAt:  text(rec, "createdAt"),
		UpdatedAt:  text(rec, "updatedAt"),
	}
	list, _ := rec["players"].AsList()
	for _, v := range list {
		p, ok := v.AsMap()
		if !ok {
			continue
		}
		l.Players = append(l.Players, Player{
			ID:          text(p, "id"),
			DisplayName: text(p, "displayName"),
			IsReady:     flag(p, "isReady", false),
			IsHost:      flag(p, "isHost", false),
		})
	}
	return l
}

type ChatMessage struct {
	ID        string
	UserID    string
	UserName  string
	Message   string
	Timestamp string
	Type      string
}

func (m ChatMessage) data() map[string]any {
	return map[string]any{
		"userId":    m.UserID,
		"userName":  m.UserName,
		"message":   m.Message,
		"timestamp": m.Timestamp,
		"type":      m.Type,
	}
}

func chatFromSnapshot(snap *docstore.Snapshot) ChatMessage {
	rec := snap.Record()
	return ChatMessage{
		ID:        snap.ID(),
		UserID:    text(rec, "userId"),
		UserName:  text(rec, "userName"),
		Message:   text(rec, "message"),
		Timestamp: text(rec, "timestamp"),
		Type:      text(rec, "type"),
	}
}

func text(rec record.Record, field string) string {
	s, _ := rec[field].AsString()
	return s
}

func number(rec record.Record, field string) int {
	if i, ok := rec[field].AsInt(); ok {
		return int(i)
	}
	n, _ := rec[field].AsNumber()
	return int(n)
}

func flag(rec record.Record, field string, fallback bool) bool {
	b, ok := rec[field].AsBool()
	if !ok {
		return fallback
	}
	return b
}
