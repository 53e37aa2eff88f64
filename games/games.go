// Package games defines the capability interface implemented by game plugins and a registry of them.
package games

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDuplicateGame = errors.New("game already registered")
	ErrUnknownGame   = errors.New("game not registered")
	ErrInvalidConfig = errors.New("invalid game config")
)

// Category values used by Config.
const (
	CategoryBoard    = "board"
	CategoryDice     = "dice"
	CategoryCard     = "card"
	CategoryStrategy = "strategy"
)

// Config describes a game.
type Config struct {
	ID            string `json:"id" yaml:"id"`
	Name          string `json:"name" yaml:"name"`
	MinPlayers    int    `json:"min_players" yaml:"min_players"`
	MaxPlayers    int    `json:"max_players" yaml:"max_players"`
	TurnTimeLimit int    `json:"turn_time_limit" yaml:"turn_time_limit"` // seconds
	HasPhysics    bool   `json:"has_physics" yaml:"has_physics"`
	Has3DBoard    bool   `json:"has_3d_board" yaml:"has_3d_board"`
	Category      string `json:"category" yaml:"category"`
}

// Validate returns an error if the config cannot be registered.
func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidConfig)
	}
	if c.MinPlayers < 1 || c.MaxPlayers < c.MinPlayers {
		return fmt.Errorf("%w: %s player range %d..%d", ErrInvalidConfig, c.ID, c.MinPlayers, c.MaxPlayers)
	}
	return nil
}

// Player is a participant passed to InitializeState.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Rules is implemented by every game plugin.
//
// Game state is a plain document so it can be stored by either dialect.
type Rules interface {
	// Config returns the game description.
	Config() Config
	// InitializeState returns the state of a new game.
	InitializeState(players []Player) (map[string]any, error)
	// ValidateAction returns an error describing why the action is not allowed.
	ValidateAction(state, action map[string]any, playerID string) error
	// ProcessAction returns the state after applying the action.
	ProcessAction(state, action map[string]any) (map[string]any, error)
	// CheckWinCondition returns the winner info, or nil while the game is in progress.
	CheckWinCondition(state map[string]any) map[string]any
	// CalculateScore returns the score of a player.
	CalculateScore(state map[string]any, playerID string) int
	// NextTurn returns the id of the player whose turn is next.
	NextTurn(state map[string]any) string
}

// Registry maps game ids to exactly one implementation.
type Registry struct {
	mu    sync.RWMutex
	games map[string]Rules
}

func NewRegistry() *Registry {
	return &Registry{
		games: make(map[string]Rules),
	}
}

// Register adds the game to the registry.
func (r *Registry) Register(game Rules) error {
	cfg := game.Config()
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.games[cfg.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateGame, cfg.ID)
	}
	r.games[cfg.ID] = game
	return nil
}

// Get returns the game with the given id.
func (r *Registry) Get(id string) (Rules, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	game, ok := r.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, id)
	}
	return game, nil
}

// Exists returns true if a game with the given id is registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.games[id]
	return ok
}

// Configs returns the configs of every registered game sorted by id.
func (r *Registry) Configs() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	configs := make([]Config, 0, len(r.games))
	for _, game := range r.games {
		configs = append(configs, game.Config())
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ID < configs[j].ID
	})
	return configs
}
