package entity

// GameStatus 房间对局状态
type GameStatus string

const (
	GameNotStarted GameStatus = "not-started"
	GameInProgress GameStatus = "in-progress"
)

const FirstRound = 1

// GameState 每个房间至多一份，随房间一起销毁
type GameState struct {
	Status   GameStatus `json:"status"`
	GameSlug string     `json:"gameSlug"`
	Round    int        `json:"round"`
}

// NewStartedGame 开局，回合总是从 1 开始
func NewStartedGame(gameSlug string) *GameState {
	return &GameState{
		Status:   GameInProgress,
		GameSlug: gameSlug,
		Round:    FirstRound,
	}
}
