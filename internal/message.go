package internal

import "time"

type Message[T any] struct {
	Type string `json:"type"`
	Data T      `json:"data"`
}

// Inbound message types.
const (
	MsgCreateGame   = "createGame"
	MsgJoinGame     = "joinGame"
	MsgRejoinGame   = "rejoinGame"
	MsgReclaimHost  = "reclaimHost"
	MsgStartGame    = "startGame"
	MsgNextQuestion = "nextQuestion"
	MsgEndGame      = "endGame"
	MsgSubmitAnswer = "submitAnswer"
	MsgPing         = "ping"
)

// Outbound message types.
const (
	MsgGameCreated   = "gameCreated"
	MsgHostReclaimed = "hostReclaimed"
	MsgJoined        = "joined"
	MsgJoinError     = "joinError"
	MsgHostError     = "hostError"
	MsgPlayerError   = "playerError"
	MsgError         = "error"
	MsgRoomUpdate    = "roomUpdate"
	MsgNewQuestion   = "newQuestion"
	MsgAnswerResult  = "answerResult"
	MsgAnswerCount   = "answerCount"
	MsgLeaderboard   = "leaderboard"
	MsgGameEnded     = "gameEnded"
	MsgPong          = "pong"
)

type CreateGameData struct {
	QuestionIds []string `json:"questionIds,omitempty"`
	Category    string   `json:"category,omitempty"`
	Limit       int      `json:"limit,omitempty"`
}

type JoinGameData struct {
	Pin        string `json:"pin"`
	PlayerName string `json:"playerName"`
}

type RejoinGameData struct {
	Pin         string `json:"pin"`
	PlayerToken string `json:"playerToken"`
}

type ReclaimHostData struct {
	Pin       string `json:"pin"`
	HostToken string `json:"hostToken"`
}

type PinData struct {
	Pin string `json:"pin"`
}

type SubmitAnswerData struct {
	Pin            string   `json:"pin"`
	AnswerIndex    *int     `json:"answerIndex"`
	ClientTimeLeft *float64 `json:"clientTimeLeft,omitempty"`
}

type GameCreatedData struct {
	Pin            string `json:"pin"`
	HostToken      string `json:"hostToken"`
	TotalQuestions int    `json:"totalQuestions"`
}

type JoinedData struct {
	Pin         string `json:"pin"`
	PlayerId    string `json:"playerId"`
	PlayerName  string `json:"playerName"`
	PlayerToken string `json:"playerToken"`
	Score       int    `json:"score"`
}

type ErrorData struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

type PlayerSnapshot struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
}

type RoomUpdateData struct {
	Pin            string           `json:"pin"`
	State          GamePhase        `json:"state"`
	QuestionIndex  int              `json:"questionIndex"`
	TotalQuestions int              `json:"totalQuestions"`
	HostConnected  bool             `json:"hostConnected"`
	Players        []PlayerSnapshot `json:"players"`
}

// NewQuestionData never carries the correct option.
type NewQuestionData struct {
	Pin      string    `json:"pin"`
	Index    int       `json:"index"`
	Total    int       `json:"total"`
	Text     string    `json:"text"`
	Options  []string  `json:"options"`
	Seconds  int       `json:"seconds"`
	Deadline time.Time `json:"deadline"`
}

type AnswerResultData struct {
	QuestionIndex int  `json:"questionIndex"`
	IsCorrect     bool `json:"isCorrect"`
	Late          bool `json:"late"`
	Points        int  `json:"points"`
	Score         int  `json:"score"`
}

type AnswerCountData struct {
	Pin      string `json:"pin"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
}

type LeaderboardEntry struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Position  int    `json:"position"`
	Connected bool   `json:"connected"`
}

type LeaderboardData struct {
	Pin            string             `json:"pin"`
	Phase          GamePhase          `json:"phase"`
	QuestionIndex  int                `json:"questionIndex"`
	TotalQuestions int                `json:"totalQuestions"`
	CorrectIndex   *int               `json:"correctIndex,omitempty"`
	Players        []LeaderboardEntry `json:"players"`
}

type GameEndedData struct {
	Pin     string             `json:"pin"`
	Reason  string             `json:"reason"`
	Players []LeaderboardEntry `json:"players"`
}
