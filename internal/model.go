package internal

import (
	"sync"
	"time"
)

const (
	OptionsPerQuestion = 4
	MinQuestionSeconds = 5
	MaxQuestionSeconds = 300
	MinNameLength      = 2
	MaxNameLength      = 20
	PinLength          = 6
)

type GamePhase string

const (
	PhaseLobby    GamePhase = "lobby"
	PhaseQuestion GamePhase = "question"
	PhaseResults  GamePhase = "results"
	PhaseEnded    GamePhase = "ended"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// Stopper is a cancellable scheduled task.
type Stopper interface {
	Stop() bool
}

// Question is a question bank entry. Rooms hold their own copies, so edits
// to the bank never reach an event that is already configured.
type Question struct {
	Id           string     `json:"id"`
	Text         string     `json:"text"`
	Options      []string   `json:"options"`
	CorrectIndex int        `json:"correctIndex"`
	Seconds      int        `json:"seconds"`
	Difficulty   Difficulty `json:"difficulty"`
	Category     string     `json:"category"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Answer is a player's submission for one question.
type Answer struct {
	QuestionIndex int           `json:"question_index"`
	OptionIndex   int           `json:"option_index"`
	SubmittedAt   time.Time     `json:"submitted_at"`
	Elapsed       time.Duration `json:"elapsed"`
	Correct       bool          `json:"correct"`
	Late          bool          `json:"late"`
	Points        int           `json:"points"`
}

type Player struct {
	Id       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	JoinedAt time.Time `json:"joined_at"`

	// Cleared every time a question opens.
	LastAnswer *Answer `json:"-"`

	Connected bool `json:"connected"`

	// Statistics
	Answered       int `json:"answered"`
	CorrectAnswers int `json:"correct_answers"`
}

type Room struct {
	Pin       string
	Phase     GamePhase
	Players   map[string]*Player
	CreatedAt time.Time

	// Join order; also the leaderboard tie-break.
	PlayerOrder []string

	// Frozen at creation.
	Questions []Question

	// Question state
	QuestionIndex     int
	QuestionSeq       int
	ActiveQuestion    *Question
	QuestionStartedAt time.Time
	QuestionDeadline  time.Time
	DeadlineTimer     Stopper

	// Host
	HostId        string
	HostConnected bool
	HostLeftAt    time.Time

	EndedAt      time.Time
	EndReason    string
	LastActivity time.Time

	// Concurrency control. SendMu is taken before Mu is released and held
	// while the mutation's messages go out, so deliveries keep mutation order.
	Mu     sync.RWMutex
	SendMu sync.Mutex
}

type Response struct {
	StatusCode    int    `json:"status_code"`
	RespStartTime int64  `json:"resp_time_start_ms"`
	RespEndTime   int64  `json:"resp_time_end_ms"`
	NetRespTime   int64  `json:"net_resp_time_ms"`
	Error         string `json:"error,omitempty"`
	Data          any    `json:"data"`
}

// GameSummary is what gets archived and published when a room ends.
type GameSummary struct {
	Pin            string             `json:"pin"`
	Reason         string             `json:"reason"`
	TotalQuestions int                `json:"total_questions"`
	QuestionsAsked int                `json:"questions_asked"`
	CreatedAt      time.Time          `json:"created_at"`
	EndedAt        time.Time          `json:"ended_at"`
	Standings      []LeaderboardEntry `json:"standings"`
}
