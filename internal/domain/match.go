package domain

import "time"

// GameType identifies which esport a match belongs to.
type GameType string

const (
	GameLoL   GameType = "lol"
	GameDota2 GameType = "dota2"
)

// Valid reports whether the game type is one we can model.
func (g GameType) Valid() bool {
	return g == GameLoL || g == GameDota2
}

// MatchPhase represents the lifecycle state of a match.
type MatchPhase string

const (
	PhaseScheduled MatchPhase = "scheduled"
	PhaseLive      MatchPhase = "live"
	PhaseFinished  MatchPhase = "finished"
)

// TeamState holds the live stats for one side of a match. Gold/towers apply
// to LoL, net worth/roshan to Dota 2; unused fields stay zero.
type TeamState struct {
	Name   string
	Kills  int
	Deaths int
	Gold   int
	Towers int

	// LoL objectives
	Dragons       int
	Barons        int
	HasDragonSoul bool
	HasElder      bool
	HasBaronBuff  bool

	// Dota 2 objectives
	NetWorth    int
	RoshanKills int
	HasAegis    bool
}

// MatchState is the current snapshot of a live match. It is the only state the
// probability model consumes: no event history is retained.
type MatchState struct {
	MatchID string
	Game    GameType
	Phase   MatchPhase

	Team1 TeamState
	Team2 TeamState

	ElapsedSeconds int
	Team1MapScore  int
	Team2MapScore  int
	BestOf         int

	UpdatedAt time.Time
}

// ElapsedMinutes returns the game clock in minutes.
func (m MatchState) ElapsedMinutes() float64 {
	return float64(m.ElapsedSeconds) / 60.0
}

// GoldDiff returns the economy differential, positive when team 1 leads.
// For Dota 2 this is the net worth differential.
func (m MatchState) GoldDiff() int {
	if m.Game == GameDota2 {
		return m.Team1.NetWorth - m.Team2.NetWorth
	}
	return m.Team1.Gold - m.Team2.Gold
}

// KillDiff returns the kill differential, positive when team 1 leads.
func (m MatchState) KillDiff() int {
	return m.Team1.Kills - m.Team2.Kills
}

// TowerDiff returns the tower differential, positive when team 1 leads.
func (m MatchState) TowerDiff() int {
	return m.Team1.Towers - m.Team2.Towers
}

// EventType classifies incoming game events.
type EventType string

const (
	EventMatchStart EventType = "match_start"
	EventStateSync  EventType = "state_sync"
	EventKill       EventType = "kill"
	EventTower      EventType = "tower"
	EventDragon     EventType = "dragon"
	EventBaron      EventType = "baron"
	EventRoshan     EventType = "roshan"
	EventMatchEnd   EventType = "match_end"
)

// GameEvent is a single state delta from the game-data feed. Incremental
// events (kill, tower, ...) carry Team and Context; state_sync and
// match_start carry absolute team snapshots in Sync.
type GameEvent struct {
	MatchID string
	Game    GameType
	Type    EventType

	// Team is 1 or 2: which side the event credits. Zero for sync events.
	Team int

	// Context refines incremental events, e.g. "solo", "first_blood",
	// "inner", "elder". Empty means default weighting.
	Context string

	ElapsedSeconds int
	Timestamp      time.Time

	// Sync carries absolute team stats for match_start / state_sync events.
	Sync *StateSync

	// Winner is 1 or 2 on match_end events.
	Winner int
}

// StateSync is an absolute snapshot of both sides, replacing current stats.
type StateSync struct {
	Team1  TeamState
	Team2  TeamState
	BestOf int
}
