package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"cardtable/internal/app"
	"cardtable/internal/bot"
	"cardtable/internal/client"
	"cardtable/internal/plugin"
	"cardtable/internal/protocol"
	"cardtable/internal/transport"

	"github.com/heroiclabs/nakama-common/runtime"
)

const defaultSeatCount = 2

const defaultHandSize = 5

// matchLabel is the queryable lobby state advertised through the match label.
type matchLabel struct {
	Open  int    `json:"open"`
	State string `json:"state"`
}

// MatchState holds the authoritative runtime state for the Nakama match
// handler: the fixed seat names, who occupies them, and the rule engine
// serving the table.
type MatchState struct {
	Seats     []string                    `json:"seats"`
	Occupants map[string]string           `json:"occupants"` // seat name -> Nakama user id
	Started   bool                        `json:"started"`
	Presences map[string]runtime.Presence `json:"-"` // Nakama user id -> presence

	Server     *app.GameServer                 `json:"-"`
	Transports map[string]*dispatcherTransport `json:"-"` // seat name -> transport
	Wired      bool                            `json:"-"`
}

func (ms *MatchState) openSeatCount() int {
	open := 0
	for _, seat := range ms.Seats {
		if ms.Occupants[seat] == "" {
			open++
		}
	}
	return open
}

func (ms *MatchState) seatOf(userID string) string {
	for seat, occupant := range ms.Occupants {
		if occupant == userID {
			return seat
		}
	}
	return ""
}

type matchHandler struct{}

func newMatchHandler() *matchHandler { return &matchHandler{} }

// MatchInit builds the table: seats from the environment, the demonstration
// script or a Lua chunk when one is configured, and the engine over a fresh
// board. Transports are wired on the first callback that carries a dispatcher.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: initializing card table match.")

	seatCount := defaultSeatCount
	handSize := defaultHandSize
	botSeats := 0
	botLevel := ""
	scriptPath := ""
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["cardtable_seats"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				seatCount = i
			}
		}
		if val, ok := env["cardtable_hand_size"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i > 0 {
				handSize = i
			}
		}
		if val, ok := env["cardtable_bot_seats"]; ok {
			if i, err := strconv.Atoi(val); err == nil && i >= 0 && i < seatCount {
				botSeats = i
			}
		}
		if val, ok := env["cardtable_bot_level"]; ok {
			botLevel = val
		}
		if val, ok := env["cardtable_script_path"]; ok {
			scriptPath = val
		}
	}

	seats := make([]string, seatCount)
	for i := range seats {
		seats[i] = "player" + strconv.Itoa(i+1)
	}

	slogger := NewRuntimeLogger(logger)
	board := app.NewTableBoard(seats)
	registry := plugin.NewRegistry(slogger)
	bank := client.NewBank(board, registry, slogger, time.Now().UnixNano())

	script := app.DemoScript(registry, handSize)
	if scriptPath != "" {
		src, err := os.ReadFile(scriptPath)
		if err != nil {
			logger.Warn("MatchInit: could not read script %s, using built-in game: %v", scriptPath, err)
		} else {
			script = app.LuaScript(string(src))
		}
	}

	state := &MatchState{
		Seats:      seats,
		Occupants:  make(map[string]string),
		Presences:  make(map[string]runtime.Presence),
		Server:     app.NewGameServer(board, registry, bank, script, slogger),
		Transports: make(map[string]*dispatcherTransport),
	}

	// Bot seats take the tail of the table so humans fill from the front.
	for _, seat := range seats[seatCount-botSeats:] {
		if err := attachBot(state, seat, bot.LevelByName(botLevel), registry, logger); err != nil {
			logger.Error("MatchInit: failed to attach bot for %s: %v", seat, err)
			return nil, 0, ""
		}
	}

	label, err := json.Marshal(matchLabel{Open: state.openSeatCount(), State: "lobby"})
	if err != nil {
		logger.Error("MatchInit: failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 5
	return state, tickRate, string(label)
}

// wire registers one dispatcher transport per seat with the engine. The
// dispatcher only exists inside match callbacks, so wiring is deferred to the
// first one.
func (mh *matchHandler) wire(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	if state.Wired {
		return
	}
	lookup := func(user string) (runtime.Presence, bool) {
		id := state.Occupants[user]
		if id == "" {
			return nil, false
		}
		p, ok := state.Presences[id]
		return p, ok
	}
	for _, seat := range state.Seats {
		// Bot seats are already served by an in-process transport.
		if state.Occupants[seat] != "" {
			continue
		}
		t := newDispatcherTransport(seat, dispatcher, lookup, logger)
		state.Transports[seat] = t
		state.Server.AddTransport(seat, t)
	}
	state.Wired = true
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}
	if matchState.seatOf(presence.GetUserId()) != "" {
		return state, true, ""
	}
	if matchState.openSeatCount() <= 0 {
		return state, false, "match full"
	}
	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}
	mh.wire(matchState, dispatcher, logger)

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		seat := matchState.seatOf(p.GetUserId())
		if seat == "" {
			for _, candidate := range matchState.Seats {
				if matchState.Occupants[candidate] == "" {
					matchState.Occupants[candidate] = p.GetUserId()
					seat = candidate
					break
				}
			}
		}
		if seat == "" {
			logger.Warn("MatchJoin: user %s joined but no seat was available.", p.GetUserId())
			continue
		}
		logger.Info("MatchJoin: user %s seated as %s.", p.GetUserId(), seat)

		// Tell the new arrival which seat it renders.
		cfg := protocol.Message{
			Command: protocol.MessageConfig,
			Config:  &protocol.ScreenConfig{Users: seat},
			Screen:  "table",
		}
		if err := matchState.Transports[seat].SendMessage(cfg); err != nil {
			logger.Error("MatchJoin: failed to send config to %s: %v", seat, err)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave frees the seats of departing players and terminates the match
// once nobody is left.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		if seat := matchState.seatOf(p.GetUserId()); seat != "" {
			matchState.Occupants[seat] = ""
			logger.Debug("MatchLeave: user %s left, seat %s freed.", p.GetUserId(), seat)
		}
	}

	if len(matchState.Presences) == 0 {
		logger.Info("MatchLeave: terminating empty match.")
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}
	mh.wire(matchState, dispatcher, logger)

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(matchState, dispatcher, logger, msg)
		case OpClientBatch:
			mh.handleClientBatch(matchState, logger, msg)
		default:
			logger.Warn("MatchLoop: unknown opcode received: %d", msg.GetOpCode())
		}
	}

	return matchState
}

func (mh *matchHandler) handleStartGame(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderSeat := state.seatOf(msg.GetUserId())
	if senderSeat == "" {
		logger.Warn("StartGame: user %s is not seated.", msg.GetUserId())
		return
	}
	if open := state.openSeatCount(); open > 0 {
		logger.Warn("StartGame: cannot start with %d open seats.", open)
		return
	}

	if _, err := state.Server.NewGame(); err != nil {
		logger.Error("StartGame: failed to start game: %v", err)
		return
	}
	state.Started = true
	mh.updateLabel(state, dispatcher, logger)
	logger.Info("StartGame: game started by %s.", senderSeat)
}

// handleClientBatch injects one player's batch response into the engine via
// the transport of the seat the sender occupies.
func (mh *matchHandler) handleClientBatch(state *MatchState, logger runtime.Logger, msg runtime.MatchData) {
	senderSeat := state.seatOf(msg.GetUserId())
	if senderSeat == "" {
		logger.Warn("handleClientBatch: user %s is not seated.", msg.GetUserId())
		return
	}

	envelope, err := protocol.DecodeMessage(msg.GetData())
	if err != nil {
		logger.Warn("handleClientBatch: bad payload from %s: %v", senderSeat, err)
		return
	}
	if envelope.Command != protocol.MessageBatch || envelope.Batch == nil {
		logger.Warn("handleClientBatch: unexpected %q envelope from %s.", envelope.Command, senderSeat)
		return
	}
	for user := range envelope.Batch.Commands {
		if user != senderSeat {
			logger.Warn("handleClientBatch: %s answered for %s, dropping.", senderSeat, user)
			return
		}
	}

	if err := state.Transports[senderSeat].deliver(envelope); err != nil {
		logger.Error("handleClientBatch: deliver failed for %s: %v", senderSeat, err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	phase := "lobby"
	if state.Started {
		phase = "playing"
	}
	label, err := json.Marshal(matchLabel{Open: state.openSeatCount(), State: phase})
	if err != nil {
		logger.Error("updateLabel: failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(label)); err != nil {
		logger.Error("updateLabel: failed to update: %v", err)
	}
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// attachBot seats an in-process AI player over a local transport pair. The
// bot keeps its own board replica, built the same way as the authoritative
// one so element ids line up.
func attachBot(state *MatchState, seat string, level bot.BotLevel, registry *plugin.Registry, logger runtime.Logger) error {
	slogger := NewRuntimeLogger(logger)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	brain, err := bot.NewBrain(level, rng)
	if err != nil {
		return err
	}
	replica := app.NewTableBoard(state.Seats)
	ai := client.NewAI(seat, replica, registry, slogger, bot.NewAgent(seat, brain))

	serverSide, clientSide := transport.NewLocalPair(seat)
	ai.Attach(clientSide)
	state.Server.AddTransport(seat, serverSide)
	state.Occupants[seat] = "bot:" + strings.ToLower(seat)
	return nil
}
