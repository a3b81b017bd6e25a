package main

import (
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"cardtable/internal/app"
	"cardtable/internal/bot"
	"cardtable/internal/client"
	"cardtable/internal/config"
	"cardtable/internal/plugin"
	"cardtable/internal/transport"
)

const handSize = 5

func main() {
	srvCfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("server config: %v", err)
	}

	seats := []config.Seat{{User: "player1"}, {User: "player2", Bot: "random"}}
	if err := config.LoadGameConfig(srvCfg.GameConfigPath); err != nil {
		log.Printf("using built-in table: %v", err)
	} else if gc := config.GetGameConfig(); gc != nil && len(gc.Seats) > 0 {
		seats = gc.Seats
	}
	names := make([]string, len(seats))
	for i, seat := range seats {
		names[i] = seat.User
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	board := app.NewTableBoard(names)
	registry := plugin.NewRegistry(logger)

	bankSeed := time.Now().UnixNano()
	if gc := config.GetGameConfig(); gc != nil && gc.ShuffleSeed != 0 {
		bankSeed = gc.ShuffleSeed
	}
	bank := client.NewBank(board, registry, logger, bankSeed)

	script := app.DemoScript(registry, handSize)
	if srvCfg.ScriptPath != "" {
		src, err := os.ReadFile(srvCfg.ScriptPath)
		if err != nil {
			log.Fatalf("read script %s: %v", srvCfg.ScriptPath, err)
		}
		script = app.LuaScript(string(src))
	}

	gs := app.NewGameServer(board, registry, bank, script, logger)

	rest := transport.NewRESTServer()
	sockets := transport.NewMessageServer(logger)
	for _, seat := range seats {
		if seat.Bot != "" {
			if err := attachBot(gs, registry, logger, seat, names); err != nil {
				log.Fatalf("attach bot %s: %v", seat.User, err)
			}
			continue
		}
		if seat.Transport == "rest" {
			gs.AddTransport(seat.User, rest.Endpoint(seat.User))
		} else {
			gs.AddTransport(seat.User, sockets.Endpoint(seat.User, "table"))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/messages", rest)
	mux.Handle("/ws", sockets)
	mux.HandleFunc("/newgame", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		state, err := gs.NewGame()
		if err != nil {
			log.Printf("new game: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write([]byte(string(state)))
	})

	log.Printf("card table listening on %s (%d seats)", srvCfg.Addr, len(seats))
	log.Fatal(http.ListenAndServe(srvCfg.Addr, mux))
}

// attachBot seats an in-process AI player over a local transport pair, with
// its own board replica built the same way as the authoritative one so
// element ids line up.
func attachBot(gs *app.GameServer, registry *plugin.Registry, logger *slog.Logger, seat config.Seat, names []string) error {
	brain, err := bot.NewBrain(bot.LevelByName(seat.Bot), rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return err
	}
	replica := app.NewTableBoard(names)
	ai := client.NewAI(seat.User, replica, registry, logger, bot.NewAgent(seat.User, brain))

	serverSide, clientSide := transport.NewLocalPair(seat.User)
	ai.Attach(clientSide)
	gs.AddTransport(seat.User, serverSide)
	return nil
}
