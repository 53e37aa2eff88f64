package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/nasdf/meeple"
	"github.com/nasdf/meeple/config"
	"github.com/nasdf/meeple/docstore"
	"github.com/nasdf/meeple/link"
	"github.com/nasdf/meeple/lobby"
	"github.com/nasdf/meeple/log"
)

// go run ./cmd/playground -config meeple.yaml -export export.car

func main() {
	configPath := flag.String("config", "", "path to a yaml config file")
	exportPath := flag.String("export", "", "write a CAR archive of all data to this path")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logOpts, err := cfg.Log.Options()
	if err != nil {
		panic(err)
	}
	log.Init(logOpts)

	backends, err := meeple.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	fmt.Printf("documents: %+v\n", backends.DocumentsInfo())
	fmt.Printf("tables: %+v\n", backends.Info())

	err = playTables(ctx, backends)
	if err != nil {
		panic(err)
	}
	err = playLobby(ctx, backends)
	if err != nil {
		panic(err)
	}

	err = backends.Dump(ctx, os.Stdout)
	if err != nil {
		panic(err)
	}
	if *exportPath == "" {
		return
	}

	file, err := os.Create(*exportPath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	err = link.Export(ctx, backends.Storage, file)
	if err != nil {
		panic(err)
	}
	fmt.Printf("exported archive to %s\n", *exportPath)
}

func playTables(ctx context.Context, backends *meeple.Backends) error {
	players := backends.Tables.Table("players")

	res := players.Insert(ctx,
		map[string]any{"username": "ada", "level": 7, "region": "eu"},
		map[string]any{"username": "grace", "level": 3, "region": "us"},
		map[string]any{"username": "linus", "level": 5, "region": "eu"},
	)
	if err := res.Err(); err != nil {
		return err
	}

	res = players.Eq("region", "eu").Order("level", true).Execute(ctx)
	if err := res.Err(); err != nil {
		return err
	}
	fmt.Printf("eu players by level: %v\n", res.Rows())

	res = players.Eq("username", "grace").Update(ctx, map[string]any{"level": 4})
	if err := res.Err(); err != nil {
		return err
	}
	fmt.Printf("updated: %v\n", res.Rows())

	res = backends.Tables.RPC(ctx, "leaderboard", nil)
	fmt.Printf("rpc: %v\n", res.Err())
	return nil
}

func playLobby(ctx context.Context, backends *meeple.Backends) error {
	svc := lobby.NewService(backends.Documents)

	lobbyID, err := svc.Create(ctx, lobby.CreateRequest{
		HostID:     "u1",
		HostName:   "Ada",
		GameType:   "chess",
		Name:       "Friday night",
		MaxPlayers: 2,
		IsPublic:   true,
	})
	if err != nil {
		return err
	}

	sub := svc.WatchLobby(lobbyID, func(l *lobby.Lobby) error {
		if l == nil {
			fmt.Println("lobby deleted")
			return nil
		}
		fmt.Printf("lobby %s has %d/%d players\n", l.Name, len(l.Players), l.MaxPlayers)
		return nil
	})
	defer sub.Unsubscribe()

	err = svc.Join(ctx, lobbyID, "u2", "Grace", "")
	if err != nil {
		return err
	}
	_, err = svc.SendChat(ctx, lobbyID, "u2", "Grace", "good luck")
	if err != nil {
		return err
	}
	_, err = svc.ToggleReady(ctx, lobbyID, "u2")
	if err != nil {
		return err
	}
	gameID, err := svc.Start(ctx, lobbyID, "u1")
	if err != nil {
		return err
	}
	fmt.Printf("started game %s\n", gameID)

	messages, err := svc.Chat(ctx, lobbyID)
	if err != nil {
		return err
	}
	for _, m := range messages {
		fmt.Printf("[%s] %s: %s\n", m.Type, m.UserName, m.Message)
	}

	snaps, err := backends.Documents.Collection(lobby.LobbiesCollection).
		Where("status", "==", lobby.StatusInProgress).
		OrderBy("createdAt", docstore.Desc).
		Get(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("lobbies in progress: %d\n", len(snaps))
	return nil
}
