package main

import (
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"civsim-server/internal/infrastructure/storage"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 3 {
		printHelp()
		return
	}

	log, err := (&storage.ReplayService{}).Load(os.Args[2])
	if err != nil {
		fmt.Printf("Invalid action log: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "text":
		err = writeText(os.Stdout, log)
	case "json":
		err = writeJSON(os.Stdout, log)
	case "info":
		err = writeInfo(os.Stdout, log)
	default:
		printHelp()
		return
	}
	if err != nil {
		fmt.Printf("Dump failed: %v\n", err)
		os.Exit(1)
	}
}

func writeInfo(w io.Writer, log *actionlog.Log) error {
	_, err := fmt.Fprintf(w, "id:      %s\ncreated: %s\ncivs:    %d\nactions: %d\n",
		log.ID(), log.CreatedAt().Format(time.RFC3339), len(log.Civilizations()), log.ActionCount())
	return err
}

// writeText: по цивилизациям, ход за ходом, действия в порядке записи
func writeText(w io.Writer, log *actionlog.Log) error {
	if err := writeInfo(w, log); err != nil {
		return err
	}

	for _, civ := range log.Civilizations() {
		fmt.Fprintf(w, "\n== %s (%d turns)\n", civ, log.TurnCount(civ))
		for turn := 0; turn < log.TurnCount(civ); turn++ {
			actions, err := log.Actions(civ, turn)
			if err != nil {
				return err
			}
			if len(actions) == 0 {
				continue
			}
			fmt.Fprintf(w, "turn %d:\n", turn)
			for i, act := range actions {
				fmt.Fprintf(w, "  #%d %s\n", i, act)
			}
		}
	}
	return nil
}

type civDump struct {
	Name  string            `json:"name"`
	Turns [][]domain.Action `json:"turns"`
}

type logDump struct {
	ID            string          `json:"id"`
	CreatedAt     time.Time       `json:"createdAt"`
	InitialState  json.RawMessage `json:"initialState,omitempty"`
	Civilizations []civDump       `json:"civilizations"`
}

func writeJSON(w io.Writer, log *actionlog.Log) error {
	dump := logDump{
		ID:        log.ID().String(),
		CreatedAt: log.CreatedAt(),
	}
	if state := log.InitialState(); json.Valid(state) {
		dump.InitialState = state
	}

	for _, civ := range log.Civilizations() {
		cd := civDump{Name: civ, Turns: make([][]domain.Action, 0, log.TurnCount(civ))}
		for turn := 0; turn < log.TurnCount(civ); turn++ {
			actions, err := log.Actions(civ, turn)
			if err != nil {
				return err
			}
			cd.Turns = append(cd.Turns, actions)
		}
		dump.Civilizations = append(dump.Civilizations, cd)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(dump)
}

func printHelp() {
	fmt.Println(`Log Dump - просмотр лога действий (.crpl)
Commands:
  info <file>   - ID, время создания, число цивилизаций и действий
  text <file>   - действия по цивилизациям и ходам
  json <file>   - весь лог в JSON`)
}
