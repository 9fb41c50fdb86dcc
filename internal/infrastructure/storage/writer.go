package storage

import (
	"bufio"
	"civsim-server/internal/actionlog"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

const (
	MagicHeader string = `CRPL` // 4 байта
	Version1    uint32 = 1
)

// ReplayFileHeader - точное представление заголовка файла в памяти.
// binary.Write умеет писать это целиком, так как тут нет слайсов и строк, только массивы и числа.
type ReplayFileHeader struct {
	Magic           [4]byte  // 4 байта
	Version         uint32   // 4 байта
	ID              [16]byte // UUID лога
	CreatedAt       int64    // unix nano, UTC
	InitialStateLen uint32   // длина снимка мира
	CivCount        uint16   // число цивилизаций
}

// CivHeader - заголовок секции цивилизации. За ним идет имя, затем TurnCount ходов.
type CivHeader struct {
	NameLen   uint8
	TurnCount uint32
}

// TurnHeader - число действий хода. Пустой ход пишется с нулем.
type TurnHeader struct {
	ActionCount uint32
}

// ActionHeader - заголовок каждой записи действия.
type ActionHeader struct {
	Kind       uint8  // 1
	PayloadLen uint16 // 2
}

// ReplayService сохраняет логи в каталог на диске.
type ReplayService struct {
	SaveDir string
}

func NewReplayService(dir string) (*ReplayService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create replay dir: %w", err)
	}
	return &ReplayService{SaveDir: dir}, nil
}

// Save пишет лог в файл и возвращает путь.
func (s *ReplayService) Save(log *actionlog.Log) (string, error) {
	filename := fmt.Sprintf("replay_%s_%d.crpl", log.ID(), log.CreatedAt().Unix())
	path := filepath.Join(s.SaveDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Логи длинных партий содержат тысячи мелких записей - буферизуем.
	w := bufio.NewWriter(f)
	if err := Encode(w, log); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	return path, f.Close()
}

// Encode пишет лог в бинарном формате CRPL.
// Порядок цивилизаций, ходов и действий внутри хода сохраняется.
func Encode(w io.Writer, log *actionlog.Log) error {
	civs := log.Civilizations()
	state := log.InitialState()

	if len(civs) > math.MaxUint16 {
		return fmt.Errorf("too many civilizations: %d", len(civs))
	}
	if uint64(len(state)) > math.MaxUint32 {
		return fmt.Errorf("initial state too large: %d", len(state))
	}

	// 1. Глобальный заголовок
	header := ReplayFileHeader{
		Version:         Version1,
		ID:              log.ID(),
		CreatedAt:       log.CreatedAt().UnixNano(),
		InitialStateLen: uint32(len(state)),
		CivCount:        uint16(len(civs)),
	}
	copy(header.Magic[:], MagicHeader)

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(state); err != nil {
		return fmt.Errorf("failed to write initial state: %w", err)
	}

	// 2. Секции цивилизаций
	for _, civ := range civs {
		nameBytes := []byte(civ)
		if len(nameBytes) > math.MaxUint8 {
			return fmt.Errorf("civilization name too long: %d", len(nameBytes))
		}

		turnCount := log.TurnCount(civ)
		civHeader := CivHeader{NameLen: uint8(len(nameBytes)), TurnCount: uint32(turnCount)}
		if err := binary.Write(w, binary.LittleEndian, &civHeader); err != nil {
			return err
		}
		if _, err := w.Write(nameBytes); err != nil {
			return err
		}

		for turn := 0; turn < turnCount; turn++ {
			actions, err := log.Actions(civ, turn)
			if err != nil {
				return err
			}
			if err := binary.Write(w, binary.LittleEndian, &TurnHeader{ActionCount: uint32(len(actions))}); err != nil {
				return err
			}

			for _, act := range actions {
				payloadLen := len(act.Payload)
				if payloadLen > math.MaxUint16 {
					return fmt.Errorf("payload too long: %d", payloadLen)
				}

				actHeader := ActionHeader{Kind: uint8(act.Kind), PayloadLen: uint16(payloadLen)}
				if err := binary.Write(w, binary.LittleEndian, &actHeader); err != nil {
					return err
				}
				if payloadLen > 0 {
					if _, err := w.Write(act.Payload); err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}
