package storage

import (
	"bufio"
	"bytes"
	"civsim-server/internal/actionlog"
	"civsim-server/internal/domain"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
)

func (s *ReplayService) Load(path string) (*actionlog.Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(bufio.NewReader(f))
}

// Decode читает лог формата CRPL. Все ходы прочитанного лога закрыты.
func Decode(r io.Reader) (*actionlog.Log, error) {
	// 1. Читаем заголовок целиком
	var header ReplayFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("invalid magic")
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}

	// 2. Снимок мира. Длине из заголовка не верим: буфер растет по мере чтения.
	var state bytes.Buffer
	if _, err := io.CopyN(&state, r, int64(header.InitialStateLen)); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read initial state: %w", err)
	}

	log := actionlog.Restore(uuid.UUID(header.ID), time.Unix(0, header.CreatedAt).UTC(), state.Bytes())

	// 3. Цивилизации и их ходы
	for c := 0; c < int(header.CivCount); c++ {
		var ch CivHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			return nil, fmt.Errorf("civ #%d header: %w", c, err)
		}
		nameBuf := make([]byte, ch.NameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return nil, fmt.Errorf("civ #%d name: %w", c, err)
		}
		civ := string(nameBuf)

		for turn := 0; turn < int(ch.TurnCount); turn++ {
			var th TurnHeader
			if err := binary.Read(r, binary.LittleEndian, &th); err != nil {
				return nil, fmt.Errorf("%s turn %d header: %w", civ, turn, err)
			}

			for i := 0; i < int(th.ActionCount); i++ {
				act, err := readAction(r)
				if err != nil {
					return nil, fmt.Errorf("%s turn %d action #%d: %w", civ, turn, i, err)
				}
				if err := log.Record(civ, turn, act); err != nil {
					return nil, err
				}
			}
		}

		// Закрываем все ходы, включая пустые в хвосте
		if ch.TurnCount > 0 {
			if err := log.CloseTurn(civ, int(ch.TurnCount)-1); err != nil {
				return nil, err
			}
		}
	}

	return log, nil
}

func readAction(r io.Reader) (domain.Action, error) {
	var ah ActionHeader
	if err := binary.Read(r, binary.LittleEndian, &ah); err != nil {
		return domain.Action{}, err
	}

	act := domain.Action{Kind: domain.ActionKind(ah.Kind), Payload: json.RawMessage{}}
	if ah.PayloadLen > 0 {
		act.Payload = make([]byte, ah.PayloadLen)
		if _, err := io.ReadFull(r, act.Payload); err != nil {
			return domain.Action{}, err
		}
	}
	return act, nil
}
