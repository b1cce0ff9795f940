package position

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fvgbot/internal/strategy"
)

// State is the durable ledger schema. Unknown fields in a persisted file are
// ignored on load rather than propagated.
type State struct {
	Positions    map[string]*Position      `json:"positions"`
	FVGs         map[string][]strategy.Gap `json:"fvgs"`
	PaperBalance float64                   `json:"paper_balance"`
	Daily        DailyWindow               `json:"daily"`
}

// LoadState reads the persisted state file. A missing file is not an error:
// the ledger starts with empty defaults.
func (l *Ledger) LoadState() error {
	if l.statePath == "" {
		return nil
	}
	data, err := os.ReadFile(l.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read state: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}

	if st.Positions != nil {
		l.positions = st.Positions
	}
	if st.FVGs != nil {
		l.gaps = st.FVGs
	}
	l.paperBalance = st.PaperBalance
	l.daily = st.Daily
	return nil
}

// SaveState writes the full ledger state to disk. The write goes through a
// temp file and rename so a crash never leaves a partially-written state.
func (l *Ledger) SaveState() error {
	if l.statePath == "" {
		return errors.New("empty state path")
	}

	st := State{
		Positions:    l.positions,
		FVGs:         l.gaps,
		PaperBalance: l.paperBalance,
		Daily:        l.daily,
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(l.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := l.statePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, l.statePath)
}
