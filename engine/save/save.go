// Package save implements JSON serialization and deserialization of game state.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/ifcore/engine"
	"github.com/nathoo/ifcore/types"
)

// FormatVersion is written to every save file.
const FormatVersion = "1"

// SaveData is the JSON-serializable save format. The world is stored as its
// full fact list in pred(a,b) form.
type SaveData struct {
	Version    string   `json:"version"`
	Game       string   `json:"game"`
	Turn       int      `json:"turn"`
	Facts      []string `json:"facts"`
	CommandLog []string `json:"command_log"`
}

// Save serializes the engine's state to JSON bytes.
func Save(e *engine.Engine) ([]byte, error) {
	facts := e.Facts()
	data := SaveData{
		Version:    FormatVersion,
		Game:       e.Defs.Game.Title,
		Turn:       e.Turn,
		Facts:      make([]string, len(facts)),
		CommandLog: append([]string{}, e.CommandLog...),
	}
	for i, f := range facts {
		data.Facts[i] = f.String()
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version != FormatVersion {
		return nil, fmt.Errorf("save: unsupported version %q", sd.Version)
	}
	if sd.CommandLog == nil {
		sd.CommandLog = []string{}
	}
	return &sd, nil
}

// Apply replaces the engine's state with the saved one. The facts are
// checked against the game's schema; on error the engine is unchanged.
func Apply(e *engine.Engine, sd *SaveData) error {
	if sd.Game != e.Defs.Game.Title {
		return fmt.Errorf("save: file is for %q, not %q", sd.Game, e.Defs.Game.Title)
	}
	facts := make([]types.Fact, 0, len(sd.Facts))
	for _, s := range sd.Facts {
		f, err := types.ParseFact(s)
		if err != nil {
			return fmt.Errorf("save: %w", err)
		}
		facts = append(facts, f)
	}
	if err := e.Restore(facts); err != nil {
		return err
	}
	e.Turn = sd.Turn
	e.CommandLog = append([]string{}, sd.CommandLog...)
	return nil
}
