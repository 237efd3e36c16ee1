// Package parser converts command strings into Command structs.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/nathoo/ifcore/types"
)

var directionExpansions = map[string]string{
	"n":    "north",
	"s":    "south",
	"e":    "east",
	"w":    "west",
	"ne":   "northeast",
	"nw":   "northwest",
	"se":   "southeast",
	"sw":   "southwest",
	"up":   "up",
	"down": "down",
	"u":    "up",
	"d":    "down",
}

// Full direction names that are standalone shortcuts for "go <dir>".
var directionNames = map[string]bool{
	"north": true, "south": true, "east": true, "west": true,
	"northeast": true, "northwest": true, "southeast": true, "southwest": true,
	"up": true, "down": true,
}

var verbAliases = map[string]string{
	// Look / Examine
	"l":        "look",
	"x":        "examine",
	"inspect":  "examine",
	"check":    "examine",
	"study":    "examine",
	"observe":  "examine",
	"describe": "examine",
	"search":   "examine",

	// Movement
	"walk":    "go",
	"run":     "go",
	"move":    "go",
	"head":    "go",
	"proceed": "go",
	"enter":   "go",
	"travel":  "go",

	// Take / Get
	"get":   "take",
	"grab":  "take",
	"hold":  "take",
	"carry": "take",

	// Put / Drop
	"place":   "put",
	"insert":  "put",
	"discard": "drop",

	// Open / Close
	"shut": "close",

	// Cooking
	"slice": "cut",
	"chop":  "cut",
	"dice":  "cut",
	"bake":  "cook",
	"boil":  "cook",
	"fry":   "cook",
	"stir":  "mix",
	"blend": "mix",

	// Eat / Drink
	"consume": "eat",
	"devour":  "eat",
	"sip":     "drink",
	"swallow": "drink",

	// Miscellaneous
	"inv":     "inventory",
	"i":       "inventory",
	"z":       "wait",
	"empty":   "pour",
	"ignite":  "light",
	"douse":   "extinguish",
	"snuff":   "extinguish",
}

var prepositions = map[string]bool{
	"on": true, "at": true, "to": true,
	"with": true, "in": true, "from": true,
	"into": true, "onto": true, "inside": true,
}

// prepAliases folds variant prepositions onto the canonical one.
var prepAliases = map[string]string{
	"into":   "in",
	"inside": "in",
	"onto":   "on",
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true,
}

var fold = cases.Fold()

// Parse converts a raw command string into a Command. Input that is empty or
// contains characters outside words and simple punctuation yields the zero
// Command, which the resolver reports as malformed.
func Parse(input string) types.Command {
	input = strings.TrimSpace(input)
	input = strings.TrimRight(input, ".!?")
	if input == "" || !wellFormed(input) {
		return types.Command{}
	}

	words := strings.Fields(fold.String(input))

	// Direction shortcut: bare "n", "south", etc. → go <direction>
	if len(words) == 1 {
		if dir, ok := directionExpansions[words[0]]; ok {
			return types.Command{Verb: "go", Object: dir}
		}
		if directionNames[words[0]] {
			return types.Command{Verb: "go", Object: words[0]}
		}
	}

	// Handle multi-word verb phrases before general parsing.
	words = expandMultiWordVerbs(words)

	// Apply verb aliases.
	if alias, ok := verbAliases[words[0]]; ok {
		words[0] = alias
	}

	verb := words[0]
	rest := stripArticles(words[1:])

	// "go n" uses the same shortcuts as a bare direction.
	if verb == "go" && len(rest) == 1 {
		if dir, ok := directionExpansions[rest[0]]; ok {
			rest[0] = dir
		}
	}

	// Use the first preposition as a delimiter between object and target.
	object, prep, target := splitOnPreposition(rest)

	return types.Command{
		Verb:   verb,
		Object: object,
		Prep:   prep,
		Target: target,
	}
}

// wellFormed rejects input with characters no command can contain.
func wellFormed(input string) bool {
	for _, r := range input {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		case r == '-' || r == '_' || r == '\'':
		default:
			return false
		}
	}
	return true
}

// expandMultiWordVerbs handles "look at", "pick up", "talk to" etc.
func expandMultiWordVerbs(words []string) []string {
	if len(words) < 2 {
		return words
	}

	switch words[0] {
	case "look":
		if words[1] == "at" || words[1] == "in" || words[1] == "under" {
			return append([]string{"examine"}, words[2:]...)
		}
	case "pick":
		if words[1] == "up" {
			return append([]string{"take"}, words[2:]...)
		}
	case "put":
		if words[1] == "down" {
			return append([]string{"drop"}, words[2:]...)
		}
		if words[1] == "out" {
			return append([]string{"extinguish"}, words[2:]...)
		}
	case "turn", "switch":
		if words[1] == "on" {
			return append([]string{"activate"}, words[2:]...)
		}
		if words[1] == "off" {
			return append([]string{"deactivate"}, words[2:]...)
		}
	}

	return words
}

// stripArticles removes articles ("the", "a", "an") from the word list.
func stripArticles(words []string) []string {
	result := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			result = append(result, w)
		}
	}
	return result
}

// splitOnPreposition splits words on the first preposition.
// Words before the preposition become the object, words after become the target.
// A leading preposition ("go to pantry") is skipped rather than splitting.
// If no preposition is found, all words become the object.
func splitOnPreposition(words []string) (object, prep, target string) {
	if len(words) > 1 && (words[0] == "to" || words[0] == "into") {
		words = words[1:]
	}
	for i, w := range words {
		if prepositions[w] {
			prep = w
			if alias, ok := prepAliases[w]; ok {
				prep = alias
			}
			object = strings.Join(words[:i], " ")
			target = strings.Join(words[i+1:], " ")
			return object, prep, target
		}
	}
	return strings.Join(words, " "), "", ""
}
