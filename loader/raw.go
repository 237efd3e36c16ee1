package loader

// rawGame is the authored game record before compilation. Both the YAML
// and the Lua surfaces produce it.
type rawGame struct {
	Game       rawInfo        `yaml:"game"`
	Types      []rawType      `yaml:"types"`
	Predicates []rawPredicate `yaml:"predicates"`
	Entities   []rawEntity    `yaml:"entities"`
	Actions    []rawAction    `yaml:"actions"`
	Events     []rawEvent     `yaml:"events"`
	Init       []string       `yaml:"init"`
	Goal       []string       `yaml:"goal"`
	Solution   []string       `yaml:"solution"`
}

type rawInfo struct {
	Title string `yaml:"title"`
	Intro string `yaml:"intro"`
}

type rawType struct {
	Name  string `yaml:"name"`
	Super string `yaml:"super"`
}

type rawParam struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Source string `yaml:"source"`
}

type rawPredicate struct {
	Name    string     `yaml:"name"`
	Params  []rawParam `yaml:"params"`
	Mutable bool       `yaml:"mutable"`
}

type rawEntity struct {
	ID          string   `yaml:"id"`
	Type        string   `yaml:"type"`
	Name        string   `yaml:"name"`
	Adjs        []string `yaml:"adjs"`
	Description string   `yaml:"description"`
}

// rawAction holds condition and effect trees as s-expression text.
type rawAction struct {
	ID       string     `yaml:"id"`
	Verbs    []string   `yaml:"verbs"`
	Params   []rawParam `yaml:"params"`
	Pre      string     `yaml:"pre"`
	Effect   string     `yaml:"effect"`
	Feedback string     `yaml:"feedback"`
}

type rawEvent struct {
	ID       string     `yaml:"id"`
	Params   []rawParam `yaml:"params"`
	Trigger  string     `yaml:"trigger"`
	Pre      string     `yaml:"pre"`
	Effect   string     `yaml:"effect"`
	Feedback string     `yaml:"feedback"`
}
