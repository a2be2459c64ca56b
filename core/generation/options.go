package generation

// DefaultMaxOutputTokens caps replies at a length that stays comfortable to
// listen to when spoken aloud.
const DefaultMaxOutputTokens = 80

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one completed exchange entry handed to the provider as context.
type Turn struct {
	Role    Role
	Content string
}

type Options struct {
	// Instructions steer the provider's register and scope.
	Instructions string
	// Language names the language the reply must be written in, e.g.
	// "English" or "Chinese". Empty leaves the choice to the provider.
	Language string
	// Turns carry the conversation so far, oldest first.
	Turns []Turn

	MaxOutputTokens int
	Temperature     *float64
}

// SystemPrompt combines the instructions with the reply-language directive.
func (o Options) SystemPrompt() string {
	if o.Language == "" {
		return o.Instructions
	}

	directive := "Answer in " + o.Language + "."
	if o.Instructions == "" {
		return directive
	}
	return o.Instructions + "\n\n" + directive
}

type Option func(*Options)

func WithInstructions(instructions string) Option {
	return func(o *Options) {
		o.Instructions = instructions
	}
}

func WithLanguage(language string) Option {
	return func(o *Options) {
		o.Language = language
	}
}

// WithTurns appends conversation history. Repeating this option adds more
// turns.
func WithTurns(turns ...Turn) Option {
	return func(o *Options) {
		o.Turns = append(o.Turns, turns...)
	}
}

func WithMaxOutputTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxOutputTokens = maxTokens
	}
}

func WithTemperature(temperature float64) Option {
	return func(o *Options) {
		o.Temperature = &temperature
	}
}
