package dialogue

import (
	"context"
	"strings"
	"time"

	"github.com/auraloop/aura-core/core/generation"
	"github.com/auraloop/aura-core/internal/resilience"
)

// DefaultGenerationTimeout bounds one whole pass over the reply provider
// chain. Zero disables the deadline.
const DefaultGenerationTimeout = 20 * time.Second

// replyGeneration walks the ordered provider chain for each turn and decides
// what the assistant says. Provider exhaustion is not an error here: the
// facade falls back to a canned empathetic reply in the detected input
// language, so the turn always produces something to say. It returns an error
// only when its context is cancelled or the per-call deadline expires.
type replyGeneration struct {
	chain        *resilience.Chain[ReplyGenerator]
	instructions string
	maxTokens    int
	timeout      time.Duration
}

func newReplyGeneration() *replyGeneration {
	return &replyGeneration{
		chain:     resilience.NewChain[ReplyGenerator](),
		maxTokens: generation.DefaultMaxOutputTokens,
		timeout:   DefaultGenerationTimeout,
	}
}

func (g *replyGeneration) register(name string, client ReplyGenerator) {
	if g == nil || client == nil {
		return
	}
	g.chain.Register(name, client)
}

func (g *replyGeneration) isConfigured() bool {
	return g != nil && g.chain.Len() > 0
}

// generate produces the assistant reply for prompt. The returned language is
// the detected input language; callers use it for the apologetic entry when
// generate errors out.
func (g *replyGeneration) generate(ctx context.Context, prompt string, history []generation.Turn) (string, Language, error) {
	language := DetectLanguage(prompt)

	if !g.isConfigured() {
		return cannedReply(language), language, nil
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	replyOptions := []generation.Option{
		generation.WithInstructions(g.instructions),
		generation.WithLanguage(language.Name()),
		generation.WithTurns(history...),
		generation.WithMaxOutputTokens(g.maxTokens),
	}

	reply, provider, err := resilience.Execute(ctx, g.chain,
		func(ctx context.Context, client ReplyGenerator) (string, error) {
			reply, err := client.Reply(ctx, prompt, replyOptions...)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(reply) == "" {
				return "", generation.ErrEmptyReply
			}
			return reply, nil
		})
	if err != nil {
		if ctx.Err() != nil {
			return "", language, err
		}

		logger.Warn("all reply providers failed, using canned reply",
			"language", string(language), "error", err)
		return cannedReply(language), language, nil
	}

	logger.Debug("reply generated", "provider", provider, "language", string(language))
	return reply, language, nil
}
