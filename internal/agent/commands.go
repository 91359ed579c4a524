package agent

import (
	"regexp"
	"strings"
)

// greetingRe matches bare greetings that deserve an instant reply rather
// than a full pipeline run.
var greetingRe = regexp.MustCompile(`^(hi|hiya|hey|hello|howdy|good (morning|afternoon|evening)|yo)[.! ]*$`)

// thanksRe matches a bare thank-you, answered without an LLM call.
var thanksRe = regexp.MustCompile(`^(thanks|thank you|thx|ty)( so much| a lot)?[.! ]*$`)

const helpText = `I can help with:
- Balance point and compressor lockout ("What's my balance point?")
- Heating costs and setback savings ("What does a 5°F night setback save?")
- Performance checks ("Is my system running efficiently?")
- Heat pump vs aux heat comparisons ("When is aux cheaper than the heat pump?")
- Refrigerant charging targets ("What superheat should I see today?")

Commands: /help, /models, /clear`

// intercept handles slash commands and greetings before the pipeline
// runs. Returns nil when the question needs full processing.
func (o *Orchestrator) intercept(question string) *Answer {
	q := strings.ToLower(strings.TrimSpace(question))

	switch {
	case q == "/help" || q == "help":
		return &Answer{Success: true, Message: helpText}

	case q == "/models":
		var b strings.Builder
		b.WriteString("Default model: " + o.models.DefaultModel)
		if len(o.models.FallbackModels) > 0 {
			b.WriteString("\nFallbacks: " + strings.Join(o.models.FallbackModels, ", "))
		}
		return &Answer{Success: true, Message: b.String()}

	case q == "/clear":
		msg := "Conversation history cleared."
		if o.memory != nil {
			if err := o.memory.Clear(); err != nil {
				o.log.Warn("clear history failed", "error", err)
				msg = "Could not clear history; see the server log."
			}
		}
		return &Answer{Success: true, Message: msg}

	case greetingRe.MatchString(q):
		return &Answer{Success: true, Message: "Hi! Ask me about your heat pump: balance point, costs, setbacks, or performance. Try /help for examples."}

	case thanksRe.MatchString(q):
		return &Answer{Success: true, Message: "You're welcome! Anything else about your system?"}
	}
	return nil
}
