// Package persona holds the identity the assistant answers as, and the chat
// loop that keeps the model in character.
package persona

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"persona-rag/internal/extract"
	"persona-rag/internal/llm"
)

// Completer is the generation collaborator the chat loop talks to.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (llm.Message, string, error)
}

// Notifier receives the events the tools record.
type Notifier interface {
	Push(ctx context.Context, text string) error
}

// maxToolRounds bounds the tool-call loop so a misbehaving model cannot spin
// forever.
const maxToolRounds = 8

// Profile is the personal knowledge the persona is built from.
type Profile struct {
	Name     string
	Summary  string
	LinkedIn string
}

// LoadProfile reads the summary text file and extracts the LinkedIn PDF.
func LoadProfile(name, summaryPath, linkedinPath string) (Profile, error) {
	summary, err := os.ReadFile(summaryPath)
	if err != nil {
		return Profile{}, fmt.Errorf("read summary: %w", err)
	}
	linkedin, err := extract.PDFFile(linkedinPath)
	if err != nil {
		return Profile{}, fmt.Errorf("read linkedin profile: %w", err)
	}
	return Profile{Name: name, Summary: string(summary), LinkedIn: linkedin}, nil
}

// Handler executes one tool operation with its decoded arguments.
type Handler func(ctx context.Context, args map[string]any) map[string]any

// tool pairs a function declaration with its handler.
type tool struct {
	def    llm.ToolFunction
	handle Handler
}

// Persona is the request-handler context replacing ambient global state: one
// value constructed at startup carrying the profile, the generation client
// and the closed set of tools the model may call. Tool dispatch is a table
// lookup over names fixed at construction, never dynamic symbol resolution.
type Persona struct {
	profile  Profile
	llm      Completer
	notifier Notifier
	tools    map[string]tool
	toolDefs []llm.Tool
}

// New builds a Persona and validates its tool table.
func New(profile Profile, completer Completer, notifier Notifier) (*Persona, error) {
	p := &Persona{
		profile:  profile,
		llm:      completer,
		notifier: notifier,
		tools:    map[string]tool{},
	}
	if err := p.register(recordUserDetailsTool(notifier)); err != nil {
		return nil, err
	}
	if err := p.register(recordUnknownQuestionTool(notifier)); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persona) register(t tool) error {
	if t.def.Name == "" {
		return fmt.Errorf("tool with empty name")
	}
	if _, exists := p.tools[t.def.Name]; exists {
		return fmt.Errorf("duplicate tool %q", t.def.Name)
	}
	p.tools[t.def.Name] = t
	p.toolDefs = append(p.toolDefs, llm.Tool{Type: "function", Function: t.def})
	return nil
}

// Name returns the persona's display name.
func (p *Persona) Name() string { return p.profile.Name }

// SystemPrompt renders the in-character instruction with the summary and
// LinkedIn profile appended.
func (p *Persona) SystemPrompt() string {
	name := p.profile.Name
	prompt := fmt.Sprintf("You are acting as %s. You are answering questions on %s's website, "+
		"particularly questions related to %s's career, background, skills and experience. "+
		"Your responsibility is to represent %s for interactions on the website as faithfully as possible. "+
		"You are given a summary of %s's background and LinkedIn profile which you can use to answer questions. "+
		"Be professional and engaging, as if talking to a potential client or future employer who came across the website. "+
		"If you don't know the answer to any question, use your record_unknown_question tool to record the question that you couldn't answer, "+
		"even if it's about something trivial or unrelated to career. "+
		"If the user is engaging in discussion, try to steer them towards getting in touch via email; "+
		"ask for their email and record it using your record_user_details tool. ",
		name, name, name, name, name)
	prompt += fmt.Sprintf("\n\n## Summary:\n%s\n\n## LinkedIn Profile:\n%s\n\n", p.profile.Summary, p.profile.LinkedIn)
	prompt += fmt.Sprintf("With this context, please chat with the user, always staying in character as %s.", name)
	return prompt
}

// Chat runs one user turn through the model, executing tool calls until the
// model produces a plain answer.
func (p *Persona) Chat(ctx context.Context, message string, history []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: p.SystemPrompt()})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: message})

	for round := 0; round < maxToolRounds; round++ {
		reply, finish, err := p.llm.Complete(ctx, llm.Request{Messages: messages, Tools: p.toolDefs})
		if err != nil {
			return "", err
		}
		if finish != llm.FinishToolCalls {
			return reply.Content, nil
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			result := p.dispatchCall(ctx, call)
			content, err := json.Marshal(result)
			if err != nil {
				return "", fmt.Errorf("marshal tool result: %w", err)
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    string(content),
				ToolCallID: call.ID,
			})
		}
	}
	return "", fmt.Errorf("chat did not settle after %d tool rounds", maxToolRounds)
}

// Dispatch runs a named tool directly, for API endpoints that record events
// without a model in the loop. Unknown names are an error here, unlike model
// calls where they degrade to an empty result.
func (p *Persona) Dispatch(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	t, ok := p.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t.handle(ctx, args), nil
}

func (p *Persona) dispatchCall(ctx context.Context, call llm.ToolCall) map[string]any {
	log.Printf("tool called: %s", call.Function.Name)
	t, ok := p.tools[call.Function.Name]
	if !ok {
		log.Printf("WARN: model requested unknown tool %q", call.Function.Name)
		return map[string]any{}
	}
	args := map[string]any{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			log.Printf("WARN: bad arguments for tool %q: %v", call.Function.Name, err)
			return map[string]any{}
		}
	}
	return t.handle(ctx, args)
}
