package persona

import (
	"context"
	"fmt"
	"log"

	"persona-rag/internal/llm"
)

// Tool names exposed to the model.
const (
	ToolRecordUserDetails     = "record_user_details"
	ToolRecordUnknownQuestion = "record_unknown_question"
)

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func recordUserDetailsTool(notifier Notifier) tool {
	return tool{
		def: llm.ToolFunction{
			Name:        ToolRecordUserDetails,
			Description: "Use this tool to record that a user is interested in being in touch and provided an email address",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"email": map[string]any{
						"type":        "string",
						"description": "The email address of this user",
					},
					"name": map[string]any{
						"type":        "string",
						"description": "The user's name, if they provided it",
					},
					"notes": map[string]any{
						"type":        "string",
						"description": "Any additional information about the conversation that's worth recording to give context",
					},
				},
				"required":             []string{"email"},
				"additionalProperties": false,
			},
		},
		handle: func(ctx context.Context, args map[string]any) map[string]any {
			email := stringArg(args, "email", "")
			name := stringArg(args, "name", "Name not provided")
			notes := stringArg(args, "notes", "not provided")
			if err := notifier.Push(ctx, fmt.Sprintf("Recording %s with email %s and notes %s", name, email, notes)); err != nil {
				log.Printf("WARN: push failed: %v", err)
			}
			return map[string]any{"recorded": "ok"}
		},
	}
}

func recordUnknownQuestionTool(notifier Notifier) tool {
	return tool{
		def: llm.ToolFunction{
			Name:        ToolRecordUnknownQuestion,
			Description: "Always use this tool to record any question that couldn't be answered as you didn't know the answer",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{
						"type":        "string",
						"description": "The question that couldn't be answered",
					},
				},
				"required":             []string{"question"},
				"additionalProperties": false,
			},
		},
		handle: func(ctx context.Context, args map[string]any) map[string]any {
			question := stringArg(args, "question", "")
			if err := notifier.Push(ctx, fmt.Sprintf("Recording %s", question)); err != nil {
				log.Printf("WARN: push failed: %v", err)
			}
			return map[string]any{"recorded": "ok"}
		},
	}
}
