package voiceclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lkrilov/voicelive/core/genlive"
	"go.opentelemetry.io/otel/attribute"
)

const navigateToolName = "navigate"

type navigateArgs struct {
	Page string `json:"page" jsonschema:"title=Page,description=Path of the page to open"`
}

func navigateToolDeclaration() genlive.ToolDeclaration {
	return genlive.ToolDeclaration{
		Name:        navigateToolName,
		Description: "Navigate the user interface to the given page path",
		Parameters:  navigateArgs{},
	}
}

// ensureNavigateTool guarantees the declared capability set always carries
// navigate, without duplicating a caller-provided declaration.
func ensureNavigateTool(tools []genlive.ToolDeclaration) []genlive.ToolDeclaration {
	for _, tool := range tools {
		if tool.Name == navigateToolName {
			return tools
		}
	}
	return append(tools, navigateToolDeclaration())
}

// handleToolCalls interprets a batch of function calls from the model.
// Only navigate is a declared capability; anything else is logged and
// ignored. Calls are handled one at a time, but the navigation side effect
// itself is not awaited, so a second call can arrive while the UI is still
// moving.
func (c *Client) handleToolCalls(calls []genlive.FunctionCall) {
	_, span := tracer.Start(context.Background(), "dispatch tool calls")
	defer span.End()
	span.SetAttributes(attribute.Int("tool_calls.count", len(calls)))

	c.mu.Lock()
	transport := c.transport
	navigator := c.navigator
	c.mu.Unlock()

	for _, call := range calls {
		switch call.Name {
		case navigateToolName:
			var args navigateArgs
			if err := json.Unmarshal(call.Args, &args); err != nil {
				logger.Warn("Dropping navigate call with malformed arguments",
					"id", call.ID, "error", err)
				continue
			}

			if navigator != nil {
				go navigator(args.Page)
			}

			c.transcript.Append(RoleSystem, fmt.Sprintf("Navigated to %s", args.Page))
			c.publishTranscript()

			if transport == nil {
				continue
			}
			if err := transport.SendToolResponse(genlive.FunctionResponse{
				Name:     call.Name,
				ID:       call.ID,
				Response: map[string]any{"status": "ok"},
			}); err != nil {
				logger.Warn("Failed to send tool response", "id", call.ID, "error", err)
			}

		default:
			logger.Warn("Ignoring unrecognized tool call", "name", call.Name, "id", call.ID)
		}
	}
}
