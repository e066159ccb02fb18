package llm

import (
	"testing"
)

func TestConvertToOpenAI_ToolCallArgumentsAsString(t *testing.T) {
	messages := []Message{
		{
			Role: "assistant",
			ToolCalls: []ToolCall{{
				ID:        "call_1",
				Name:      "create_task",
				Arguments: map[string]any{"title": "Ship spec"},
			}},
		},
		{Role: "tool", Content: `{"success":true}`, ToolCallID: "call_1"},
	}

	wire := convertToOpenAI(messages)
	if len(wire) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(wire))
	}

	if len(wire[0].ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(wire[0].ToolCalls))
	}
	tc := wire[0].ToolCalls[0]
	if tc.Type != "function" {
		t.Errorf("type = %q", tc.Type)
	}
	if tc.Function.Name != "create_task" {
		t.Errorf("name = %q", tc.Function.Name)
	}
	// Arguments must be a JSON string on this wire format.
	if tc.Function.Arguments != `{"title":"Ship spec"}` {
		t.Errorf("arguments = %q", tc.Function.Arguments)
	}

	if wire[1].ToolCallID != "call_1" {
		t.Errorf("tool_call_id = %q", wire[1].ToolCallID)
	}
}

func TestConvertFromOpenAI_ParsesArguments(t *testing.T) {
	msg := openaiMessage{Role: "assistant"}
	otc := openaiToolCall{ID: "call_9", Type: "function"}
	otc.Function.Name = "log_meal"
	otc.Function.Arguments = `{"name":"lunch","calories":600}`
	msg.ToolCalls = append(msg.ToolCalls, otc)

	result := convertFromOpenAI(msg)
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	tc := result.ToolCalls[0]
	if tc.Name != "log_meal" {
		t.Errorf("name = %q", tc.Name)
	}
	if tc.Arguments["name"] != "lunch" {
		t.Errorf("arguments = %v", tc.Arguments)
	}
}

func TestConvertFromOpenAI_MalformedArgumentsPreserved(t *testing.T) {
	msg := openaiMessage{Role: "assistant"}
	otc := openaiToolCall{ID: "call_1", Type: "function"}
	otc.Function.Name = "create_task"
	otc.Function.Arguments = `{"title": truncated`
	msg.ToolCalls = append(msg.ToolCalls, otc)

	result := convertFromOpenAI(msg)
	if result.ToolCalls[0].Arguments["_raw"] != `{"title": truncated` {
		t.Errorf("malformed arguments should be kept under _raw, got %v", result.ToolCalls[0].Arguments)
	}
}
