package llm

import (
	"testing"
)

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"key": "value", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestParseJSONResponseWithCodeFence(t *testing.T) {
	text := "```json\n{\"key\": \"value\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONResponseWithSurroundingProse(t *testing.T) {
	text := "Here is the article you asked for:\n{\"title\": \"Flores de temporada\"}\nLet me know if you need more."
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["title"] != "Flores de temporada" {
		t.Errorf("expected recovered title, got %v", result["title"])
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	result := ParseJSONResponse("not json at all")
	if result != nil {
		t.Error("expected nil for invalid JSON")
	}
}

func TestParseJSONResponseEmpty(t *testing.T) {
	result := ParseJSONResponse("")
	if result != nil {
		t.Error("expected nil for empty string")
	}
}

func TestParseJSONArrayPlain(t *testing.T) {
	result := ParseJSONArray(`[{"topic": "a"}, {"topic": "b"}]`)
	if len(result) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(result))
	}
}

func TestParseJSONArrayWithProse(t *testing.T) {
	text := "Sure!\n```\n[1, 2, 3]\n```"
	result := ParseJSONArray(text)
	if len(result) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(result))
	}
}

func TestParseJSONArrayInvalid(t *testing.T) {
	if ParseJSONArray("{\"not\": \"an array\"}") != nil {
		t.Error("expected nil for non-array JSON")
	}
}
