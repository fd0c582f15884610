package provider_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dreamtumulus/andun/internal/model/chat"
	"github.com/dreamtumulus/andun/internal/provider"
)

func TestFromLogRoleMapping(t *testing.T) {
	msgLog := []chat.Message{
		{Role: chat.RoleAssistant, Text: "你好"},
		{Role: chat.RoleOfficer, Text: "最近很累"},
		{Role: chat.RoleSystem, Text: "已上传文件: x"},
		{Role: chat.RoleAssistant, Text: "辛苦了"},
	}

	turns := provider.FromLog(msgLog, "想聊聊")
	if len(turns) != 4 {
		t.Fatalf("expected 4 turns (system dropped, new turn appended), got %d", len(turns))
	}
	want := []provider.Turn{
		{Role: "assistant", Text: "你好"},
		{Role: "user", Text: "最近很累"},
		{Role: "assistant", Text: "辛苦了"},
		{Role: "user", Text: "想聊聊"},
	}
	for i, turn := range turns {
		if turn != want[i] {
			t.Fatalf("turn %d: got %+v want %+v", i, turn, want[i])
		}
	}
}

func TestFromLogWithoutNewText(t *testing.T) {
	msgLog := []chat.Message{{Role: chat.RoleOfficer, Text: "hi"}}
	turns := provider.FromLog(msgLog, "")
	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
}

func TestPromptTurn(t *testing.T) {
	turns := provider.PromptTurn("extract")
	if len(turns) != 1 || turns[0].Role != "user" || turns[0].Text != "extract" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := provider.New(context.Background(), provider.Config{Name: "mistral"})
	if err == nil {
		t.Fatal("expected error for unknown provider name")
	}
}

func TestNewMissingCredential(t *testing.T) {
	_, err := provider.New(context.Background(), provider.Config{Name: provider.NameOpenRouter})
	if !errors.Is(err, provider.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}
