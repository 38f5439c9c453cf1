// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"testing"
)

// =============================================================================
// TURN TESTS
// =============================================================================

func TestNewUserTurn(t *testing.T) {
	turn := NewUserTurn("Tỏ tình hay im lặng?")

	if !strings.HasPrefix(turn.ID, "turn_") {
		t.Errorf("ID = %q, want prefix turn_", turn.ID)
	}
	if turn.Role != RoleUser {
		t.Errorf("Role = %q, want user", turn.Role)
	}
	if turn.Streaming {
		t.Error("user turn should not be streaming")
	}
	if turn.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestNewTurn_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewUserTurn("x").ID
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestTurn_ApplyInOrder(t *testing.T) {
	turn := NewAssistantTurn()

	turn.Apply(TextFragment("Hello"))
	turn.Apply(TextFragment(" world"))

	if turn.Content != "Hello world" {
		t.Errorf("Content = %q, want %q", turn.Content, "Hello world")
	}
	if turn.Seq != 2 {
		t.Errorf("Seq = %d, want 2", turn.Seq)
	}
}

func TestTurn_ApplyDispatchesByKind(t *testing.T) {
	turn := NewAssistantTurn()

	turn.Apply(ReasoningFragment("Ta đang phân tích"))
	turn.Apply(TextFragment("**Lệnh:** LÀM NGAY."))

	if turn.Reasoning != "Ta đang phân tích" {
		t.Errorf("Reasoning = %q", turn.Reasoning)
	}
	if turn.Content != "**Lệnh:** LÀM NGAY." {
		t.Errorf("Content = %q", turn.Content)
	}
}

func TestTurn_ApplyAfterFinalize(t *testing.T) {
	turn := NewAssistantTurn()
	turn.Apply(TextFragment("partial"))
	turn.Finalize()

	if turn.Apply(TextFragment(" more")) {
		t.Error("Apply on a finalized turn should report false")
	}
	if turn.Content != "partial" {
		t.Errorf("Content = %q, want unchanged", turn.Content)
	}
}

func TestTurn_WireRoundTrip(t *testing.T) {
	original := NewUserTurn("Đầu tư vào crypto hay cổ phiếu?")

	w := original.Wire()

	if w.Role != original.Role || w.Content != original.Content {
		t.Errorf("Wire() = {%s %q}, want {%s %q}", w.Role, w.Content, original.Role, original.Content)
	}
}

func TestTurn_Preview(t *testing.T) {
	turn := NewUserTurn("Ta nên học   lập trình\nhay thiết kế?")

	got := turn.Preview(12)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Preview = %q, want truncated", got)
	}
	if strings.Contains(got, "\n") {
		t.Errorf("Preview = %q, should be single line", got)
	}
}

// =============================================================================
// FRAGMENT TESTS
// =============================================================================

func TestFragment_EncodeDecode(t *testing.T) {
	data, err := ReasoningFragment("suy nghĩ").Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(string(data), `"kind":"reasoning"`) {
		t.Errorf("encoded = %s, want reasoning kind", data)
	}

	f, err := DecodeFragment(data)
	if err != nil {
		t.Fatalf("DecodeFragment: %v", err)
	}
	if f.Kind != FragmentReasoning || f.Payload != "suy nghĩ" {
		t.Errorf("decoded = %+v", f)
	}
}

func TestDecodeFragment_UnknownKind(t *testing.T) {
	if _, err := DecodeFragment([]byte(`{"kind":"image","payload":"x"}`)); err == nil {
		t.Error("expected error for unknown kind")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_LastIndex(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserTurn("U1"))
	conv.Append(NewTurn(RoleAssistant, "A1"))
	conv.Append(NewUserTurn("U2"))

	if got := conv.LastIndex(RoleAssistant); got != 1 {
		t.Errorf("LastIndex(assistant) = %d, want 1", got)
	}
	if got := conv.LastIndexBefore(RoleUser, 2); got != 0 {
		t.Errorf("LastIndexBefore(user, 2) = %d, want 0", got)
	}
	if got := NewConversation().LastIndex(RoleUser); got != -1 {
		t.Errorf("LastIndex on empty = %d, want -1", got)
	}
}

func TestConversation_Truncate(t *testing.T) {
	conv := NewConversation()
	for _, c := range []string{"U1", "A1", "U2", "A2"} {
		conv.Append(NewUserTurn(c))
	}

	conv.Truncate(3)
	if conv.Len() != 3 {
		t.Fatalf("Len = %d, want 3", conv.Len())
	}
	if conv.At(2).Content != "U2" {
		t.Errorf("last turn = %q, want U2", conv.At(2).Content)
	}

	conv.Truncate(10)
	if conv.Len() != 3 {
		t.Errorf("Truncate beyond length changed Len to %d", conv.Len())
	}
}

func TestConversation_WireSkipsEmpty(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserTurn("hỏi"))
	conv.Append(NewTurn(RoleAssistant, ""))
	conv.Append(NewUserTurn("hỏi lại"))

	wire := conv.Wire()
	if len(wire) != 2 {
		t.Fatalf("len(Wire()) = %d, want 2", len(wire))
	}
	if wire[1].Content != "hỏi lại" {
		t.Errorf("wire[1] = %+v", wire[1])
	}
}

func TestConversation_WireSkipsFailureNotice(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserTurn("hỏi"))
	conv.Append(NewErrorTurn("Lỗi kết nối"))

	wire := conv.Wire()
	if len(wire) != 1 || wire[0].Role != RoleUser {
		t.Errorf("Wire() = %+v, want only the user turn", wire)
	}
}

func TestConversation_WireKeepsEveryTurn(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 130; i++ {
		conv.Append(NewUserTurn(fmt.Sprintf("U%d", i)))
		conv.Append(NewTurn(RoleAssistant, fmt.Sprintf("A%d", i)))
	}

	wire := conv.Wire()
	if len(wire) != 260 {
		t.Fatalf("len(Wire()) = %d, want 260", len(wire))
	}
	if wire[0].Role != RoleUser || wire[0].Content != "U0" {
		t.Errorf("Wire()[0] = %+v, want the first user turn", wire[0])
	}
	if last := wire[len(wire)-1]; last.Content != "A129" {
		t.Errorf("last wire turn = %q, want A129", last.Content)
	}
}

func TestConversation_Title(t *testing.T) {
	conv := NewConversation()
	if got := conv.Title(20); got != "" {
		t.Errorf("Title() on empty conversation = %q, want empty", got)
	}

	conv.Append(NewUserTurn("Có nên\nbỏ việc để đi du lịch vòng quanh thế giới không?"))
	conv.Append(NewUserTurn("second"))

	got := conv.Title(20)
	if !strings.HasPrefix(got, "Có nên bỏ việc") {
		t.Errorf("Title() = %q, want the first user turn on one line", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Title() = %q, want truncation", got)
	}
}

func TestConversation_TurnsIsCopy(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserTurn("original"))

	turns := conv.Turns()
	turns[0].Content = "changed"

	if conv.At(0).Content != "original" {
		t.Error("Turns() should return a copy")
	}
}
