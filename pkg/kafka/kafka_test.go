package kafka

import (
	"testing"
)

func TestEncodeMessages(t *testing.T) {
	msgs, err := EncodeMessages([]Event{
		{Key: "search", Value: map[string]int{"hits": 2}},
		{Key: "answer", Value: "text"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if string(msgs[0].Key) != "search" || string(msgs[0].Value) != `{"hits":2}` {
		t.Errorf("unexpected first message %q=%q", msgs[0].Key, msgs[0].Value)
	}
}

func TestEncodeMessagesRejectsUnencodable(t *testing.T) {
	if _, err := EncodeMessages([]Event{{Key: "x", Value: make(chan int)}}); err == nil {
		t.Error("expected an encoding error")
	}
}

func TestDecodeJSON(t *testing.T) {
	type event struct {
		Type string `json:"type"`
	}
	got, err := DecodeJSON[event]([]byte(`{"type":"search"}`))
	if err != nil || got.Type != "search" {
		t.Errorf("unexpected decode %+v (%v)", got, err)
	}
	if _, err := DecodeJSON[event]([]byte(`{`)); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}
