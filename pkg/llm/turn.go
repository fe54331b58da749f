package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn represents a single message in a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Hash is the content-addressed identifier (SHA-256, hex-encoded) of
	// this turn and, through ParentHash, of every turn before it.
	Hash string `json:"hash"`

	// ParentHash links to the previous turn. Nil for the first turn.
	ParentHash *string `json:"parent_hash,omitempty"`
}

type hashInput struct {
	Parent  string `json:"parent,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func newTurn(role Role, content string, parent *Turn) Turn {
	t := Turn{Role: role, Content: content}
	if parent != nil {
		h := parent.Hash
		t.ParentHash = &h
	}
	t.Hash = t.computeHash()
	return t
}

func (t *Turn) computeHash() string {
	i := hashInput{Role: t.Role, Content: t.Content}
	if t.ParentHash != nil {
		i.Parent = *t.ParentHash
	}

	// Canonical JSON encoding for deterministic hashing
	data, err := json.Marshal(i)
	if err != nil {
		panic("failed to marshal hash input: " + err.Error())
	}

	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
