package llm

// Conversation is an ordered sequence of turns. The system turn, when present,
// is always first and is never part of what a user is shown.
//
// A Conversation is not safe for concurrent use; the session that owns it
// serializes access.
type Conversation struct {
	turns []Turn
}

// NewConversation creates a conversation seeded with systemPrompt. An empty
// prompt creates an empty conversation.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.turns = append(c.turns, newTurn(RoleSystem, systemPrompt, nil))
	}
	return c
}

// Append adds a turn linked to the current last turn and returns it.
// System turns may only be added through NewConversation.
func (c *Conversation) Append(role Role, content string) Turn {
	if role == RoleSystem {
		panic("llm: system turn must be the first turn of a conversation")
	}

	var parent *Turn
	if n := len(c.turns); n > 0 {
		parent = &c.turns[n-1]
	}

	t := newTurn(role, content, parent)
	c.turns = append(c.turns, t)
	return t
}

// Turns returns a copy of every turn, system turn included.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Visible returns the turns a user may see, which is every turn except the
// system turn.
func (c *Conversation) Visible() []Turn {
	out := make([]Turn, 0, len(c.turns))
	for _, t := range c.turns {
		if t.Role == RoleSystem {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SystemPrompt returns the content of the system turn, or "".
func (c *Conversation) SystemPrompt() string {
	if len(c.turns) > 0 && c.turns[0].Role == RoleSystem {
		return c.turns[0].Content
	}
	return ""
}

// Last returns the most recent turn.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// LastOf returns the most recent turn with the given role.
func (c *Conversation) LastOf(role Role) (Turn, bool) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == role {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}

// Len returns the number of turns, system turn included.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Truncate drops every turn after the first n. It is used to roll back a turn
// that never got an answer.
func (c *Conversation) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(c.turns) {
		c.turns = c.turns[:n]
	}
}
