package history

import "parley/internal/agent/ports"

// DefaultWindow is the number of trailing messages handed to the model.
const DefaultWindow = 10

// Window computes the bounded context window over a session's history: the
// last n messages, re-anchored when the slice would open with an orphaned
// tool result. A tool result at the head of the slice means its matching
// call lies before the slice start, which would hand the model a result
// with no visible cause; in that case the window re-anchors at the nearest
// preceding user message and takes an n-sized window from there.
//
// When no preceding user message exists the unanchored slice is returned
// as-is, orphan included.
func Window(msgs []ports.Message, n int) []ports.Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}

	start := len(msgs) - n
	if msgs[start].Role != ports.RoleTool {
		return msgs[start:]
	}

	for i := start - 1; i >= 0; i-- {
		if msgs[i].Role == ports.RoleUser {
			end := i + n
			if end > len(msgs) {
				end = len(msgs)
			}
			return msgs[i:end]
		}
	}
	return msgs[start:]
}
