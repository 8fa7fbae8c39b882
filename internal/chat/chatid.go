package chat

import "fmt"

// ChatID derives the canonical id for the two-party chat between a and
// b. The pair is unordered: the numerically smaller user id is always
// rendered first, so both participants compute the same value and it is
// stable across restarts. ChatID(n, n) is the user's self-chat.
func ChatID(a, b int) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}
