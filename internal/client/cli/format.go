package cli

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/melvin/internal/client/models"
)

func (a *App) printMessages(msgs []models.Message) {
	for i, m := range msgs {
		a.printMessage(i+1, m)
	}
}

func (a *App) printMessage(n int, m models.Message) {
	who := "You"
	if !m.FromUser() {
		who = "Melvin"
	}
	marker := ""
	if m.HasInsight() {
		marker = fmt.Sprintf("  [insight %d]", n)
	}
	a.say("%3d %s (%s): %s%s", n, who, m.CreatedAt.Format("15:04"), m.Content, marker)
}

// parseID accepts "12" or "#12".
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// pick resolves a 1-based menu choice against n entries.
func pick(s string, n int) (int, bool) {
	i, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || i < 1 || i > n {
		return 0, false
	}
	return i - 1, true
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
