package drip

import (
	"fmt"
	"math/rand"
	"strings"
)

// fallbackNicknames is the fixed pool used when nickname generation fails
// and the random-suffix fallback also collides.
var fallbackNicknames = []string{
	"QuietReader", "NightOwl", "CuriousMind", "FirstTimeHere",
	"LongTimeLurker", "CoffeeAndPosts", "Wanderer", "PageTurner",
}

// nicknameTaken does a case-insensitive membership check.
func nicknameTaken(nick string, recent []string) bool {
	for _, r := range recent {
		if strings.EqualFold(nick, r) {
			return true
		}
	}
	return false
}

// fallbackNickname produces a name without provider help: a reader-prefixed
// random number first, then the fixed pool.
func fallbackNickname(recent []string) string {
	for i := 0; i < 3; i++ {
		nick := fmt.Sprintf("reader%d", 100+rand.Intn(9900))
		if !nicknameTaken(nick, recent) {
			return nick
		}
	}
	for _, nick := range fallbackNicknames {
		if !nicknameTaken(nick, recent) {
			return nick
		}
	}
	return fallbackNicknames[rand.Intn(len(fallbackNicknames))]
}
