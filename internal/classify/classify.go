// Package classify decides whether a fetched post should be relayed and
// into which destination topic. The decision is a pure function of the
// post text and the rules of the source it came from.
package classify

import "strings"

// Strategy selects how a source maps post text to a topic.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyBuySell  Strategy = "buy_sell"
	StrategyKeywords Strategy = "keywords"
)

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyNone, StrategyBuySell, StrategyKeywords:
		return true
	}
	return false
}

// Topic is a destination bucket in the delivery supergroup.
type Topic struct {
	ID       string // catalog key, e.g. "prodam"
	ThreadID int64  // forum topic id in the destination chat
	Name     string
	Emoji    string
}

// Catalog maps topic ids to topics.
type Catalog map[string]Topic

// Rules is the classification slice of a source configuration.
type Rules struct {
	AllPosts           bool
	Strategy           Strategy
	TargetTopic        string
	Keywords           []string
	ExcludeKeywords    []string
	RequireDateOrPrice bool
}

// Fixed topic ids the buy_sell strategy resolves to.
const (
	TopicGiveaway = "otdam"
	TopicBuy      = "kuplyu"
	TopicSell     = "prodam"
)

// buy_sell keyword families. Order matters: the first family that matches
// wins, so a post mentioning both "отдам" and "продам" lands in otdam.
var (
	giveawayWords = []string{"отдам", "даром", "бесплатно"}
	buyWords      = []string{"куплю", "ищу", "нужен", "приобрету"}
	sellWords     = []string{"продам", "продаю", "реализую", "цена"}
)

var dateWords = []string{
	"сегодня", "завтра", "вчера",
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

var priceWords = []string{"руб", "₽", "р.", "цена", "стоимость"}

// Decide maps text to a destination topic id. ok is false when the post is
// rejected: stop-word hit, missing date/price marker, or no strategy match.
// Resolving the returned id against the topic catalog is the caller's job.
func Decide(text string, rules Rules, adKeywords []string) (string, bool) {
	lower := strings.ToLower(text)

	if containsAny(lower, adKeywords) {
		return "", false
	}
	if containsAny(lower, rules.ExcludeKeywords) {
		return "", false
	}

	if rules.RequireDateOrPrice && !containsAny(lower, dateWords) && !containsAny(lower, priceWords) {
		return "", false
	}

	if rules.AllPosts {
		return rules.TargetTopic, true
	}

	// A post with no text carries nothing to match against.
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	switch rules.Strategy {
	case StrategyBuySell:
		switch {
		case containsAny(lower, giveawayWords):
			return TopicGiveaway, true
		case containsAny(lower, buyWords):
			return TopicBuy, true
		case containsAny(lower, sellWords):
			return TopicSell, true
		}
		return "", false
	case StrategyKeywords:
		if containsAny(lower, rules.Keywords) {
			return rules.TargetTopic, true
		}
		return "", false
	}

	return "", false
}

// containsAny reports whether lower contains any of the keywords,
// case-insensitively. lower must already be lowercased.
func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
