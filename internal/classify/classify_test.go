package classify

import "testing"

func buySellRules() Rules {
	return Rules{Strategy: StrategyBuySell}
}

func TestDecide_BuySellFamilies(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantTopic string
		wantOK    bool
	}{
		{"sell with price", "Продам диван, цена 5000 руб", TopicSell, true},
		{"sell verb", "продаю велосипед в хорошем состоянии", TopicSell, true},
		{"buy", "Куплю детскую коляску", TopicBuy, true},
		{"looking for", "Ищу мастера по ремонту", TopicBuy, true},
		{"giveaway", "Отдам котят в добрые руки", TopicGiveaway, true},
		{"free", "бесплатно отдаётся шкаф", TopicGiveaway, true},
		{"no family", "спасибо за внимание", "", false},
		{"empty text", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topic, ok := Decide(tt.text, buySellRules(), nil)
			if ok != tt.wantOK {
				t.Fatalf("Decide(%q) ok = %v, want %v", tt.text, ok, tt.wantOK)
			}
			if topic != tt.wantTopic {
				t.Errorf("Decide(%q) topic = %q, want %q", tt.text, topic, tt.wantTopic)
			}
		})
	}
}

func TestDecide_GiveawayBeatsSell(t *testing.T) {
	// Both families match; the giveaway family is checked first.
	topic, ok := Decide("Отдам даром, или продам за символическую цену", buySellRules(), nil)
	if !ok {
		t.Fatal("expected accept")
	}
	if topic != TopicGiveaway {
		t.Errorf("topic = %q, want %q", topic, TopicGiveaway)
	}
}

func TestDecide_BuyBeatsSell(t *testing.T) {
	topic, ok := Decide("Куплю или продам, пишите в лс", buySellRules(), nil)
	if !ok {
		t.Fatal("expected accept")
	}
	if topic != TopicBuy {
		t.Errorf("topic = %q, want %q", topic, TopicBuy)
	}
}

func TestDecide_AdKeywordRejects(t *testing.T) {
	rules := Rules{AllPosts: true, TargetTopic: "news"}
	if _, ok := Decide("Реклама: скидки всем подписчикам", rules, []string{"реклама"}); ok {
		t.Error("expected ad keyword to reject")
	}
	// Matching is case-insensitive on both sides.
	if _, ok := Decide("РЕКЛАМА по всем вопросам", rules, []string{"Реклама"}); ok {
		t.Error("expected case-insensitive ad keyword to reject")
	}
}

func TestDecide_ExcludeBeatsInclude(t *testing.T) {
	rules := Rules{
		Strategy:        StrategyKeywords,
		TargetTopic:     "events",
		Keywords:        []string{"концерт"},
		ExcludeKeywords: []string{"отмена"},
	}

	if topic, ok := Decide("Концерт в субботу в парке", rules, nil); !ok || topic != "events" {
		t.Fatalf("keyword match: topic = %q ok = %v, want events true", topic, ok)
	}
	if _, ok := Decide("Концерт отменён, отмена мероприятия", rules, nil); ok {
		t.Error("exclude keyword should reject even with a keyword match")
	}
}

func TestDecide_DateOrPriceGate(t *testing.T) {
	rules := Rules{AllPosts: true, TargetTopic: "market", RequireDateOrPrice: true}

	if _, ok := Decide("Просто какой-то текст без маркеров", rules, nil); ok {
		t.Error("expected reject without date or price marker")
	}
	if topic, ok := Decide("Стоимость 300 руб", rules, nil); !ok || topic != "market" {
		t.Errorf("price marker alone should pass: topic = %q ok = %v", topic, ok)
	}
	if topic, ok := Decide("Встречаемся завтра у входа", rules, nil); !ok || topic != "market" {
		t.Errorf("date marker alone should pass: topic = %q ok = %v", topic, ok)
	}
}

func TestDecide_AllPostsSkipsStrategy(t *testing.T) {
	rules := Rules{AllPosts: true, Strategy: StrategyNone, TargetTopic: "flood"}
	topic, ok := Decide("любой текст", rules, nil)
	if !ok || topic != "flood" {
		t.Errorf("all_posts: topic = %q ok = %v, want flood true", topic, ok)
	}
}

func TestDecide_StrategyNoneRejects(t *testing.T) {
	rules := Rules{Strategy: StrategyNone, TargetTopic: "flood"}
	if _, ok := Decide("любой текст", rules, nil); ok {
		t.Error("strategy none without all_posts should reject")
	}
}

func TestDecide_KeywordsNoMatch(t *testing.T) {
	rules := Rules{Strategy: StrategyKeywords, TargetTopic: "events", Keywords: []string{"ярмарка"}}
	if _, ok := Decide("ничего интересного", rules, nil); ok {
		t.Error("expected reject without keyword match")
	}
}

func TestStrategyValid(t *testing.T) {
	for _, s := range []Strategy{StrategyNone, StrategyBuySell, StrategyKeywords} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Strategy("smart").Valid() {
		t.Error("unknown strategy should be invalid")
	}
}
