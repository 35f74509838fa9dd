package pipeline

// Source kinds flowing through the pipeline.
const (
	KindVK       = "vk"
	KindTelegram = "telegram"
)

// Item is one fetched post or message awaiting dedup check and
// classification. It lives for a single pass through the coordinator.
type Item struct {
	Kind       string // KindVK or KindTelegram
	ItemID     string // provider post/message id
	Collection string // group identifier or chat id the item came from
	Text       string
	SourceLink string // permalink to the original item, may be empty
	AuthorLink string // attribution link, may be empty
}
