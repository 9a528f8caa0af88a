package strategy

import "TrendAdvisor/internal/model"

// Badge is how a classification is presented.
type Badge struct {
	Label string
	Style string
	Emoji string
}

// Badges maps each classification to its presentation.
var Badges = map[model.Classification]Badge{
	model.StrongMatch:  {Label: "STRONG MATCH", Style: "emerald", Emoji: "🟢"},
	model.PartialMatch: {Label: "PARTIAL MATCH", Style: "yellow", Emoji: "🟡"},
	model.NoMatch:      {Label: "NO MATCH", Style: "red", Emoji: "🔴"},
}

// BandStyles maps a distance band to its presentation.
var BandStyles = map[model.Band]Badge{
	model.BandClose:  {Label: "close", Style: "emerald", Emoji: "🎯"},
	model.BandMedium: {Label: "medium", Style: "yellow", Emoji: "📍"},
	model.BandFar:    {Label: "far", Style: "slate", Emoji: "·"},
}

// BadgeFor returns the badge for c, falling back to NO MATCH.
func BadgeFor(c model.Classification) Badge {
	if b, ok := Badges[c]; ok {
		return b
	}
	return Badges[model.NoMatch]
}

// BandBadge returns the badge for b, falling back to far.
func BandBadge(b model.Band) Badge {
	if s, ok := BandStyles[b]; ok {
		return s
	}
	return BandStyles[model.BandFar]
}
