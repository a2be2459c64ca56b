package dialogue

import (
	"math/rand/v2"
	"unicode"
)

// Language identifies which reply-language path a turn follows. Detection is
// deliberately coarse: the companion only ships canned-reply tables and
// voices for English and Chinese, so everything non-CJK collapses to English.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// cjkThreshold is the fraction of Han runes among non-space runes above which
// text counts as Chinese. Mixed input like "打电话 to mom" stays below it.
const cjkThreshold = 0.30

// DetectLanguage classifies text by the share of Han runes it contains.
func DetectLanguage(text string) Language {
	total := 0
	han := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}

	if total > 0 && float64(han)/float64(total) > cjkThreshold {
		return LanguageChinese
	}
	return LanguageEnglish
}

// Name returns the language name used when instructing a provider which
// language to answer in.
func (l Language) Name() string {
	if l == LanguageChinese {
		return "Chinese"
	}
	return "English"
}

// cannedReplies are the deterministic last resort when every generation
// provider has failed. They keep the turn alive with something warm rather
// than surfacing an error into the conversation.
var cannedReplies = map[Language][]string{
	LanguageEnglish: {
		"I hear you.",
		"That sounds like a lot to carry.",
		"I'm here with you. Tell me more when you're ready.",
		"Mm. Thank you for telling me that.",
		"Take your time, I'm listening.",
	},
	LanguageChinese: {
		"我在听。",
		"听起来真不容易。",
		"我在这里陪着你，想说的时候慢慢说。",
		"嗯，谢谢你愿意告诉我。",
		"不着急，我听着呢。",
	},
}

// apologeticReplies fill the assistant entry when a turn errors out entirely,
// for example when the generation deadline expires.
var apologeticReplies = map[Language][]string{
	LanguageEnglish: {
		"Sorry, I lost my train of thought. Could you say that again?",
		"Sorry, something went wrong on my end just now.",
	},
	LanguageChinese: {
		"抱歉，我刚才走神了，能再说一遍吗？",
		"抱歉，我这边刚刚出了点问题。",
	},
}

func cannedReply(language Language) string {
	return pickReply(cannedReplies, language)
}

func apologeticReply(language Language) string {
	return pickReply(apologeticReplies, language)
}

func pickReply(table map[Language][]string, language Language) string {
	replies, ok := table[language]
	if !ok || len(replies) == 0 {
		replies = table[LanguageEnglish]
	}
	return replies[rand.IntN(len(replies))]
}
