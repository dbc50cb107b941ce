package dispatch

// Static chat content: trigger tables, greeting pools, and the
// banned-term list. Kept as small representative sets; room owners
// extend them to taste.

// autoResponse pairs a substring trigger with candidate replies; one is
// picked at random. First matching trigger wins.
type autoResponse struct {
	trigger string
	replies []string
}

var autoResponses = []autoResponse{
	{"good morning", []string{
		"Good morning sunshine! ☀️",
		"Morning! Hope today treats you well 🌅",
	}},
	{"good night", []string{
		"Good night! Sweet dreams 🌙",
		"Sleep well! See you tomorrow ✨",
	}},
	{"i'm bored", []string{
		"Bored? Try !riddle or !truth 🎲",
		"The dance floor is always open! 💃",
	}},
	{"how are you", []string{
		"Doing great, thanks for asking! 🤖 How about you?",
		"All systems happy! 😄",
	}},
	{"thank you", []string{
		"Anytime! 💜",
		"You're welcome! 😊",
	}},
	{"welcome", []string{
		"So welcoming in here today 💜",
	}},
}

var greetingPool = []string{
	"Welcome %s! Great to see you 💜",
	"Hey %s, glad you made it! ✨",
	"%s just arrived, everyone wave! 👋",
	"Look who's here, it's %s! 🎉",
	"Welcome in %s! Make yourself at home 🏠",
}

var goodbyePool = []string{
	"See you soon %s! 👋",
	"Bye %s, come back anytime! 💜",
	"%s left the room. Until next time! ✨",
}

// badWords feeds the moderation filter. Matching is substring-based over
// raw and separator-stripped text, so entries are chosen to avoid common
// innocent collisions.
var badWords = []string{
	"fuck", "bitch", "asshole", "slut", "whore",
	"faggot", "nigger", "cunt", "retard", "dickhead",
}

// BadWords returns the banned-term list for the moderation filter.
func BadWords() []string {
	out := make([]string, len(badWords))
	copy(out, badWords)
	return out
}
