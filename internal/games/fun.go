package games

import (
	"fmt"
	"math/rand"
)

var truths = []string{
	"What's the most embarrassing song on your playlist?",
	"What's a secret talent nobody here knows about?",
	"What's the longest you've gone without sleep?",
	"Who was your first crush?",
	"What's the weirdest food combo you actually enjoy?",
	"What's the last lie you told?",
	"What app do you waste the most time on?",
}

var dares = []string{
	"Speak only in emojis for the next 5 minutes!",
	"Compliment the next 3 people who chat!",
	"Do your best dance emote right now!",
	"Change your status to something silly for 10 minutes!",
	"Tell the room your most used emoji!",
	"Copy the outfit style of the person to your left!",
}

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything! 😂",
	"I told my wife she should embrace her mistakes. She gave me a hug. 😅",
	"Why did the scarecrow win an award? He was outstanding in his field! 🌾",
	"I'm reading a book about anti-gravity. It's impossible to put down! 📖",
	"What do you call a fake noodle? An impasta! 🍝",
	"Why don't eggs tell jokes? They'd crack each other up! 🥚",
	"Parallel lines have so much in common. Shame they'll never meet. 📐",
}

// Truth returns a random truth question.
func Truth() string { return truths[rand.Intn(len(truths))] }

// Dare returns a random dare.
func Dare() string { return dares[rand.Intn(len(dares))] }

// Joke returns a random joke.
func Joke() string { return jokes[rand.Intn(len(jokes))] }

// Roll returns a six-sided die result as display text.
func Roll(username string) string {
	return fmt.Sprintf("🎲 @%s rolled a %d!", username, rand.Intn(6)+1)
}

// Flip returns a coin flip result as display text.
func Flip(username string) string {
	side := "Heads"
	if rand.Intn(2) == 1 {
		side = "Tails"
	}
	return fmt.Sprintf("🪙 @%s flipped: %s!", username, side)
}
