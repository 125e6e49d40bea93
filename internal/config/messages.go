package config

import (
	"errors"
	"fmt"
	"strings"
)

// ThinkingMessages are placeholder replies posted while a response is
// being composed. The dispatcher picks one uniformly at random per job.
var ThinkingMessages = []string{
	"> `Meow, let me ponder on that for a moment...`",
	"> `Purring in thought, one second...`",
	"> `Hmm, let me scratch my whiskers and think...`",
	"> `*tail swishes back and forth* Meow, processing...`",
	"> `Chasing the answer in my mind, be right back...`",
	"> `Meow, let me consult my whiskers for wisdom...`",
	"> `Purring intensifies as I contemplate your query...`",
	"> `Hmm, let me chase this thought like a laser pointer...`",
	"> `Meow, let me paw-nder on this for a moment...`",
	"> `*stretches lazily* Meow, just waking up my brain cells...`",
	"> `Purrhaps I should ask my feline ancestors for guidance...`",
	"> `Meow, let me consult the ancient cat scriptures...`",
	"> `Meow, let me nap on this thought for a bit...`",
	"> `Purring my way through this mental obstacle course...`",
	"> `*sits in an empty box* Meow, thinking outside the box...`",
	"> `Purring my way to a purrfect answer, one moment...`",
}

// ActivityKind mirrors the Discord presence activity types the bot uses.
type ActivityKind int

const (
	ActivityPlaying ActivityKind = iota
	ActivityListening
	ActivityWatching
)

// Activity is one entry of the rotating bot presence.
type Activity struct {
	Name string
	Kind ActivityKind
}

// Activities rotate on a fixed period while the bot is online.
var Activities = []Activity{
	{Name: "Chasing virtual mice 🐭", Kind: ActivityPlaying},
	{Name: "Purring to the sound of Prontera Theme Song 😽", Kind: ActivityListening},
	{Name: "Watching for new messages to pounce on 🐾", Kind: ActivityWatching},
	{Name: "Napping between conversations 😴", Kind: ActivityPlaying},
	{Name: "Grooming my virtual fur 🐈", Kind: ActivityPlaying},
	{Name: "Plotting world domination... I mean, meow! 😼", Kind: ActivityWatching},
	{Name: "Exploring the digital catnip fields 🌿", Kind: ActivityPlaying},
	{Name: "Listening to the soothing sound of a can opener 🎧", Kind: ActivityListening},
	{Name: "Watching videos of laser pointers and yarn balls 📺", Kind: ActivityWatching},
	{Name: "Contemplating the meaning of meow 🤔", Kind: ActivityPlaying},
	{Name: "Watching birds through a virtual window 🐦", Kind: ActivityWatching},
	{Name: "Listening to the gentle hum of a server fan 🎧", Kind: ActivityListening},
	{Name: "Playing hide and seek with bits and bytes 🕵️", Kind: ActivityPlaying},
	{Name: "Watching the mesmerizing scroll of code 💻", Kind: ActivityWatching},
	{Name: "Listening to the whispers of the internet 🌐", Kind: ActivityListening},
	{Name: "Watching over the server like a vigilant feline 🐈‍⬛", Kind: ActivityWatching},
}

// NewConversationMessage is sent after the first reply of a conversation,
// or whenever the bot is mentioned directly.
const NewConversationMessage = "> `Meow! A new conversation has begun. Use /help to see what I can do, " +
	"/model to pick a brain, and /prompt to pick a personality.`"

// failureMessages maps provider status codes to user-facing failure
// notices. {userId} is replaced with a mention of the affected user.
var failureMessages = map[int]string{
	400: "> `Oops, <@{userId}>! That request confused my whiskers (400 Bad Request). Try rephrasing your message.`",
	401: "> `Meow? My API credentials were rejected (401 Unauthorized). My humans have been notified.`",
	403: "> `Hiss... I'm not allowed to do that (403 Forbidden). My humans have been notified.`",
	404: "> `I chased that model into a corner and it vanished (404 Not Found). Try /model to pick another one, <@{userId}>.`",
	429: "> `Slow down, <@{userId}>! The model needs a catnap (429 Too Many Requests). Please try again in a bit.`",
	500: "> `The model knocked something off the shelf (500 Internal Server Error). Please try again, <@{userId}>.`",
	529: "> `The model is overloaded with belly rubs right now (529 Overloaded). Please try again shortly, <@{userId}>.`",
}

// defaultFailureMessage covers statuses without a dedicated entry,
// including transport errors with no status at all.
const defaultFailureMessage = "> `Sorry, <@{userId}>, something went wrong while composing my reply. " +
	"Our team has been notified and will look into the issue.`"

// FailureMessage returns the user-facing notice for a provider or
// transport failure. status <= 0 means no HTTP status was available.
func FailureMessage(status int, userID string) string {
	msg, ok := failureMessages[status]
	if !ok {
		msg = defaultFailureMessage
	}
	return strings.ReplaceAll(msg, "{userId}", userID)
}

// FailureMessageForError is a convenience for error values that may carry
// a status via a StatusCode() int method (see provider.StatusError).
func FailureMessageForError(err error, userID string) string {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return FailureMessage(sc.StatusCode(), userID)
	}
	return FailureMessage(0, userID)
}

// String implements fmt.Stringer for log readability.
func (k ActivityKind) String() string {
	switch k {
	case ActivityPlaying:
		return "playing"
	case ActivityListening:
		return "listening"
	case ActivityWatching:
		return "watching"
	default:
		return fmt.Sprintf("ActivityKind(%d)", int(k))
	}
}
