package service

import (
	"strconv"
	"strings"

	chatdomain "github.com/precocity/timeoff-assistant-go/internal/chat/domain"
	"github.com/precocity/timeoff-assistant-go/internal/domain"
)

// CallbackFollowUp identifies the "anything else?" yes/no attachment.
const CallbackFollowUp = "timeoff-followup"

// FormatOutcome renders a retrieval outcome as the user-visible reply.
// Every outcome produces a complete, human-readable message plus the
// follow-up buttons; raw remote data is never surfaced.
func FormatOutcome(outcome domain.RetrievalOutcome, serverName string) chatdomain.Reply {
	name := outcome.Identity.DisplayName

	var text string
	switch outcome.Status {
	case domain.StatusSuccess:
		text = formatBalances(name, serverName, outcome.Summary)
	case domain.StatusUserNotFound:
		text = "Drats! I can't seem to find your information, " + name + "! Is your email '" + outcome.Identity.Email + "'?"
	case domain.StatusRemoteUnavailable:
		text = "Hm, " + serverName + " seems to be down right now. Check back with me later."
	case domain.StatusMalformedData:
		text = "I'm sorry, I can't figure out what " + serverName + " is trying to tell me about your leave accrual transactions, " + name + ". It's Greek to me."
	default:
		text = "Something unexpected happened while I was checking your balances, " + name + "."
	}

	return chatdomain.Reply{
		Text: text,
		Attachments: []chatdomain.Attachment{
			{
				Title:          "Anything else I can help you with today, " + name + "?",
				CallbackID:     CallbackFollowUp,
				AttachmentType: "default",
				Actions: []chatdomain.Action{
					chatdomain.Button("yes", "Yes", "yes"),
					chatdomain.Button("no", "No", "no"),
				},
			},
		},
	}
}

// formatBalances lists balances in summary order, comma-separated with an
// "and" before the last entry.
func formatBalances(name, serverName string, summary *domain.BalanceSummary) string {
	if summary == nil || summary.Len() == 0 {
		return "Hi " + name + ", " + serverName + " has no accrual balances on record for you."
	}

	entries := summary.Entries()
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, e.Category+": "+formatHours(e.Hours)+" hours")
	}

	var list string
	if len(parts) == 1 {
		list = parts[0]
	} else {
		list = strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}

	return "Hi " + name + ", you have the following balances as of today: " + list + "."
}

// formatHours prints hours without trailing zeros (10, not 10.000000).
func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
