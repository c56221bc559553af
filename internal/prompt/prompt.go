// Package prompt renders the two model prompts. Every function here is pure:
// the same input always yields the same text.
package prompt

import (
	"strconv"
	"strings"
)

// SuggestionCount is how many tones the suggestion prompt asks for.
const SuggestionCount = 3

const suggestionTemplate = `
You are a legal assistant analyzing a client's email. Suggest the %COUNT% most appropriate response tones from the following list:

%TONES%

Client Email:
"""
%EMAIL%
"""

Respond with the top %COUNT% tones in a bullet-point list (no numbering) along with a very short clear brief reason for each choice.
`

const draftTemplate = `
You are a legal assistant responding to a client's email at a law firm.

Relevant Case Notes:
%NOTES%

Client Email:
"""
%EMAIL%
"""

Instructions:
%TONE%

Write a clear, legally appropriate response based on the email above.
If a signature is provided, end the email with this signature:
"""
%SIGNATURE%
"""
`

// Suggestion builds the tone-suggestion prompt for email, offering tones as
// candidates.
func Suggestion(email string, tones []string) string {
	var list strings.Builder
	for i, name := range tones {
		if i > 0 {
			list.WriteByte('\n')
		}
		list.WriteString("- ")
		list.WriteString(name)
	}
	// One pass so user text containing a placeholder is never expanded.
	r := strings.NewReplacer(
		"%COUNT%", strconv.Itoa(SuggestionCount),
		"%TONES%", list.String(),
		"%EMAIL%", email,
	)
	return r.Replace(suggestionTemplate)
}

// DraftInput carries the values interpolated into the draft prompt.
type DraftInput struct {
	Email           string
	ToneInstruction string
	CaseNotes       string
	Signature       string
}

// Draft builds the reply-drafting prompt. The case notes and signature
// blocks are always rendered, empty or not; honouring "if provided" is left
// to the model.
func Draft(in DraftInput) string {
	r := strings.NewReplacer(
		"%NOTES%", in.CaseNotes,
		"%EMAIL%", in.Email,
		"%TONE%", in.ToneInstruction,
		"%SIGNATURE%", in.Signature,
	)
	return r.Replace(draftTemplate)
}
