package chat

import (
	"strings"
	"text/template"
)

// Prompt wording carried over from the ward's tuned templates; treat edits
// as model-behavior changes, not copy changes.

const chatTemplateText = `Answer the question below, prioritizing information from the provided context. If you must provide information outside the context, explicitly state that it is not from the provided data. Do not fabricate information.
Current Time: {{.CurrentTime}}

Context: {{.Context}}

Patient Details: {{.PatientDetails}}

Nurse Notes: {{.NurseNotes}}

Question: {{.Question}}

Instructions:

*   Be concise and clear in your answer. Avoid any details that might not be useful to your fellow nurse.
*   Start by addressing any urgent alerts or recent updates (based on the provided timestamps).
*   Do not repeat information already present in the context unless specifically asked to.
*   Answer in a natural, human-like conversational style.
*   Do not include dates or timestamps in your response, unless specifically requested.
*   Do not use emojis.
*   Focus on the most relevant information for the question.

Answer:
`

const recordTemplateText = `Answer the Question Below. If you are providing patient details, only provide information that can be found in the context and if you are providing something outside the context, mention that clearly.

Here is the conversation history: {{.Context}}

Here are the patient details: {{.PatientDetails}}

Here is the patient note: {{.PatientNote}}

Confirm that the patient note has been recorded successfully and generate a confirmation to keep the flow of the conversation.

Response:
`

const notesSummaryTemplateText = `Answer the Question Below. If you are providing patient details, only provide information that can be found in the context and if you are providing something outside the context, mention that clearly.

Here are the nurse notes:
{{.NurseNotes}}

Given the list of these notes, group the notes by a common theme, and based on the date, provide the latest update for a particular theme. Don't provide any reasoning.
Response:
`

var (
	chatTemplate         = template.Must(template.New("chat").Parse(chatTemplateText))
	recordTemplate       = template.Must(template.New("record").Parse(recordTemplateText))
	notesSummaryTemplate = template.Must(template.New("notes").Parse(notesSummaryTemplateText))
)

type chatPromptData struct {
	CurrentTime    string
	Context        string
	PatientDetails string
	NurseNotes     string
	Question       string
}

type recordPromptData struct {
	Context        string
	PatientDetails string
	PatientNote    string
}

type notesPromptData struct {
	NurseNotes string
}

func renderChatPrompt(d chatPromptData) (string, error) {
	var b strings.Builder
	if err := chatTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderRecordPrompt(d recordPromptData) (string, error) {
	var b strings.Builder
	if err := recordTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderNotesPrompt(d notesPromptData) (string, error) {
	var b strings.Builder
	if err := notesSummaryTemplate.Execute(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

// languageInstruction appends the response-language hint the clients send
// alongside each message.
func languageInstruction(language string) string {
	if language == "fi" {
		return "Respond in Finnish."
	}
	return "Respond in English."
}
