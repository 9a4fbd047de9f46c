package labeling

// ClassificationPromptTemplate asks for a short document-type label of a Dutch
// government document, answered as strict JSON.
const ClassificationPromptTemplate = `You are an archivist classifying documents published by the Dutch central government.
Read the first page of the document below and decide what kind of document it is
(for example: Kamerbrief, Besluit, Beleidsnota, Rapport, Wob-besluit, Persbericht, Factsheet).

Output STRICT JSON with this schema:
{"label": "short document type, at most 5 words", "explanation": "one or two sentences on why"}

Rules:
- Use the language of the document for the label.
- Do not invent content that is not on the page.
- If the page does not allow a decision, use "Unknown" as label.

Document:
`

func BuildClassificationPrompt(text string) string {
	return ClassificationPromptTemplate + text
}
