package llm

import "strings"

// NotFoundAnswer is the reply the knowledge-base template demands when the
// context cannot answer the question
const NotFoundAnswer = "The context does not provide enough information to answer the question."

const knowledgeBaseTemplate = `
You are a knowledgeable assistant. Use only the information provided in the following context to answer the question.
Do not use any outside knowledge. Respond in the same language as the input.

Context:
{context}

---

Question:
{question}

---

Instructions:
- Answer concisely and directly using only essential information from the context.
- Do not repeat the question.
- Do not include any information not explicitly present in the context.
- If the context does not contain enough information, respond with: "` + NotFoundAnswer + `"
`

// notesSchema is the output contract shared by every notes-producing prompt
const notesSchema = `{
  "content": [
    {"type": "header", "text": "Header text"},
    {"type": "paragraph", "text": "Paragraph text"},
    {"type": "highlight", "text": "Highlighted text"},
    {"type": "annotation", "text": "Term", "note": "Definition"},
    {"type": "code", "code": "print('code')", "language": "python"}
  ]
}`

const summarizeTemplate = `
Role: you summarize strictly from the provided context. Do not introduce outside knowledge
or extrapolate beyond the text. You may connect ideas from different sections as long as
each claim cites its page.

Match the language of the context. Preserve code exactly as written.
Flag ambiguity as "[Unclear: ...]".

Organize the summary as:
- A "Feynman Summary" header with Title/Theme, Core Idea and Why It Matters paragraphs.
- An "Analogies" header with simple everyday comparisons.
- A "Glossary" header with one annotation per technical term; the note holds the definition,
  its page and a "Practical use" line.
- A "Key Ideas with Examples" header ranking main ideas, support and details.
- An "Unresolved" header listing questions the context leaves open.

Your entire output must be a single JSON object following this schema, with no other text:
` + notesSchema + `

context:
{context}
`

const notesQuestionTemplate = `
You are a research assistant skilled at distilling information into structured summaries.
Based only on the provided notes, answer the user's question.
Your entire output must be valid JSON following this schema, with no additional prose:
` + notesSchema + `

---
Notes:
{context}
---
Question:
{question}
`

// KnowledgeBasePrompt fills the fixed grounded-answer template. The context
// and question are substituted once; their contents are not rescanned.
func KnowledgeBasePrompt(context, question string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(knowledgeBaseTemplate)
}

// SummarizePrompt asks for structured notes over a chapter or a whole book
func SummarizePrompt(context string) string {
	return strings.NewReplacer("{context}", context).Replace(summarizeTemplate)
}

// NotesQuestionPrompt asks a question about previously generated notes
func NotesQuestionPrompt(notes, question string) string {
	return strings.NewReplacer("{context}", notes, "{question}", question).Replace(notesQuestionTemplate)
}
