package models

// Role identifies the author of a conversation turn or chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SourceDocument is a document discovered in the ingestion folder
type SourceDocument struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	PageCount int    `json:"page_count"`
}

// Page holds the extracted text of a single document page
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Chunk represents a passage of a source document stored in the vector index
type Chunk struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Metadata contains information about where a chunk came from
type Metadata struct {
	Source     string `json:"source"`
	FilePath   string `json:"file_path"`
	PageNumber int    `json:"page"`
	ChunkIndex int    `json:"chunk_index"`
	StartIndex int    `json:"start_index"`
}

// RetrievalResult is a chunk returned by a similarity query
type RetrievalResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Citation is the display form of a retrieved source
type Citation struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Page    string `json:"page"`
}

// ConversationTurn is one entry of a chat session's history
type ConversationTurn struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}

// Message is a role-tagged message sent to a generation gateway
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TocEntry is one line of a document's table of contents
type TocEntry struct {
	Level int    `json:"level"`
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// Chapter is a contiguous page range derived from the table of contents.
// Page is the 1-based start page printed in the TOC; StartIndex and EndIndex
// are 0-based, inclusive page indices.
type Chapter struct {
	Title      string `json:"title"`
	Level      int    `json:"level"`
	Page       int    `json:"page"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// ChapterSummary pairs a chapter title with its generated notes
type ChapterSummary struct {
	Title   string `json:"title"`
	Summary *Notes `json:"summary"`
}

// BookSummary is the result of summarizing a whole document
type BookSummary struct {
	Document  string           `json:"document"`
	Chapters  []ChapterSummary `json:"chapters"`
	Aggregate *Notes           `json:"aggregate"`
	OutputDir string           `json:"output_dir"`
}

// Response represents the answer to a knowledge-base question
type Response struct {
	Answer     string     `json:"answer"`
	Sources    []Citation `json:"sources"`
	TopicReset bool       `json:"topic_reset"`
	Timestamp  string     `json:"timestamp"`
}
