package models

const (
	LanguageEN Language = "en"
	LanguageJP Language = "jp"
)

type Language = string

// FAQEntry is one row of the FAQ table. Entries are matched in table order
// and the first match wins, so the order of the backing table is part of
// the contract.
type FAQEntry struct {
	Keys       []string
	QuestionEN string
	AnswerEN   string
	QuestionJP string
	AnswerJP   string
}

func (e FAQEntry) Question(lang Language) string {
	if lang == LanguageJP {
		return e.QuestionJP
	}
	return e.QuestionEN
}

func (e FAQEntry) Answer(lang Language) string {
	if lang == LanguageJP {
		return e.AnswerJP
	}
	return e.AnswerEN
}
