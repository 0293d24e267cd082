package validate

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	set "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cast"
	"golang.org/x/text/width"

	"github.com/hrline/taishokubot/internal/models"
)

const CommentMaxLength = 300

var (
	regexStaffID = regexp.MustCompile(`^[0-9]{3,6}$`)

	// Literal shape check only. "2026-13-99" passes: calendar validity is a
	// known limitation of this flow, not something to fix silently here.
	regexDate = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// Vocabularies are stored folded so membership checks and user input go
// through the exact same normalization (katakana has half-width variants
// that width narrowing rewrites).
var (
	cancelWords = newVocabulary(
		"cancel", "stop",
		"キャンセル", "中止", "やめる", "取消",
	)

	quitTriggers = newVocabulary(
		"quit", "resign", "quitting request",
		"退職", "退職したい", "辞めたい",
	)

	// Deliberately no phrase starting with "cancel ": such text is claimed
	// by the admin command prefix check before flow triggers are consulted.
	cancelRequestTriggers = newVocabulary(
		"withdraw", "withdraw request",
		"取り下げ", "申請取消",
	)

	noneTokens = newVocabulary(
		"none", "no", "-",
		"なし", "特になし",
	)
)

func newVocabulary(words ...string) set.Set[string] {
	folded := set.NewSet[string]()
	for _, word := range words {
		folded.Add(Fold(word))
	}
	return folded
}

var (
	ErrStaffIDFormat  = errors.New("staff id must be 3 to 6 digits")
	ErrDateFormat     = errors.New("date must match YYYY-MM-DD")
	ErrCommentTooLong = errors.New("comment exceeds maximum length")
	ErrUnknownReason  = errors.New("input does not match any reason option")
)

// Normalize narrows full-width digits and punctuation typed through a
// Japanese IME and strips surrounding whitespace. All field validators and
// keyword matches run on normalized input.
func Normalize(value string) string {
	return strings.TrimSpace(width.Narrow.String(value))
}

func Fold(value string) string {
	return strings.ToLower(Normalize(value))
}

func StaffID(value string) error {
	if !regexStaffID.MatchString(value) {
		return ErrStaffIDFormat
	}
	return nil
}

func Date(value string) error {
	if !regexDate.MatchString(value) {
		return ErrDateFormat
	}
	return nil
}

func Comment(value string) error {
	if len([]rune(value)) > CommentMaxLength {
		return ErrCommentTooLong
	}
	return nil
}

type Reason struct {
	LabelEN string
	LabelJP string
	Other   bool
}

// Reasons is the fixed enumeration presented at the reason step. Order is
// part of the contract: inputs like "1" resolve by 1-based position.
var Reasons = []Reason{
	{LabelEN: "Better opportunity", LabelJP: "転職"},
	{LabelEN: "Relocation", LabelJP: "転居"},
	{LabelEN: "Health", LabelJP: "健康上の理由"},
	{LabelEN: "Family circumstances", LabelJP: "家庭の事情"},
	{LabelEN: "Other", LabelJP: "その他", Other: true},
}

// MatchReason resolves input to one of Reasons, accepting either the exact
// label text in either language (case-insensitive) or the 1-based ordinal.
func MatchReason(input string) (Reason, error) {
	folded := Fold(input)

	if ordinal, err := cast.ToIntE(folded); err == nil {
		if ordinal < 1 || ordinal > len(Reasons) {
			return Reason{}, ErrUnknownReason
		}
		return Reasons[ordinal-1], nil
	}

	for _, reason := range Reasons {
		if folded == Fold(reason.LabelEN) || folded == Fold(reason.LabelJP) {
			return reason, nil
		}
	}

	return Reason{}, ErrUnknownReason
}

func IsCancelWord(text string) bool {
	return cancelWords.ContainsOne(Fold(text))
}

func IsQuitTrigger(text string) bool {
	return quitTriggers.ContainsOne(Fold(text))
}

func IsCancelRequestTrigger(text string) bool {
	return cancelRequestTriggers.ContainsOne(Fold(text))
}

func IsNoneToken(text string) bool {
	return noneTokens.ContainsOne(Fold(text))
}

// DetectLanguage picks Japanese when any rune falls in the Hiragana,
// Katakana or Han ranges, English otherwise. A script-range heuristic, not
// real language detection: mixed-script text resolves to Japanese.
func DetectLanguage(text string) models.Language {
	for _, r := range text {
		if unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Han, r) {
			return models.LanguageJP
		}
	}
	return models.LanguageEN
}
