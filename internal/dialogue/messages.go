package dialogue

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/hrline/taishokubot/internal/models"
	"github.com/hrline/taishokubot/internal/validate"
)

// All user-facing texts are fixed bilingual templates, English first and
// Japanese second. There is no localization layer behind them.

const (
	textStaffIDPrompt = "Let's start your quitting request.\nPlease enter your staff ID (3 to 6 digits).\n退職申請を開始します。\n社員番号を入力してください（3〜6桁の数字）。"

	textStaffIDRetry = "That doesn't look like a staff ID. Please enter 3 to 6 digits, e.g. 2338.\n社員番号の形式が正しくありません。3〜6桁の数字で入力してください（例: 2338）。"

	textDatePrompt = "Please enter your planned quitting date in YYYY-MM-DD format, e.g. 2026-03-31.\n退職予定日を YYYY-MM-DD 形式で入力してください（例: 2026-03-31）。"

	textDateRetry = "The date must be in YYYY-MM-DD format, e.g. 2026-03-31. Please try again.\n日付は YYYY-MM-DD 形式で入力してください（例: 2026-03-31）。"

	textCommentPrompt = "Please tell us a bit more about your reason (up to 300 characters), or reply \"none\".\n理由の詳細を入力してください（300文字以内）。特になければ「なし」と入力してください。"

	textCommentRetry = "The comment is too long. Please keep it within 300 characters.\nコメントが長すぎます。300文字以内で入力してください。"

	textCancelled = "Your request has been cancelled. Nothing was submitted.\n手続きをキャンセルしました。申請は送信されていません。"

	textSubmitFailed = "Sorry, we could not submit your request. Please contact HR support.\n申し訳ありません、申請を送信できませんでした。人事サポートへお問い合わせください。"

	textCancelStaffIDPrompt = "You can withdraw a submitted quitting request.\nPlease enter your staff ID (3 to 6 digits).\n提出済みの退職申請を取り下げます。\n社員番号を入力してください（3〜6桁の数字）。"

	textCancelRequestAborted = "Understood, your quitting request stays as it is.\n承知しました。退職申請はそのまま維持されます。"
)

const (
	labelSubmit   = "Submit"
	labelCancel   = "Cancel"
	labelCancelJP = "キャンセル"
	labelYes      = "Yes"
	labelNo       = "No"
)

var (
	submitTokens = []string{"submit", "送信"}
	yesTokens    = []string{"yes", "はい"}
	noTokens     = []string{"no", "いいえ"}
)

func matchesToken(text string, tokens []string) bool {
	folded := validate.Fold(text)
	return lo.Contains(tokens, folded)
}

// CancelAcknowledgement is the fixed reply to a cancel word, sent by the
// router after it destroys the session.
func CancelAcknowledgement() models.Sendable {
	return models.TextMessage(textCancelled)
}

func reasonMenuMessage() models.Sendable {
	lines := []string{
		"Please choose the reason for quitting (reply with the number or the label):",
		"退職理由を選択してください（番号またはラベルで回答できます）:",
	}

	for index, reason := range validate.Reasons {
		lines = append(lines, fmt.Sprintf("%d. %s / %s", index+1, reason.LabelEN, reason.LabelJP))
	}

	options := lo.Map(validate.Reasons, func(reason validate.Reason, index int) models.Option {
		return models.Option{
			Label: reason.LabelEN,
			Value: fmt.Sprintf("%d", index+1),
		}
	})
	options = append(options, models.Option{Label: labelCancelJP, Value: "cancel"})

	return models.Sendable{
		Text:    strings.Join(lines, "\n"),
		Options: options,
	}
}

func confirmationMessage(fields models.SessionFields) models.Sendable {
	return models.Sendable{
		Text: Summary().SetFields(fields).Build(),
		Options: []models.Option{
			{Label: labelSubmit, Value: "submit"},
			{Label: labelCancel, Value: "cancel"},
		},
	}
}

func cancelConfirmMessage(staffID string) models.Sendable {
	text := fmt.Sprintf(
		"Withdraw the quitting request for staff ID %s?\n社員番号 %s の退職申請を取り下げますか？",
		staffID, staffID,
	)

	return models.Sendable{
		Text: text,
		Options: []models.Option{
			{Label: labelYes, Value: "yes"},
			{Label: labelNo, Value: "no"},
		},
	}
}

func submittedMessage(requestID string) models.Sendable {
	return models.TextMessage(fmt.Sprintf(
		"Your quitting request has been submitted. Request ID: %s\n退職申請を受け付けました。受付番号: %s",
		requestID, requestID,
	))
}

func withdrawnMessage(requestID string) models.Sendable {
	if requestID == "" {
		return models.TextMessage("Your quitting request has been withdrawn.\n退職申請を取り下げました。")
	}
	return models.TextMessage(fmt.Sprintf(
		"Your quitting request has been withdrawn. Reference: %s\n退職申請を取り下げました。受付番号: %s",
		requestID, requestID,
	))
}

// SummaryBuilder renders the confirmation summary of collected fields.
type SummaryBuilder struct {
	fields models.SessionFields
}

func Summary() SummaryBuilder {
	return SummaryBuilder{}
}

func (b SummaryBuilder) SetFields(fields models.SessionFields) SummaryBuilder {
	b.fields = fields
	return b
}

func (b SummaryBuilder) Build() string {
	comment := b.fields.Comment
	if comment == "" {
		comment = "-"
	}

	lines := []string{
		"Please confirm your quitting request:",
		"以下の内容で申請します。ご確認ください:",
		fmt.Sprintf("Staff ID / 社員番号: %s", b.fields.StaffID),
		fmt.Sprintf("Quitting date / 退職予定日: %s", b.fields.QuittingDate),
		fmt.Sprintf("Reason / 理由: %s", b.fields.Reason),
		fmt.Sprintf("Comment / コメント: %s", comment),
		"",
		"Reply \"Submit\" to submit or \"Cancel\" to discard.",
		"「Submit」で送信、「Cancel」で破棄します。",
	}

	return strings.Join(lines, "\n")
}
