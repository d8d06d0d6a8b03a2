package bot

import (
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ErrInvalidCountryCode is returned for non-numeric country input.
var ErrInvalidCountryCode = errors.New("invalid country code")

// countryKeyboard is the one-time reply keyboard offered when the user
// starts the phone flow. Free-form numeric entry is also accepted.
func countryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("7 - Russia"),
			tgbotapi.NewKeyboardButton("91 - India"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("380 - Ukraine"),
			tgbotapi.NewKeyboardButton("55 - Brazil"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Cancel"),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

// ParseCountryCode extracts the numeric country code from user input.
// Accepts both keyboard entries like "7 - Russia" and bare codes like "7".
func ParseCountryCode(text string) (string, error) {
	code := strings.TrimSpace(text)
	if before, _, found := strings.Cut(code, " - "); found {
		code = strings.TrimSpace(before)
	}
	if code == "" {
		return "", ErrInvalidCountryCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return "", ErrInvalidCountryCode
		}
	}
	return code, nil
}
