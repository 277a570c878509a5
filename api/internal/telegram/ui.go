package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ap-tutor/api/internal/tutor/types"
)

// Кнопки выбора класса
func makeGradeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("2 класс", "grade|"+types.Grade2nd),
			tgbotapi.NewInlineKeyboardButtonData("5 класс", "grade|"+types.Grade5th),
			tgbotapi.NewInlineKeyboardButtonData("7 класс", "grade|"+types.Grade7th),
		),
	)
}

func makeDifficultyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Лёгкая", "diff|"+types.DifficultyEasy),
			tgbotapi.NewInlineKeyboardButtonData("Средняя", "diff|"+types.DifficultyMedium),
			tgbotapi.NewInlineKeyboardButtonData("Сложная", "diff|"+types.DifficultyHard),
		),
	)
}

// Каталог профилей — по кнопке на строку, в callback уходит индекс.
func makeDisabilityKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(types.Disabilities))
	for i, d := range types.Disabilities {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(d, fmt.Sprintf("dis|%d", i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func makeRunKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Сгенерировать задачу", "run"),
			tgbotapi.NewInlineKeyboardButtonData("Своя задача", "run_custom"),
		),
	)
}

// Кнопки после завершённой сессии
func makeAfterRunKeyboard(hasTestQuestion bool) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("Ещё задачу", "run"),
		tgbotapi.NewInlineKeyboardButtonData("Подбор сложности", "adaptive"),
	}
	if hasTestQuestion {
		row = append([]tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData("Проверить понимание", "quick_check"),
		}, row...)
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(row...))
}

// лёгкое экранирование для Markdown
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}
