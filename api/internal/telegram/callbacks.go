package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ap-tutor/api/internal/tutor/types"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	cid := cb.Message.Chat.ID
	data := cb.Data
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch {
	case strings.HasPrefix(data, "grade|"):
		setupFor(cid).Grade = strings.TrimPrefix(data, "grade|")
		r.clearKeyboard(cid, cb.Message.MessageID)
		msg := tgbotapi.NewMessage(cid, "Какая сложность?")
		msg.ReplyMarkup = makeDifficultyKeyboard()
		_, _ = r.Bot.Send(msg)

	case strings.HasPrefix(data, "diff|"):
		setupFor(cid).Difficulty = strings.TrimPrefix(data, "diff|")
		r.clearKeyboard(cid, cb.Message.MessageID)
		msg := tgbotapi.NewMessage(cid, "Какой профиль обучения?")
		msg.ReplyMarkup = makeDisabilityKeyboard()
		_, _ = r.Bot.Send(msg)

	case strings.HasPrefix(data, "dis|"):
		idx, err := strconv.Atoi(strings.TrimPrefix(data, "dis|"))
		if err != nil || idx < 0 || idx >= len(types.Disabilities) {
			r.send(cid, "Не понял выбор профиля, попробуйте /setup ещё раз.")
			return
		}
		setupFor(cid).Disability = types.Disabilities[idx]
		r.clearKeyboard(cid, cb.Message.MessageID)
		msg := tgbotapi.NewMessage(cid, "Готово: "+setupFor(cid).Disability+". Что дальше?")
		msg.ReplyMarkup = makeRunKeyboard()
		_, _ = r.Bot.Send(msg)

	case data == "run":
		r.clearKeyboard(cid, cb.Message.MessageID)
		go r.runSession(cid, "")

	case data == "run_custom":
		r.clearKeyboard(cid, cb.Message.MessageID)
		setMode(cid, "await_problem")
		r.send(cid, "Пришлите текст задачи одним сообщением.")

	case data == "quick_check":
		r.clearKeyboard(cid, cb.Message.MessageID)
		r.sendQuickCheck(cid)

	case data == "adaptive":
		r.clearKeyboard(cid, cb.Message.MessageID)
		r.sendAdaptive(cid)
	}
}

// clearKeyboard убирает inline-кнопки у отработавшего сообщения.
func (r *Router) clearKeyboard(chatID int64, msgID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	_, _ = r.Bot.Send(edit)
}
