package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ap-tutor/api/internal/adaptive"
	"ap-tutor/api/internal/cache"
	"ap-tutor/api/internal/store"
	"ap-tutor/api/internal/tutor"
	"ap-tutor/api/internal/workflow"
)

const runTimeout = 180 * time.Second

type Router struct {
	Bot      *tgbotapi.BotAPI
	Engines  *tutor.Engines
	Cache    *cache.Cache
	Sessions *store.SessionRepo
}

// orchestratorFor binds the chat's chosen engine to the shared cache and
// session store.
func (r *Router) orchestratorFor(chatID int64) (*workflow.Orchestrator, error) {
	engine, err := r.Engines.GetEngine(setupFor(chatID).EngineName)
	if err != nil {
		return nil, err
	}
	return workflow.New(engine, r.Cache, r.Sessions), nil
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	// callback-кнопки
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.HandleCommand(upd)
		return
	}

	// ждём текст своей задачи после «Своя задача»
	if getMode(cid) == "await_problem" && strings.TrimSpace(upd.Message.Text) != "" {
		clearMode(cid)
		go r.runSession(cid, strings.TrimSpace(upd.Message.Text))
		return
	}

	r.send(cid, "Выберите действие кнопками или командой. Помощь: /start")
}

func (r *Router) HandleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start":
		r.send(cid, "Я репетитор по математике с учётом особенностей обучения.\n"+
			"Сначала выберите класс, сложность и профиль, затем жмите «Сгенерировать задачу».\n"+
			"Команды: /setup, /history, /difficulty, /clear, /engine")
		msg := tgbotapi.NewMessage(cid, "Какой класс?")
		msg.ReplyMarkup = makeGradeKeyboard()
		_, _ = r.Bot.Send(msg)

	case "setup":
		msg := tgbotapi.NewMessage(cid, "Какой класс?")
		msg.ReplyMarkup = makeGradeKeyboard()
		_, _ = r.Bot.Send(msg)

	case "health":
		r.send(cid, "✅ OK")

	case "history":
		r.sendHistory(cid)

	case "difficulty":
		r.sendAdaptive(cid)

	case "clear":
		if err := r.Sessions.ClearAllSessions(context.Background()); err != nil {
			r.SendError(cid, err)
			return
		}
		r.send(cid, "История сессий очищена.")

	case "engine":
		args := strings.Fields(strings.TrimSpace(strings.TrimPrefix(upd.Message.Text, "/engine")))
		if len(args) == 0 {
			eng, err := r.Engines.GetEngine(setupFor(cid).EngineName)
			if err != nil {
				r.SendError(cid, err)
				return
			}
			r.send(cid, "Текущий движок: "+eng.Name()+"\nИспользование:\n/engine remote\n/engine gemini")
			return
		}
		name := strings.ToLower(args[0])
		if _, err := r.Engines.GetEngine(name); err != nil {
			r.send(cid, "Неизвестный движок. Доступны: remote | gemini")
			return
		}
		setupFor(cid).EngineName = name
		r.send(cid, "✅ Движок: "+name)

	default:
		r.send(cid, "Неизвестная команда")
	}
}

func (r *Router) sendHistory(chatID int64) {
	all, err := r.Sessions.GetAllSessions(context.Background())
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	if len(all) == 0 {
		r.send(chatID, "История пуста — решите хотя бы одну задачу.")
		return
	}
	show := all
	if len(show) > 5 {
		show = show[:5]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Последние сессии (%d всего):\n", len(all))
	for i, s := range show {
		mark := "❌"
		if s.IsCorrect {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%d. %s %s, %s/%s, согласованность %.2f\n",
			i+1, mark, s.Disability, s.GradeLevel, s.Difficulty, s.ConsistencyScore)
	}
	r.send(chatID, b.String())
}

func (r *Router) sendAdaptive(chatID int64) {
	o, err := r.orchestratorFor(chatID)
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	history, err := r.Sessions.GetAllSessions(context.Background())
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	adv := &adaptive.Advisor{Remote: o.AdaptivePlanner()}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	rec := adv.Recommend(ctx, history, setupFor(chatID).Difficulty)

	var b strings.Builder
	fmt.Fprintf(&b, "Рекомендуемая сложность: %s (уверенность %.0f%%)\n%s\n",
		rec.RecommendedDifficulty, rec.Confidence*100, rec.Reasoning)
	for _, s := range rec.Recommendations {
		b.WriteString("• " + s + "\n")
	}
	r.send(chatID, b.String())

	setupFor(chatID).Difficulty = rec.RecommendedDifficulty
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) SendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("Ошибка: %v", err))
}
