package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ap-tutor/api/internal/tutor/types"
	"ap-tutor/api/internal/workflow"
)

// runSession выполняет полный цикл: задача → симуляция → диагноз → диалог,
// и коммитит сессию в историю. problemText == "" означает генерацию задачи.
func (r *Router) runSession(chatID int64, problemText string) {
	s := setupFor(chatID)
	if s.Disability == "" {
		r.send(chatID, "Сначала выберите профиль обучения: /setup")
		return
	}

	o, err := r.orchestratorFor(chatID)
	if err != nil {
		r.SendError(chatID, err)
		return
	}

	req := types.PipelineRequest{
		GradeLevel:   s.Grade,
		Difficulty:   s.Difficulty,
		Disability:   s.Disability,
		WorkflowType: types.WorkflowFull,
	}
	if problemText != "" {
		req.Problem = types.ProblemRef{Text: problemText}
	}

	r.send(chatID, "Принял, готовлю сессию…")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	res, qc, _, err := o.RunSession(ctx, req, workflow.RunOptions{})
	if err != nil {
		r.SendError(chatID, err)
		return
	}
	runs.Store(chatID, &lastRun{Req: req, Res: res, QC: &qc})

	r.sendResult(chatID, res)

	hasTest := res.Results.TutorSession != nil &&
		strings.TrimSpace(res.Results.TutorSession.TestQuestion) != ""
	msg := tgbotapi.NewMessage(chatID, "Сессия сохранена. Что дальше?")
	msg.ReplyMarkup = makeAfterRunKeyboard(hasTest)
	_, _ = r.Bot.Send(msg)
}

// sendResult рендерит стадии результата отдельными сообщениями.
func (r *Router) sendResult(chatID int64, res *types.PipelineResult) {
	if gp := res.Results.GeneratedProblem; gp != nil {
		var b strings.Builder
		b.WriteString("📝 Задача:\n" + esc(gp.Problem))
		if gp.Topic != "" {
			b.WriteString("\nТема: " + esc(gp.Topic))
		}
		r.send(chatID, b.String())
	}

	if sim := res.Results.StudentSimulation; sim != nil {
		var b strings.Builder
		b.WriteString("🧒 Как рассуждал ученик:\n")
		if sim.ThoughtProcess != "" {
			b.WriteString(sim.ThoughtProcess + "\n")
		}
		for i, step := range sim.StepsToSolve {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		if ans := strings.TrimSpace(sim.FinalAnswer); ans != "" {
			b.WriteString("Ответ ученика: " + ans)
		}
		r.send(chatID, b.String())
	}

	if th := res.Results.ThoughtAnalysis; th != nil && th.Thought != "" {
		var b strings.Builder
		b.WriteString("🔍 Диагноз:\n" + th.Thought + "\n")
		for _, rem := range th.Remediation {
			b.WriteString("• " + rem + "\n")
		}
		r.send(chatID, b.String())
	}

	if ts := res.Results.TutorSession; ts != nil && len(ts.Conversation) > 0 {
		var b strings.Builder
		b.WriteString("💬 Диалог с тьютором:\n")
		for _, turn := range ts.Conversation {
			icon := "👨‍🏫"
			if strings.EqualFold(turn.Speaker, "student") {
				icon = "🧒"
			}
			b.WriteString(icon + " " + turn.Text + "\n")
			// телеграм режет длинные сообщения — отправляем кусками
			if b.Len() > 3000 {
				r.send(chatID, b.String())
				b.Reset()
			}
		}
		if b.Len() > 0 {
			r.send(chatID, b.String())
		}
	}

	if c := res.Results.ConsistencyValidation; c != nil {
		txt := fmt.Sprintf("Согласованность сессии: %.0f%%", c.OverallConsistencyScore*100)
		if len(c.Flags) > 0 {
			txt += "\n⚠️ " + strings.Join(c.Flags, "; ")
		}
		r.send(chatID, txt)
	}
}

// sendQuickCheck показывает итог контрольного вопроса последней сессии.
func (r *Router) sendQuickCheck(chatID int64) {
	v, ok := runs.Load(chatID)
	if !ok {
		r.send(chatID, "Нет завершённой сессии — сначала решите задачу.")
		return
	}
	lr := v.(*lastRun)
	qc := lr.QC

	ts := lr.Res.Results.TutorSession
	if ts == nil || strings.TrimSpace(ts.TestQuestion) == "" {
		verdict := "не пройдена"
		if qc != nil && qc.Passed {
			verdict = "пройдена"
		}
		r.send(chatID, "Контрольного вопроса в этой сессии не было; проверка по ответу: "+verdict)
		return
	}

	var b strings.Builder
	b.WriteString("Контрольный вопрос: " + ts.TestQuestion + "\n")
	if qc != nil {
		if qc.StudentAnswer != "" {
			b.WriteString("Ответ ученика: " + qc.StudentAnswer + "\n")
		}
		if qc.ExpectedAnswer != "" {
			b.WriteString("Ожидаемый ответ: " + qc.ExpectedAnswer + "\n")
		}
		if qc.Passed {
			b.WriteString("✅ Понимание подтверждено.")
		} else {
			b.WriteString("❌ Понимание пока не закреплено — стоит разобрать ещё одну похожую задачу.")
		}
	}
	r.send(chatID, b.String())
}
