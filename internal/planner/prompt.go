package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/capitalize-ai/event-assistant/internal/dates"
	"github.com/capitalize-ai/event-assistant/internal/model"
)

const plannerRules = `Você é o planejador de intenções de um assistente de eventos brasileiro.
Leia a mensagem do usuário e responda SOMENTE com um objeto JSON, sem texto extra e sem markdown:
{"intent": "<intent>", "payload": {...}}

Intents permitidos:
- create_event: o usuário quer organizar um novo evento. payload: event_type, headcount, date, menu, occasion, exclude_alcohol
- update_event: mudar tipo, número de pessoas, data, cardápio ou ocasião do evento atual
- generate_items: pedir (ou refazer) a lista de compras
- confirm_event: aprovar a lista ou o evento
- edit_items: editar a lista. payload.command = o pedido de edição em português ("tira a cerveja")
- list_events: ver os eventos em aberto
- ask_info: faltam dados. payload.message = a pergunta ao usuário, payload.missing_slots = ["event_type"|"headcount"|"date"]
- chitchat: conversa livre. payload.message = a resposta ao usuário

Regras do payload:
- headcount é um número inteiro positivo
- date é sempre yyyy-mm-dd, no futuro; resolva datas relativas ("sábado", "amanhã") a partir da data de hoje
- exclude_alcohol é booleano
- não invente campos que não estão na lista`

const chatRules = `Você é um assistente simpático que ajuda brasileiros a organizar eventos (churrascos, aniversários, jantares).
Responda em português, em no máximo três frases, e conduza a conversa para descobrir o tipo de evento, o número de pessoas e a data.
Se a mensagem deixar claro o que o usuário quer, você pode incluir ao final um JSON {"intent": ..., "payload": ...} no mesmo formato do planejador.`

// PlanContext is what the planner knows besides the utterance.
type PlanContext struct {
	Event     *model.Event
	Collected model.CollectedData
	History   []model.ConversationMessage
}

func buildSystem(rules string, now time.Time, pc PlanContext) string {
	var b strings.Builder
	b.WriteString(rules)
	fmt.Fprintf(&b, "\n\nHoje é %s (%s).", now.Format(dates.ISOLayout), dates.WeekdayName(now.Weekday()))

	if ev := pc.Event; ev != nil {
		fmt.Fprintf(&b, "\nEvento atual: id=%s tipo=%q pessoas=%d data=%s status=%s.",
			ev.ID, ev.Type, ev.Headcount, orDash(ev.DateValue()), ev.Status)
	} else {
		b.WriteString("\nNenhum evento em andamento.")
	}

	c := pc.Collected
	if c.EventType != "" || c.Headcount > 0 || c.Date != "" {
		fmt.Fprintf(&b, "\nDados já coletados: tipo=%s pessoas=%d data=%s.", orDash(c.EventType), c.Headcount, orDash(c.Date))
	}
	if c.Menu != "" {
		fmt.Fprintf(&b, "\nCardápio: %s.", c.Menu)
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
