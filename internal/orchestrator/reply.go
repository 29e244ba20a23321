package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/capitalize-ai/event-assistant/internal/dates"
	"github.com/capitalize-ai/event-assistant/internal/model"
)

// Branch names the decision path a turn took.
type Branch string

const (
	BranchForcedGenerate    Branch = "forced_generate"
	BranchConfirmedGenerate Branch = "confirmed_generate"
	BranchAskDate           Branch = "ask_date"
	BranchGenerate          Branch = "generate"
	BranchPendingItems      Branch = "pending_items"
	BranchAskHeadcount      Branch = "ask_headcount"
	BranchAskType           Branch = "ask_type"
	BranchRestate           Branch = "restate"
	BranchGreeting          Branch = "greeting"
	BranchPlanner           Branch = "planner"
	BranchDefault           Branch = "default"
	BranchItemEdit          Branch = "item_edit"
	BranchDateRejected      Branch = "date_rejected"
	BranchOrphan            Branch = "orphan"
	BranchListEvents        Branch = "list_events"
	BranchConfirmItems      Branch = "confirm_items"
	BranchFinalize          Branch = "finalize"
	BranchRegenerate        Branch = "regenerate"
	BranchReset             Branch = "reset"
	BranchClearHistory      Branch = "clear_history"
	BranchError             Branch = "error"
)

// CTA is a call-to-action button; Action is a ParseAction name.
type CTA struct {
	Action string `json:"action"`
	Label  string `json:"label"`
}

var (
	ctaConfirm    = CTA{Action: "confirm_items", Label: "Confirmar lista"}
	ctaRegenerate = CTA{Action: "regenerate", Label: "Gerar outra lista"}
	ctaFinalize   = CTA{Action: "finalize_event", Label: "Finalizar evento"}
	ctaGenerate   = CTA{Action: "force_generate", Label: "Gerar lista agora"}
)

// Reply is the outcome of one turn.
type Reply struct {
	State            model.ContextState `json:"state"`
	EventID          string             `json:"event_id,omitempty"`
	Message          string             `json:"message"`
	Snapshot         *model.Snapshot    `json:"snapshot,omitempty"`
	Events           []model.Event      `json:"events,omitempty"`
	CTAs             []CTA              `json:"ctas,omitempty"`
	SuggestedReplies []string           `json:"suggested_replies,omitempty"`
	Branch           Branch             `json:"branch"`
	SessionExpired   bool               `json:"session_expired,omitempty"`
}

const (
	msgRetry        = "Ops, algo deu errado do meu lado. Pode tentar de novo?"
	msgOrphan       = "Não consegui abrir o evento que estávamos planejando. Vamos recomeçar? Me conta de novo o tipo de evento e quantas pessoas."
	msgDefault      = "Me conta qual evento você quer organizar e para quantas pessoas. Por exemplo: \"churrasco para 20 pessoas no sábado\"."
	msgRestate      = "Para gerar a lista eu preciso do tipo de evento e de quantas pessoas vão. Pode me dizer?"
	msgOnboarding   = "Oi! Eu ajudo a planejar eventos: digo o que comprar e quanto. Me conta o tipo de evento, quantas pessoas e a data, tipo \"churrasco para 20 pessoas dia 12/12\"."
	msgHelp         = "Funciona assim: você me diz o tipo de evento, quantas pessoas e a data, e eu monto a lista de compras. Depois dá para ajustar com frases como \"tira a cerveja\" ou \"dobra a carne\"."
	msgNoEvent      = "Ainda não temos um evento em andamento. Me conta o que você quer organizar!"
	msgNoPending    = "Não tenho uma lista aguardando confirmação agora."
	msgAlreadyDone  = "Essa lista já está confirmada."
	msgConfirmFirst = "Antes de finalizar, confirme a lista de itens."
	msgReset        = "Tudo certo, começamos do zero. Que evento vamos planejar?"
	msgHistory      = "Histórico apagado."
	msgNoOpen       = "Você não tem eventos em aberto."
	msgPending      = "Sua lista está aguardando confirmação. Pode confirmar, pedir outra ou ajustar itens (ex.: \"tira a cerveja\", \"dobra a carne\")."
	msgEditHelp     = "Não entendi qual ajuste fazer na lista. Tente algo como \"tira o refrigerante\", \"adiciona 2 kg de linguiça\" ou \"muda a cerveja para 30\"."
)

func askHeadcount(eventType string) string {
	return fmt.Sprintf("Legal, um %s! Quantas pessoas vão?", eventType)
}

func askType(headcount int) string {
	return fmt.Sprintf("Anotei %d pessoas. Qual é o tipo de evento? Churrasco, pizza, aniversário...", headcount)
}

func askDate(eventType string, headcount int) string {
	return fmt.Sprintf("Perfeito, %s para %d pessoas. Qual a data do evento? Pode mandar como 12/12 ou \"12 de dezembro\".", eventType, headcount)
}

func itemNotFound(name string) string {
	if name == "" {
		return "Não encontrei esse item na lista."
	}
	return fmt.Sprintf("Não encontrei \"%s\" na lista.", name)
}

func editDone(op string, affected []string) string {
	names := strings.Join(affected, ", ")
	switch op {
	case "remove":
		return "Pronto, tirei " + names + " da lista."
	case "add":
		return "Pronto, adicionei " + names + "."
	case "multiply":
		return "Feito, ajustei a quantidade de " + names + "."
	default:
		return "Feito, atualizei " + names + "."
	}
}

func listOpen(events []model.Event) string {
	if len(events) == 0 {
		return msgNoOpen
	}
	var b strings.Builder
	b.WriteString("Seus eventos em aberto:")
	for _, ev := range events {
		fmt.Fprintf(&b, "\n- %s (%s, %d pessoas", ev.Name, ev.Type, ev.Headcount)
		if d := ev.DateValue(); d != "" {
			b.WriteString(", " + dates.FormatBR(d))
		}
		b.WriteString(")")
	}
	return b.String()
}

// describeItems renders the list as plain text lines with a total.
func describeItems(snap *model.Snapshot) string {
	if snap == nil || len(snap.Items) == 0 {
		return ""
	}
	var b strings.Builder
	for i, it := range snap.Items {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- %s: %s %s (%s)", it.Name, formatQuantity(it.Quantity), it.Unit, formatBRL(it.EstimatedValue))
	}
	fmt.Fprintf(&b, "\nTotal estimado: %s", formatBRL(snap.TotalValue()))
	return b.String()
}

func formatQuantity(q float64) string {
	return strings.Replace(strconv.FormatFloat(q, 'f', -1, 64), ".", ",", 1)
}

func formatBRL(v float64) string {
	return "R$ " + strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}
