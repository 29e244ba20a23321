// Package humanize turns terse action results into friendlier replies.
package humanize

import (
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/capitalize-ai/event-assistant/internal/dates"
)

// Kind is the coarse category of a completed action.
type Kind string

const (
	KindEventCreated      Kind = "event_created"
	KindItemsGenerated    Kind = "items_generated"
	KindItemsConfirmed    Kind = "items_confirmed"
	KindEventFinalized    Kind = "event_finalized"
	KindDateAdded         Kind = "date_added"
	KindParticipantsAdded Kind = "participants_added"
	KindMenuDefined       Kind = "menu_defined"
	KindCollectingInfo    Kind = "collecting_info"
)

// ActionResult is what the orchestrator did in a turn.
type ActionResult struct {
	Kind      Kind
	Message   string
	EventType string
	Headcount int
	Date      string
}

// Response is the humanized reply.
type Response struct {
	Acknowledgment   string   `json:"acknowledgment"`
	Continuation     string   `json:"continuation,omitempty"`
	SuggestedReplies []string `json:"suggested_replies,omitempty"`
}

// Text joins the parts into one message.
func (r Response) Text() string {
	if r.Continuation == "" {
		return r.Acknowledgment
	}
	return r.Acknowledgment + "\n\n" + r.Continuation
}

type pool struct {
	ack          []string
	continuation []string
	replies      []string
}

var pools = map[Kind]pool{
	KindEventCreated: {
		ack: []string{
			"Pronto, seu {tipo} para {pessoas} pessoas está criado!",
			"Feito! Anotei o {tipo} para {pessoas} pessoas.",
			"Evento criado: {tipo}, {pessoas} pessoas.",
		},
		continuation: []string{
			"Quer que eu monte a lista de compras?",
			"Posso sugerir os itens agora, é só pedir.",
		},
		replies: []string{"Gerar lista", "Mudar a data"},
	},
	KindItemsGenerated: {
		ack: []string{
			"Montei a lista para o seu {tipo} de {pessoas} pessoas.",
			"Aqui está uma sugestão de lista para {pessoas} pessoas.",
			"Lista pronta para o {tipo}!",
		},
		continuation: []string{
			"Quer confirmar ou ajustar algum item?",
			"Dá uma olhada e me diz se quer mudar alguma coisa.",
			"Se estiver tudo certo, é só confirmar.",
		},
		replies: []string{"Confirmar", "Tira a cerveja", "Dobra a carne"},
	},
	KindItemsConfirmed: {
		ack: []string{
			"Lista confirmada!",
			"Perfeito, lista fechada.",
			"Fechado, itens confirmados.",
		},
		continuation: []string{
			"Quando quiser, posso finalizar o evento.",
			"Agora é só chamar a galera.",
		},
		replies: []string{"Finalizar evento"},
	},
	KindEventFinalized: {
		ack: []string{
			"Evento finalizado. Bom {tipo}!",
			"Tudo pronto para o grande dia!",
		},
		continuation: []string{
			"Se quiser planejar outro evento, é só falar.",
		},
	},
	KindDateAdded: {
		ack: []string{
			"Data anotada: {data}.",
			"Beleza, fica para {data}.",
			"Marcado para {data}!",
		},
	},
	KindParticipantsAdded: {
		ack: []string{
			"Convidados adicionados.",
			"Anotei os convidados.",
		},
	},
	KindMenuDefined: {
		ack: []string{
			"Cardápio definido!",
			"Anotei o cardápio.",
		},
		continuation: []string{
			"Quer que eu ajuste a lista com base nele?",
		},
	},
}

// Wrapper picks template variants from a seedable source.
type Wrapper struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewWrapper creates a wrapper. A nil source is seeded from 1, which keeps
// output stable across runs.
func NewWrapper(src rand.Source) *Wrapper {
	if src == nil {
		src = rand.NewSource(1)
	}
	return &Wrapper{rnd: rand.New(src)}
}

// Humanize wraps r. Collecting-info and unknown kinds pass through unchanged;
// a non-empty Message on a completed action becomes the continuation.
func (w *Wrapper) Humanize(r ActionResult) Response {
	p, ok := pools[r.Kind]
	if !ok || r.Kind == KindCollectingInfo {
		return Response{Acknowledgment: r.Message}
	}

	resp := Response{
		Acknowledgment:   fill(w.pick(p.ack), r),
		SuggestedReplies: append([]string(nil), p.replies...),
	}
	switch {
	case r.Message != "":
		resp.Continuation = r.Message
		if c := w.pick(p.continuation); c != "" {
			resp.Continuation += "\n\n" + fill(c, r)
		}
	default:
		resp.Continuation = fill(w.pick(p.continuation), r)
	}
	return resp
}

func (w *Wrapper) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return options[w.rnd.Intn(len(options))]
}

func fill(tmpl string, r ActionResult) string {
	tipo := r.EventType
	if tipo == "" {
		tipo = "evento"
	}
	pessoas := "algumas"
	if r.Headcount > 0 {
		pessoas = strconv.Itoa(r.Headcount)
	}
	data := "a data combinada"
	if r.Date != "" {
		data = dates.FormatBR(r.Date)
	}
	return strings.NewReplacer("{tipo}", tipo, "{pessoas}", pessoas, "{data}", data).Replace(tmpl)
}
