package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/event-assistant/internal/model"
)

func TestEventSubject(t *testing.T) {
	assert.Equal(t, "planner.u1.items_generated", EventSubject("u1", model.DomainEventItemsGenerated))
	assert.Equal(t, "planner.ana_silva@mail_com.event_finalized", EventSubject("ana.silva@mail.com", model.DomainEventFinalized))
	assert.Equal(t, "planner.a_b_c.context_reset", EventSubject("a*b>c", model.DomainEventContextReset))
}
