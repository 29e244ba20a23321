package humanize

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectingInfoPassesThrough(t *testing.T) {
	w := NewWrapper(rand.NewSource(7))
	got := w.Humanize(ActionResult{Kind: KindCollectingInfo, Message: "Quantas pessoas vão?"})
	assert.Equal(t, Response{Acknowledgment: "Quantas pessoas vão?"}, got)

	got = w.Humanize(ActionResult{Kind: "whatever", Message: "oi"})
	assert.Equal(t, "oi", got.Text())
}

func TestSameSeedSameOutput(t *testing.T) {
	in := ActionResult{Kind: KindItemsGenerated, EventType: "churrasco", Headcount: 20}

	a := NewWrapper(rand.NewSource(42))
	b := NewWrapper(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Humanize(in), b.Humanize(in))
	}
}

func TestPlaceholdersFilled(t *testing.T) {
	w := NewWrapper(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		got := w.Humanize(ActionResult{Kind: KindEventCreated, EventType: "pizza", Headcount: 6})
		assert.NotContains(t, got.Text(), "{")
		assert.NotEmpty(t, got.Continuation)
		assert.Contains(t, pools[KindEventCreated].replies, got.SuggestedReplies[0])
	}

	got := w.Humanize(ActionResult{Kind: KindDateAdded, Date: "2026-12-12"})
	assert.Contains(t, got.Acknowledgment, "12/12/2026")
	assert.Empty(t, got.Continuation)
}

func TestMessageBecomesContinuation(t *testing.T) {
	w := NewWrapper(nil)
	got := w.Humanize(ActionResult{Kind: KindItemsGenerated, Message: "- Carne: 8 kg", EventType: "churrasco", Headcount: 20})
	require.NotEmpty(t, got.Continuation)
	assert.Contains(t, got.Continuation, "- Carne: 8 kg")
	assert.Contains(t, got.Text(), got.Acknowledgment)
}
