package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublisher_DeliversToSubscribers(t *testing.T) {
	p := NewPublisher[int]()

	var got []int
	p.Subscribe(func(v int) { got = append(got, v) })

	p.Publish(1)
	p.Publish(2)

	assert.Equal(t, []int{1, 2}, got)
}

func TestPublisher_ReplaysLastToLateSubscriber(t *testing.T) {
	p := NewPublisher[string]()
	p.Publish("current")

	var got []string
	p.Subscribe(func(v string) { got = append(got, v) })

	assert.Equal(t, []string{"current"}, got)
}

func TestPublisher_CancelStopsDelivery(t *testing.T) {
	p := NewPublisher[int]()

	var got []int
	cancel := p.Subscribe(func(v int) { got = append(got, v) })

	p.Publish(1)
	cancel()
	p.Publish(2)

	assert.Equal(t, []int{1}, got)
}

func TestPublisher_Last(t *testing.T) {
	p := NewPublisher[int]()

	_, ok := p.Last()
	assert.False(t, ok)

	p.Publish(7)

	last, ok := p.Last()
	assert.True(t, ok)
	assert.Equal(t, 7, last)
}
