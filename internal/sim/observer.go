package sim

// Observer receives scheduling events. Implementations must not mutate the
// registry.
type Observer interface {
	// ItemThrown is called after an item has been transformed, relieved,
	// normalized and appended to its destination queue.
	ItemThrown(round, from, to int, before, after Item)

	// RoundCompleted is called once all workers have drained their queues.
	RoundCompleted(round int, reg *Registry)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) ItemThrown(int, int, int, Item, Item) {}
func (NopObserver) RoundCompleted(int, *Registry)        {}

// Observers fans events out in order.
type Observers []Observer

func (o Observers) ItemThrown(round, from, to int, before, after Item) {
	for _, obs := range o {
		obs.ItemThrown(round, from, to, before, after)
	}
}

func (o Observers) RoundCompleted(round int, reg *Registry) {
	for _, obs := range o {
		obs.RoundCompleted(round, reg)
	}
}
