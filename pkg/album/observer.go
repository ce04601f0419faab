package album

// Observer receives progress events during an album run. OnImage fires after
// each image save attempt, successful or not; OnComplete fires once after
// every image has been processed.
type Observer interface {
	OnImage(index, total int, id string, err error)
	OnComplete(total int)
}

// NopObserver ignores all events
type NopObserver struct{}

func (NopObserver) OnImage(index, total int, id string, err error) {}
func (NopObserver) OnComplete(total int)                           {}

// ObserverFuncs adapts plain functions to the Observer interface. Nil
// functions are skipped.
type ObserverFuncs struct {
	Image    func(index, total int, id string, err error)
	Complete func(total int)
}

func (o ObserverFuncs) OnImage(index, total int, id string, err error) {
	if o.Image != nil {
		o.Image(index, total, id, err)
	}
}

func (o ObserverFuncs) OnComplete(total int) {
	if o.Complete != nil {
		o.Complete(total)
	}
}
