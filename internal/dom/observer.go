package dom

import "golang.org/x/net/html"

// MutationKind classifies a MutationRecord.
type MutationKind string

const (
	ChildList     MutationKind = "childList"
	Attributes    MutationKind = "attributes"
	CharacterData MutationKind = "characterData"
)

// MutationRecord describes one change to the tree.
type MutationRecord struct {
	Kind      MutationKind
	Target    Element
	Attribute string
	Added     []Element
	Removed   []Element
}

type observer struct {
	target *html.Node
	fn     func([]MutationRecord)
	active bool
}

// Observe registers fn for mutations on target and its subtree. Records are
// delivered synchronously after the mutating call has released the document.
// The returned func disconnects the observer and is safe to call repeatedly.
func (d *Document) Observe(target Element, fn func([]MutationRecord)) (disconnect func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o := &observer{target: target.n, fn: fn, active: true}
	d.observers = append(d.observers, o)
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		o.active = false
		for i, cand := range d.observers {
			if cand == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				break
			}
		}
	}
}

// notifyLocked releases d.mu and dispatches rec to interested observers.
func (d *Document) notifyLocked(rec MutationRecord) {
	var targets []*observer
	for _, o := range d.observers {
		if o.active && within(rec.Target.n, o.target) {
			targets = append(targets, o)
		}
	}
	d.mu.Unlock()
	for _, o := range targets {
		d.mu.Lock()
		active := o.active
		d.mu.Unlock()
		if active {
			o.fn([]MutationRecord{rec})
		}
	}
}

func within(n, ancestor *html.Node) bool {
	if ancestor == nil {
		return false
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}
